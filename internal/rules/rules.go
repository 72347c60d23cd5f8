// Package rules holds the fixed lookup tables that drive clustering and
// scenario recommendation: the cluster taxonomy, the mapping rules and the
// product category table.
//
// The tables ship embedded as YAML and are parsed once per process. Table
// order is significant: clustering ties and rule selection both follow it.
package rules

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// ClusterDef is one taxonomy entry.
type ClusterDef struct {
	ID       string   `yaml:"id"`
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Topic is a title/hook template emitted by a mapping rule.
type Topic struct {
	Title string `yaml:"title"`
	Hook  string `yaml:"hook"`
}

// MappingRule links trigger keywords to eligible products and topics.
// Products are name fragments matched against product names.
type MappingRule struct {
	Keywords []string `yaml:"keywords"`
	Products []string `yaml:"products"`
	Topics   []Topic  `yaml:"topics"`
}

// Category is a product category with its member product keywords and its
// position on the distance scale.
type Category struct {
	Name     string   `yaml:"name"`
	Distance int      `yaml:"distance"`
	Products []string `yaml:"products"`
}

// Tables bundles every lookup table.
type Tables struct {
	Taxonomy   []ClusterDef  `yaml:"clusters"`
	Rules      []MappingRule `yaml:"rules"`
	Categories []Category    `yaml:"categories"`
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
	defaultErr    error
)

// Default returns the embedded tables. They are parsed on first use and
// shared afterwards; callers must not modify them.
func Default() (*Tables, error) {
	defaultOnce.Do(func() {
		defaultTables, defaultErr = loadEmbedded()
	})
	return defaultTables, defaultErr
}

// MustDefault is like Default but panics if the embedded tables are broken.
func MustDefault() *Tables {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

func loadEmbedded() (*Tables, error) {
	var t Tables
	for _, name := range []string{"taxonomy.yaml", "mapping_rules.yaml", "categories.yaml"} {
		data, err := dataFS.ReadFile("data/" + name)
		if err != nil {
			return nil, fmt.Errorf("reading embedded %s: %w", name, err)
		}
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parsing embedded %s: %w", name, err)
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Load reads an override file holding any of the three tables. Tables the
// file leaves out fall back to the embedded ones.
func Load(path string) (*Tables, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}
	if t.Taxonomy == nil {
		t.Taxonomy = base.Taxonomy
	}
	if t.Rules == nil {
		t.Rules = base.Rules
	}
	if t.Categories == nil {
		t.Categories = base.Categories
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return &t, nil
}

// Validate checks that every entry is usable.
func (t *Tables) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(t.Taxonomy))
	for i, c := range t.Taxonomy {
		if c.ID == "" || c.Label == "" {
			errs = append(errs, fmt.Errorf("cluster %d: id and label are required", i))
		}
		if len(c.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("cluster %s: no keywords", c.ID))
		}
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("cluster %s: duplicate id", c.ID))
		}
		seen[c.ID] = true
	}
	for i, r := range t.Rules {
		if len(r.Keywords) == 0 || len(r.Products) == 0 || len(r.Topics) == 0 {
			errs = append(errs, fmt.Errorf("rule %d: keywords, products and topics are required", i))
		}
	}
	for i, c := range t.Categories {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("category %d: name is required", i))
		}
	}
	return errors.Join(errs...)
}
