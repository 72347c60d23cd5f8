package recommend

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/signalboard/internal/model"
)

//go:embed data/curated.yaml
var curatedFS embed.FS

const curatedContentType = "multi-product"

type curatedProduct struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Role     string `yaml:"role"`
}

type curatedScenario struct {
	ID        string           `yaml:"id"`
	Cluster   string           `yaml:"cluster"`
	Title     string           `yaml:"title"`
	Hook      string           `yaml:"hook"`
	Products  []curatedProduct `yaml:"products"`
	Outline   []string         `yaml:"outline"`
	Synergy   string           `yaml:"synergy"`
	Diversity int              `yaml:"diversity"`
}

var (
	curatedOnce sync.Once
	curatedDefs []curatedScenario
	curatedErr  error
)

func loadCurated() ([]curatedScenario, error) {
	curatedOnce.Do(func() {
		data, err := curatedFS.ReadFile("data/curated.yaml")
		if err != nil {
			curatedErr = fmt.Errorf("reading embedded curated.yaml: %w", err)
			return
		}
		var doc struct {
			Scenarios []curatedScenario `yaml:"scenarios"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			curatedErr = fmt.Errorf("parsing embedded curated.yaml: %w", err)
			return
		}
		for _, s := range doc.Scenarios {
			if len(s.Products) < 2 {
				curatedErr = fmt.Errorf("curated scenario %s: needs at least 2 products", s.ID)
				return
			}
			if s.Diversity < minDiversity || s.Diversity > maxDiversity {
				curatedErr = fmt.Errorf("curated scenario %s: diversity %d outside %d..%d", s.ID, s.Diversity, minDiversity, maxDiversity)
				return
			}
		}
		curatedDefs = doc.Scenarios
	})
	return curatedDefs, curatedErr
}

// Curated returns the hand-written multi-product scenario library, stamped
// with the engine clock. Each call returns fresh values.
func (e *Engine) Curated() ([]model.Scenario, error) {
	defs, err := loadCurated()
	if err != nil {
		return nil, err
	}
	createdAt := e.now().UTC()
	out := make([]model.Scenario, len(defs))
	for i, d := range defs {
		products := make([]model.Product, len(d.Products))
		for j, p := range d.Products {
			products[j] = model.Product{
				ID:           fmt.Sprintf("%s-P%d", d.ID, j+1),
				Name:         p.Name,
				Category:     p.Category,
				Tags:         []string{},
				Capabilities: []string{p.Role},
				Active:       true,
			}
		}
		out[i] = model.Scenario{
			ID:                d.ID,
			ClusterID:         d.Cluster,
			Title:             d.Title,
			Hook:              d.Hook,
			Products:          products,
			Rationale:         d.Synergy,
			Status:            model.StatusNew,
			CreatedAt:         createdAt,
			ContentType:       curatedContentType,
			CategoryDiversity: d.Diversity,
			ContentStructure:  outlineStructure(d),
		}
	}
	return out, nil
}

// outlineStructure folds the four-step outline into the content breakdown:
// the problem, the product routine, and the outcome.
func outlineStructure(d curatedScenario) *model.ContentStructure {
	cs := &model.ContentStructure{CustomerViewpoint: d.Hook, BrandPromise: brandPromise}
	if n := len(d.Outline); n > 0 {
		cs.IntegratedSolution = strings.Join(d.Outline[:n-1], " / ")
		cs.CustomerBenefit = d.Outline[n-1]
	}
	return cs
}
