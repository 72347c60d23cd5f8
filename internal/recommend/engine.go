// Package recommend turns cluster summaries into templated marketing
// scenarios by matching them against the mapping-rule table.
package recommend

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/rules"
)

const (
	minScenarios       = 2
	scenarioSpread     = 3 // minScenarios + IntN(scenarioSpread) gives 2..4
	maxLinkedProducts  = 3
	rationaleTermLimit = 3
)

// Rand is the randomness source for the per-cluster scenario count.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Engine generates scenarios from clusters and products.
type Engine struct {
	tables *rules.Tables
	rng    Rand
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand pins the randomness source.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock overrides time.Now for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine over the given lookup tables.
func NewEngine(tables *rules.Tables, opts ...Option) *Engine {
	e := &Engine{tables: tables, rng: globalRand{}, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate produces scenarios for every cluster that triggers at least one
// mapping rule. Only active products are linked. Scenario ids run across the
// whole call ("scenario-1", "scenario-2", ...) and are only unique within it.
func (e *Engine) Generate(clusters []model.Cluster, products []model.Product) []model.Scenario {
	active := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.Active {
			active = append(active, p)
		}
	}

	var scenarios []model.Scenario
	for _, cluster := range clusters {
		matching := e.matchingRules(cluster)
		if len(matching) == 0 {
			continue
		}

		count := minScenarios + e.rng.IntN(scenarioSpread)
		if limit := len(matching) * 2; count > limit {
			count = limit
		}

		for i := 0; i < count; i++ {
			rule := matching[i%len(matching)]
			topic := rule.Topics[i%len(rule.Topics)]

			connected := connectedProducts(rule, active)
			if len(connected) == 0 {
				continue
			}
			linked := connected
			if len(linked) > maxLinkedProducts {
				linked = linked[:maxLinkedProducts]
			}
			linked = append([]model.Product(nil), linked...)

			scenarios = append(scenarios, model.Scenario{
				ID:                fmt.Sprintf("scenario-%d", len(scenarios)+1),
				ClusterID:         cluster.ID,
				Title:             topic.Title,
				Hook:              topic.Hook,
				Products:          linked,
				Rationale:         Rationale(cluster, connected),
				Status:            model.StatusNew,
				CreatedAt:         e.now().UTC(),
				ContentType:       contentType(linked),
				CategoryDiversity: DiversityScore(e.tables, linked),
				ContentStructure:  buildStructure(cluster, topic, linked),
			})
		}
	}
	return scenarios
}

func (e *Engine) matchingRules(cluster model.Cluster) []rules.MappingRule {
	terms := rules.Lower(cluster.TopTerms)
	var matching []rules.MappingRule
	for _, rule := range e.tables.Rules {
		if rules.AnyMatch(rule.Keywords, terms) {
			matching = append(matching, rule)
		}
	}
	return matching
}

// connectedProducts keeps the products whose name contains any of the rule's
// product fragments, in product order.
func connectedProducts(rule rules.MappingRule, products []model.Product) []model.Product {
	var out []model.Product
	for _, p := range products {
		for _, fragment := range rule.Products {
			if strings.Contains(p.Name, fragment) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Rationale explains why the products were linked to the cluster. It names
// every connected product, not only the linked subset.
func Rationale(cluster model.Cluster, products []model.Product) string {
	terms := cluster.TopTerms
	if len(terms) > rationaleTermLimit {
		terms = terms[:rationaleTermLimit]
	}
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	return fmt.Sprintf("\"%s\" 클러스터의 주요 키워드(%s)와 %s의 핵심 기능이 매칭되어 추천되었습니다.",
		cluster.Label, strings.Join(terms, ", "), strings.Join(names, ", "))
}

func contentType(products []model.Product) string {
	if len(products) > 1 {
		return "multi-product"
	}
	return "single-product"
}
