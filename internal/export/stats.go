package export

import (
	"cmp"
	"slices"

	"github.com/kalambet/signalboard/internal/model"
)

const topProductLimit = 5

// Count is a named tally.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary aggregates a scenario set.
type Summary struct {
	TotalScenarios   int     `json:"total_scenarios"`
	AvgProducts      float64 `json:"avg_products"`
	AvgDiversity     float64 `json:"avg_diversity"`
	ByCluster        []Count `json:"by_cluster"`
	TopProducts      []Count `json:"top_products"`
	MultiProductRate float64 `json:"multi_product_rate"`
}

// Stats summarises scenarios: averages, scenario counts per cluster and the
// most used products. Both tallies are sorted by count descending, ties by
// first appearance.
func Stats(scenarios []model.Scenario) Summary {
	sum := Summary{TotalScenarios: len(scenarios)}
	if len(scenarios) == 0 {
		return sum
	}

	var products, diversity, multi int
	clusters := newTally()
	usage := newTally()
	for _, s := range scenarios {
		products += len(s.Products)
		diversity += s.CategoryDiversity
		if len(s.Products) > 1 {
			multi++
		}
		clusters.add(s.ClusterID)
		for _, p := range s.Products {
			usage.add(p.Name)
		}
	}

	n := float64(len(scenarios))
	sum.AvgProducts = float64(products) / n
	sum.AvgDiversity = float64(diversity) / n
	sum.MultiProductRate = float64(multi) / n
	sum.ByCluster = clusters.sorted()
	sum.TopProducts = usage.sorted()
	if len(sum.TopProducts) > topProductLimit {
		sum.TopProducts = sum.TopProducts[:topProductLimit]
	}
	return sum
}

type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(name string) {
	if _, ok := t.counts[name]; !ok {
		t.order = append(t.order, name)
	}
	t.counts[name]++
}

func (t *tally) sorted() []Count {
	out := make([]Count, len(t.order))
	for i, name := range t.order {
		out[i] = Count{Name: name, Count: t.counts[name]}
	}
	slices.SortStableFunc(out, func(a, b Count) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out
}
