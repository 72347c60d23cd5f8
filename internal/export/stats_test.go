package export

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/recommend"
	"github.com/kalambet/signalboard/internal/rules"
)

func TestStats_Empty(t *testing.T) {
	got := Stats(nil)
	if diff := cmp.Diff(Summary{}, got); diff != "" {
		t.Errorf("empty stats mismatch (-want +got):\n%s", diff)
	}
}

func TestStats(t *testing.T) {
	p := func(names ...string) []model.Product {
		out := make([]model.Product, len(names))
		for i, n := range names {
			out[i] = model.Product{Name: n}
		}
		return out
	}
	scenarios := []model.Scenario{
		{ClusterID: "C002", Products: p("A"), CategoryDiversity: 1},
		{ClusterID: "C001", Products: p("A", "B"), CategoryDiversity: 2},
		{ClusterID: "C001", Products: p("C", "A", "B"), CategoryDiversity: 3},
		{ClusterID: "C003", Products: p("D", "E", "F"), CategoryDiversity: 2},
	}

	got := Stats(scenarios)
	want := Summary{
		TotalScenarios:   4,
		AvgProducts:      9.0 / 4,
		AvgDiversity:     2,
		MultiProductRate: 0.75,
		ByCluster: []Count{
			{Name: "C001", Count: 2},
			{Name: "C002", Count: 1},
			{Name: "C003", Count: 1},
		},
		TopProducts: []Count{
			{Name: "A", Count: 3},
			{Name: "B", Count: 2},
			{Name: "C", Count: 1},
			{Name: "D", Count: 1},
			{Name: "E", Count: 1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestStats_CuratedLibrary(t *testing.T) {
	curated, err := recommend.NewEngine(rules.MustDefault()).Curated()
	if err != nil {
		t.Fatalf("Curated: %v", err)
	}

	want := Summary{
		TotalScenarios:   15,
		AvgProducts:      43.0 / 15,
		AvgDiversity:     43.0 / 15,
		MultiProductRate: 1,
		ByCluster: []Count{
			{"C003", 3}, {"C008", 3}, {"C001", 2}, {"C002", 2},
			{"C005", 2}, {"C004", 1}, {"C006", 1}, {"C007", 1},
		},
		TopProducts: []Count{
			{"공기청정기", 7}, {"로봇청소기", 5}, {"에어컨", 4}, {"세탁기", 3}, {"신발관리기", 3},
		},
	}
	got := Stats(curated)
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("curated stats mismatch (-want +got):\n%s", diff)
	}
}
