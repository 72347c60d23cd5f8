package recommend

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/rules"
)

func TestHookVariations(t *testing.T) {
	got := HookVariations("반려견 털 때문에 고민이신가요?")
	want := model.HookVariations{
		Empathy:     "반려견 털 때문에 고민이신가요? 많은 분들이 같은 고민을 하고 계세요.",
		Informative: "반려견 털 때문에 고민이신가요? 전문가가 알려드리는 해결 방법!",
		Brand:       "반려견 털 때문에 고민이신가요? LG ThinQ로 스마트하게 해결하세요.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("variations mismatch (-want +got):\n%s", diff)
	}
}

func TestDiversityScore(t *testing.T) {
	tables := rules.MustDefault()
	named := func(names ...string) []model.Product {
		out := make([]model.Product, len(names))
		for i, n := range names {
			out[i] = model.Product{Name: n, Category: "General"}
		}
		return out
	}

	tests := []struct {
		name     string
		products []model.Product
		want     int
	}{
		{"empty clamps to one", nil, 1},
		{"single", named("LG 공기청정기"), 1},
		{"same category", named("LG 공기청정기", "LG 제습기"), 1},
		{"wide pair earns bonus", named("LG 공기청정기", "LG 올레드 TV"), 3},
		{"close pair", named("LG 세탁기", "LG 스타일러"), 2},
		{"clamped to five", named("공기청정기", "정수기", "세탁기", "무선청소기", "씽큐 허브"), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiversityScore(tables, tt.products); got != tt.want {
				t.Errorf("DiversityScore = %d, want %d", got, tt.want)
			}
		})
	}
}
