package recommend

import (
	"fmt"
	"strings"

	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/rules"
)

const (
	brandPromise = "Life's Good"

	minDiversity = 1
	maxDiversity = 5
	// wideMixDistance is the category gap that earns the diversity bonus.
	wideMixDistance = 4
)

// HookVariations derives the three tone variants of a hook.
func HookVariations(hook string) model.HookVariations {
	return model.HookVariations{
		Empathy:     hook + " 많은 분들이 같은 고민을 하고 계세요.",
		Informative: hook + " 전문가가 알려드리는 해결 방법!",
		Brand:       hook + " LG ThinQ로 스마트하게 해결하세요.",
	}
}

// DiversityScore rates how varied the product mix is: one point per distinct
// category plus one when two of them sit far apart, clamped to 1..5.
func DiversityScore(tables *rules.Tables, products []model.Product) int {
	var categories []string
	seen := make(map[string]bool)
	for _, p := range products {
		c := tables.ResolveCategory(p)
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}

	score := len(categories)
	widest := 0
	for i := range categories {
		for j := i + 1; j < len(categories); j++ {
			if d := tables.Distance(categories[i], categories[j]); d > widest {
				widest = d
			}
		}
	}
	if widest >= wideMixDistance {
		score++
	}
	return min(max(score, minDiversity), maxDiversity)
}

func buildStructure(cluster model.Cluster, topic rules.Topic, products []model.Product) *model.ContentStructure {
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	terms := cluster.TopTerms
	if len(terms) > rationaleTermLimit {
		terms = terms[:rationaleTermLimit]
	}
	return &model.ContentStructure{
		CustomerViewpoint:  topic.Hook,
		IntegratedSolution: strings.Join(names, " + "),
		CustomerBenefit:    fmt.Sprintf("%s 고민(%s) 해결", cluster.Label, strings.Join(terms, ", ")),
		BrandPromise:       brandPromise,
	}
}
