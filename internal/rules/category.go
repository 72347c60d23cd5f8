package rules

import (
	"strings"

	"github.com/kalambet/signalboard/internal/model"
)

// CategoryOf returns the table category a product keyword belongs to, or ""
// when the keyword is unknown. Matching is exact.
func (t *Tables) CategoryOf(productKeyword string) string {
	for _, c := range t.Categories {
		for _, p := range c.Products {
			if p == productKeyword {
				return c.Name
			}
		}
	}
	return ""
}

// ResolveCategory maps a product onto the category table. A product whose
// free-text category already names a table category keeps it; otherwise the
// first category with a product keyword contained in the product name wins.
// Products that match nothing keep their free-text category.
func (t *Tables) ResolveCategory(p model.Product) string {
	for _, c := range t.Categories {
		if c.Name == p.Category {
			return c.Name
		}
	}
	for _, c := range t.Categories {
		for _, kw := range c.Products {
			if strings.Contains(p.Name, kw) {
				return c.Name
			}
		}
	}
	return p.Category
}

// Distance is the gap between two categories on the distance scale. Unknown
// categories have no position and yield 0.
func (t *Tables) Distance(a, b string) int {
	da, okA := t.distanceOf(a)
	db, okB := t.distanceOf(b)
	if !okA || !okB {
		return 0
	}
	if da > db {
		return da - db
	}
	return db - da
}

func (t *Tables) distanceOf(name string) (int, bool) {
	for _, c := range t.Categories {
		if c.Name == name {
			return c.Distance, true
		}
	}
	return 0, false
}
