package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kalambet/signalboard/internal/model"
)

// Strictness is the clustering strictness chosen by the user.
type Strictness string

const (
	StrictnessLoose  Strictness = "Loose"
	StrictnessMedium Strictness = "Medium"
	StrictnessStrict Strictness = "Strict"
)

// ParseStrictness accepts the three levels case-insensitively. An empty
// string selects Medium.
func ParseStrictness(s string) (Strictness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "loose":
		return StrictnessLoose, nil
	case "", "medium":
		return StrictnessMedium, nil
	case "strict":
		return StrictnessStrict, nil
	}
	return "", fmt.Errorf("%w: unknown strictness %q", ErrValidation, s)
}

// ProductPatch holds the fields to change on a product. Nil fields are left
// untouched.
type ProductPatch struct {
	Name         *string  `json:"name,omitempty"`
	Category     *string  `json:"category,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

// UpdateProduct applies patch to the product with the given id.
func (d *Dashboard) UpdateProduct(id string, patch ProductPatch) (model.Product, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return model.Product{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return model.Product{}, fmt.Errorf("%w: category is required", ErrValidation)
	}

	d.mu.Lock()
	idx := slices.IndexFunc(d.products, func(p model.Product) bool { return p.ID == id })
	if idx < 0 {
		d.mu.Unlock()
		return model.Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	next := slices.Clone(d.products)
	p := next[idx]
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Category != nil {
		p.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Tags != nil {
		p.Tags = cleanList(patch.Tags)
	}
	if patch.Capabilities != nil {
		p.Capabilities = cleanList(patch.Capabilities)
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
	next[idx] = p
	d.products = next
	d.mu.Unlock()

	d.record(model.ActorUser, "Update Product", "Product", fmt.Sprintf("Updated product %s", id))
	return p, nil
}

// ProductInput describes a product added by hand.
type ProductInput struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	Capabilities []string `json:"capabilities"`
}

// AddProduct appends a new active product. Name and category are required.
// No log event is written.
func (d *Dashboard) AddProduct(in ProductInput) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	if name == "" || category == "" {
		return model.Product{}, fmt.Errorf("%w: name and category are required", ErrValidation)
	}
	p := model.Product{
		ID:           "prod-" + uuid.NewString(),
		Name:         name,
		Category:     category,
		Tags:         cleanList(in.Tags),
		Capabilities: cleanList(in.Capabilities),
		Active:       true,
	}

	d.mu.Lock()
	next := make([]model.Product, 0, len(d.products)+1)
	next = append(next, d.products...)
	d.products = append(next, p)
	d.mu.Unlock()
	return p, nil
}

// cleanList trims entries and drops empty ones.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AssignPostCluster moves a post into a cluster by hand, copying the cluster
// label. An empty clusterID clears the assignment. No log event is written.
func (d *Dashboard) AssignPostCluster(postID, clusterID string) (model.Post, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := slices.IndexFunc(d.posts, func(p model.Post) bool { return p.ID == postID })
	if idx < 0 {
		return model.Post{}, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	label := ""
	if clusterID != "" {
		ci := slices.IndexFunc(d.clusters, func(c model.Cluster) bool { return c.ID == clusterID })
		if ci < 0 {
			return model.Post{}, fmt.Errorf("cluster %s: %w", clusterID, ErrNotFound)
		}
		label = d.clusters[ci].Label
	}

	next := slices.Clone(d.posts)
	next[idx].ClusterID = clusterID
	next[idx].ClusterLabel = label
	d.posts = next
	return next[idx], nil
}

// TogglePostHighlight flips the highlighted flag of a post.
func (d *Dashboard) TogglePostHighlight(postID string) (model.Post, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := slices.IndexFunc(d.posts, func(p model.Post) bool { return p.ID == postID })
	if idx < 0 {
		return model.Post{}, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	next := slices.Clone(d.posts)
	next[idx].Highlighted = !next[idx].Highlighted
	d.posts = next
	return next[idx], nil
}

// AddSearchQuery appends a seed query.
func (d *Dashboard) AddSearchQuery(query string) (model.SearchQuery, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.SearchQuery{}, fmt.Errorf("%w: query is required", ErrValidation)
	}
	q := model.SearchQuery{ID: "q-" + uuid.NewString(), Query: query, AddedAt: d.now().UTC()}

	d.mu.Lock()
	next := make([]model.SearchQuery, 0, len(d.queries)+1)
	next = append(next, d.queries...)
	d.queries = append(next, q)
	d.mu.Unlock()

	d.record(model.ActorUser, "Add Search Query", "SearchQuery", fmt.Sprintf("Added query: \"%s\"", query))
	return q, nil
}
