// Package model defines the dashboard's core record types.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidStatus is returned when a scenario status string is not one of
// the known workflow states.
var ErrInvalidStatus = errors.New("invalid scenario status")

// Post is a single social-media thread loaded from the posts export.
type Post struct {
	ID            string   `json:"id"`
	No            int      `json:"no"`
	Title         string   `json:"title"`
	Channel       string   `json:"channel"`
	URL           string   `json:"url"`
	DetectedTerms []string `json:"detected_terms"`
	ClusterID     string   `json:"cluster_id,omitempty"`
	ClusterLabel  string   `json:"cluster_label,omitempty"`
	Highlighted   bool     `json:"highlighted,omitempty"`
}

// Cluster summarises the posts that share a taxonomy bucket.
type Cluster struct {
	ID                  string    `json:"cluster_id"`
	Label               string    `json:"cluster_label"`
	TopTerms            []string  `json:"top_terms"`
	PostCount           int       `json:"post_count"`
	RepresentativePosts []Post    `json:"representative_posts"`
	CreatedAt           time.Time `json:"created_at"`
	Pinned              bool      `json:"pinned,omitempty"`
}

// SummaryTerms returns at most six top terms for compact views.
func (c Cluster) SummaryTerms() []string {
	if len(c.TopTerms) <= 6 {
		return c.TopTerms
	}
	return c.TopTerms[:6]
}

// Product is an entry of the product lineup. Only active products take part
// in scenario recommendation.
type Product struct {
	ID           string   `json:"product_id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	Capabilities []string `json:"capabilities"`
	Active       bool     `json:"active"`
}

// Status is the workflow state of a scenario.
type Status string

const (
	StatusNew          Status = "New"
	StatusSelected     Status = "Selected"
	StatusInProduction Status = "In Production"
	StatusPublished    Status = "Published"
)

// ParseStatus validates s against the known scenario states.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusNew, StatusSelected, StatusInProduction, StatusPublished:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ContentStructure is the four-part content breakdown of a scenario.
type ContentStructure struct {
	CustomerViewpoint  string `json:"customer_viewpoint"`
	IntegratedSolution string `json:"integrated_solution"`
	CustomerBenefit    string `json:"customer_benefit"`
	BrandPromise       string `json:"brand_promise"`
}

// HookVariations are tone variants of a scenario hook.
type HookVariations struct {
	Empathy     string `json:"empathy"`
	Informative string `json:"informative"`
	Brand       string `json:"brand"`
}

// Scenario is a marketing narrative linking one cluster to one or more
// products.
type Scenario struct {
	ID                string            `json:"scenario_id"`
	ClusterID         string            `json:"cluster_id"`
	Title             string            `json:"title"`
	Hook              string            `json:"hook"`
	Products          []Product         `json:"products"`
	Rationale         string            `json:"rationale"`
	Status            Status            `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	ContentType       string            `json:"content_type,omitempty"`
	CategoryDiversity int               `json:"category_diversity,omitempty"`
	ContentStructure  *ContentStructure `json:"content_structure,omitempty"`
}

// ProductNames returns the names of the connected products in order.
func (s Scenario) ProductNames() []string {
	names := make([]string, len(s.Products))
	for i, p := range s.Products {
		names[i] = p.Name
	}
	return names
}

// Actor identifies who triggered a logged action.
type Actor string

const (
	ActorUser   Actor = "user"
	ActorSystem Actor = "system"
)

// LogEvent is an append-only activity log entry.
type LogEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     Actor     `json:"actor"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	Detail    string    `json:"detail"`
}

// SearchQuery is a seed query used to collect posts.
type SearchQuery struct {
	ID      string    `json:"id"`
	Query   string    `json:"query"`
	AddedAt time.Time `json:"added_at"`
}
