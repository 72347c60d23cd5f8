package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/signalboard/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestParseStrictness(t *testing.T) {
	tests := []struct {
		in      string
		want    Strictness
		wantErr bool
	}{
		{"Loose", StrictnessLoose, false},
		{"strict", StrictnessStrict, false},
		{" MEDIUM ", StrictnessMedium, false},
		{"", StrictnessMedium, false},
		{"extreme", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrictness(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrictness(%q) err = %v", tt.in, err)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrValidation) {
			t.Errorf("ParseStrictness(%q) err = %v, want ErrValidation", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseStrictness(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUpdateProduct(t *testing.T) {
	h := newHarness(t)
	h.d.Initialize(context.Background())

	got, err := h.d.UpdateProduct("prod-10", ProductPatch{
		Active: ptr(true),
		Tags:   []string{" #로봇청소기 ", "", "#털제거"},
	})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if !got.Active || got.Name != "LG RoboVac" {
		t.Errorf("product = %+v", got)
	}
	if diff := cmp.Diff([]string{"#로봇청소기", "#털제거"}, got.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if stored := h.d.Products()[9]; !stored.Active {
		t.Error("update not stored")
	}
	if d := h.logs(t)[0].Detail; d != "Updated product prod-10" {
		t.Errorf("detail = %q", d)
	}
}

func TestUpdateProduct_Errors(t *testing.T) {
	h := newHarness(t)
	h.d.Initialize(context.Background())

	if _, err := h.d.UpdateProduct("prod-404", ProductPatch{Active: ptr(false)}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id err = %v", err)
	}
	if _, err := h.d.UpdateProduct("prod-1", ProductPatch{Name: ptr("  ")}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank name err = %v", err)
	}
	if n := len(h.logs(t)); n != 1 {
		t.Errorf("logs = %d, failed updates must not log", n)
	}
}

func TestAddProduct(t *testing.T) {
	h := newHarness(t)
	h.d.Initialize(context.Background())

	p, err := h.d.AddProduct(ProductInput{
		Name:         "LG Pet Dryer",
		Category:     "Pet Care",
		Capabilities: []string{"Quiet drying", " "},
	})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	if !strings.HasPrefix(p.ID, "prod-") || !p.Active {
		t.Errorf("product = %+v", p)
	}
	if diff := cmp.Diff([]string{"Quiet drying"}, p.Capabilities); diff != "" {
		t.Errorf("capabilities mismatch (-want +got):\n%s", diff)
	}
	products := h.d.Products()
	if len(products) != 11 || products[10].ID != p.ID {
		t.Errorf("product not appended: %d products", len(products))
	}
	if n := len(h.logs(t)); n != 1 {
		t.Errorf("logs = %d, adding a product is not logged", n)
	}

	for _, in := range []ProductInput{{Name: "x"}, {Category: "y"}, {Name: " ", Category: "y"}} {
		if _, err := h.d.AddProduct(in); !errors.Is(err, ErrValidation) {
			t.Errorf("AddProduct(%+v) err = %v, want ErrValidation", in, err)
		}
	}
}

func TestAssignPostCluster(t *testing.T) {
	h := newHarness(t)
	h.d.Initialize(context.Background())
	if _, err := h.d.RunClustering(context.Background(), 3, StrictnessMedium); err != nil {
		t.Fatalf("RunClustering: %v", err)
	}
	before := len(h.logs(t))

	p, err := h.d.AssignPostCluster("reddit-3", "C002")
	if err != nil {
		t.Fatalf("AssignPostCluster: %v", err)
	}
	if p.ClusterID != "C002" || p.ClusterLabel != "Pet Anxiety & Behavior" {
		t.Errorf("post = %s/%s", p.ClusterID, p.ClusterLabel)
	}
	if got := h.d.Posts()[2]; got.ClusterID != "C002" {
		t.Errorf("stored cluster = %s", got.ClusterID)
	}

	cleared, err := h.d.AssignPostCluster("reddit-3", "")
	if err != nil {
		t.Fatalf("AssignPostCluster clear: %v", err)
	}
	if cleared.ClusterID != "" || cleared.ClusterLabel != "" {
		t.Errorf("cleared post = %+v", cleared)
	}

	if _, err := h.d.AssignPostCluster("reddit-404", "C001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown post err = %v", err)
	}
	if _, err := h.d.AssignPostCluster("reddit-1", "C999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown cluster err = %v", err)
	}
	if n := len(h.logs(t)); n != before {
		t.Errorf("logs = %d, manual assignment is not logged", n)
	}
}

func TestTogglePostHighlight(t *testing.T) {
	h := newHarness(t)
	h.d.Initialize(context.Background())

	p, err := h.d.TogglePostHighlight("reddit-2")
	if err != nil {
		t.Fatalf("TogglePostHighlight: %v", err)
	}
	if !p.Highlighted {
		t.Error("first toggle should highlight")
	}
	p, _ = h.d.TogglePostHighlight("reddit-2")
	if p.Highlighted {
		t.Error("second toggle should clear")
	}
	if _, err := h.d.TogglePostHighlight("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAddSearchQuery(t *testing.T) {
	h := newHarness(t)

	q, err := h.d.AddSearchQuery(`  "cat" litter  `)
	if err != nil {
		t.Fatalf("AddSearchQuery: %v", err)
	}
	if q.Query != `"cat" litter` || !q.AddedAt.Equal(fixedNow) {
		t.Errorf("query = %+v", q)
	}
	qs := h.d.SearchQueries()
	if len(qs) != 9 || qs[8].ID != q.ID {
		t.Errorf("query not appended")
	}

	want := model.LogEvent{
		ID:        h.logs(t)[0].ID,
		Timestamp: fixedNow,
		Actor:     model.ActorUser,
		Action:    "Add Search Query",
		Entity:    "SearchQuery",
		Detail:    `Added query: ""cat" litter"`,
	}
	if diff := cmp.Diff(want, h.logs(t)[0]); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}

	if _, err := h.d.AddSearchQuery("   "); !errors.Is(err, ErrValidation) {
		t.Errorf("blank query err = %v", err)
	}
}
