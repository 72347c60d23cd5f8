package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/rules"
)

// Accepted column names per logical field, in precedence order.
var (
	aliasNo           = []string{"No", "no"}
	aliasTitle        = []string{"Reddit 스레드 제목", "title", "Title"}
	aliasChannel      = []string{"Subreddit", "subreddit"}
	aliasURL          = []string{"링크", "url", "URL", "Link"}
	aliasTerms        = []string{"cluster_top_terms", "detected_terms", "tags"}
	aliasTopTerms     = []string{"cluster_top_terms"}
	aliasClusterID    = []string{"cluster_id"}
	aliasClusterLabel = []string{"cluster_label"}

	aliasProductID    = []string{"product_id"}
	aliasProductName  = []string{"제품명", "name", "Name"}
	aliasCategory     = []string{"category", "Category"}
	aliasTags         = []string{"태그", "tags", "Tags"}
	aliasCapabilities = []string{"capabilities", "Capabilities"}
	aliasActive       = []string{"active", "Active"}

	aliasScenarioID    = []string{"scenario_id"}
	aliasScenarioTitle = []string{"scenario_title"}
	aliasOutline       = []string{"content_outline"}
	aliasProducts      = []string{"products", "primary_product"}
	aliasRoles         = []string{"product_roles", "product_feature"}
	aliasSynergy       = []string{"synergy"}
	aliasBenefit       = []string{"user_benefit"}
	aliasFeature       = []string{"product_feature"}
	aliasContentType   = []string{"content_type"}
	aliasDiversity     = []string{"category_diversity"}
)

const (
	defaultCategory      = "General"
	defaultScenarioTitle = "Untitled Scenario"
	representativeLimit  = 5
)

// row is one CSV record keyed by header name.
type row map[string]string

// first returns the first non-empty value among the aliases.
func (r row) first(aliases []string) string {
	for _, a := range aliases {
		if v := r[a]; v != "" {
			return v
		}
	}
	return ""
}

// readRows parses CSV with a header line. A leading byte-order mark is
// dropped and blank lines are skipped.
func readRows(data []byte) ([]row, error) {
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var rows []row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(rows)+1, err)
		}
		if isBlank(rec) {
			continue
		}
		m := make(row, len(header))
		for i, name := range header {
			if i < len(rec) {
				m[name] = rec[i]
			}
		}
		rows = append(rows, m)
	}
	return rows, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if f != "" {
			return false
		}
	}
	return true
}

// splitList splits a comma-separated cell, trimming items and dropping empty
// ones.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var urlNoise = strings.NewReplacer(
	"%C2%A0", "",
	"\u00A0", "",
	"\u200B", "",
)

// SanitizeURL strips whitespace, encoded and literal non-breaking spaces and
// zero-width spaces from a link.
func SanitizeURL(s string) string {
	s = strings.Join(strings.Fields(s), "")
	return urlNoise.Replace(s)
}

func parseNo(s string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return fallback
}

// ParsePosts decodes the posts export. Missing fields default to empty
// values; the sequence number falls back to the row position.
func ParsePosts(data []byte) ([]model.Post, error) {
	rows, err := readRows(data)
	if err != nil {
		return nil, err
	}
	posts := make([]model.Post, 0, len(rows))
	for i, r := range rows {
		posts = append(posts, model.Post{
			ID:            fmt.Sprintf("reddit-%d", i+1),
			No:            parseNo(r.first(aliasNo), i+1),
			Title:         r.first(aliasTitle),
			Channel:       r.first(aliasChannel),
			URL:           SanitizeURL(r.first(aliasURL)),
			DetectedTerms: splitList(r.first(aliasTerms)),
			ClusterID:     r.first(aliasClusterID),
			ClusterLabel:  r.first(aliasClusterLabel),
		})
	}
	return posts, nil
}

// ParseProducts decodes the product lineup. The active flag accepts "true"
// or "1"; without an active column every product is active.
func ParseProducts(data []byte) ([]model.Product, error) {
	rows, err := readRows(data)
	if err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(rows))
	for i, r := range rows {
		id := r.first(aliasProductID)
		if id == "" {
			id = fmt.Sprintf("prod-%d", i+1)
		}
		category := r.first(aliasCategory)
		if category == "" {
			category = defaultCategory
		}
		products = append(products, model.Product{
			ID:           id,
			Name:         r.first(aliasProductName),
			Category:     category,
			Tags:         splitList(r.first(aliasTags)),
			Capabilities: splitList(r.first(aliasCapabilities)),
			Active:       parseActive(r.first(aliasActive)),
		})
	}
	return products, nil
}

func parseActive(s string) bool {
	if s == "" {
		return true
	}
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, "true") || s == "1"
}

// ParseScenarios decodes pre-authored scenarios. Product names and roles are
// parallel comma-separated lists; each name is categorised through the
// category table.
func ParseScenarios(data []byte, tables *rules.Tables, now time.Time) ([]model.Scenario, error) {
	rows, err := readRows(data)
	if err != nil {
		return nil, err
	}
	scenarios := make([]model.Scenario, 0, len(rows))
	for i, r := range rows {
		names := splitList(r.first(aliasProducts))
		roles := strings.Split(r.first(aliasRoles), ",")

		products := make([]model.Product, 0, len(names))
		for j, name := range names {
			category := tables.CategoryOf(name)
			if category == "" {
				category = defaultCategory
			}
			var tags []string
			if j < len(roles) {
				if role := strings.TrimSpace(roles[j]); role != "" {
					tags = []string{role}
				}
			}
			products = append(products, model.Product{
				ID:       fmt.Sprintf("prod-%d-%d", i, j),
				Name:     name,
				Category: category,
				Tags:     tags,
				Active:   true,
			})
		}
		if len(products) == 0 {
			products = append(products, model.Product{
				ID:       fmt.Sprintf("prod-%d", i),
				Name:     "Unknown",
				Category: defaultCategory,
				Active:   true,
			})
		}

		id := r.first(aliasScenarioID)
		if id == "" {
			id = fmt.Sprintf("SC%03d", i+1)
		}
		title := r.first(aliasScenarioTitle)
		if title == "" {
			title = defaultScenarioTitle
		}
		rationale := r.first(aliasSynergy)
		if rationale == "" {
			rationale = r.first(aliasBenefit) + " | " + r.first(aliasFeature)
		}

		scenarios = append(scenarios, model.Scenario{
			ID:                id,
			ClusterID:         r.first(aliasClusterID),
			Title:             title,
			Hook:              r.first(aliasOutline),
			Products:          products,
			Rationale:         rationale,
			Status:            model.StatusNew,
			CreatedAt:         now,
			ContentType:       r.first(aliasContentType),
			CategoryDiversity: parseDiversity(r.first(aliasDiversity)),
		})
	}
	return scenarios, nil
}

func parseDiversity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, 5)
}

// ParseClusters rebuilds cluster summaries from a posts export that already
// carries cluster columns. Rows are grouped by cluster id; label and top
// terms come from the first row of each group. Numeric ids sort ascending
// ahead of non-numeric ones, which keep their first-seen order.
func ParseClusters(data []byte, now time.Time) ([]model.Cluster, error) {
	rows, err := readRows(data)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string][]row)
	for _, r := range rows {
		id := r.first(aliasClusterID)
		if id == "" {
			continue
		}
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], r)
	}

	clusters := make([]model.Cluster, 0, len(order))
	for _, id := range order {
		members := groups[id]
		head := members[0]
		label := head.first(aliasClusterLabel)
		if label == "" {
			label = "Cluster " + id
		}
		terms := splitList(head.first(aliasTopTerms))

		reps := members
		if len(reps) > representativeLimit {
			reps = reps[:representativeLimit]
		}
		posts := make([]model.Post, 0, len(reps))
		for j, r := range reps {
			no := parseNo(r.first(aliasNo), j+1)
			posts = append(posts, model.Post{
				ID:            fmt.Sprintf("reddit-%d", no),
				No:            no,
				Title:         r.first(aliasTitle),
				Channel:       r.first(aliasChannel),
				URL:           SanitizeURL(r.first(aliasURL)),
				DetectedTerms: terms,
				ClusterID:     id,
				ClusterLabel:  head.first(aliasClusterLabel),
			})
		}

		clusters = append(clusters, model.Cluster{
			ID:                  id,
			Label:               label,
			TopTerms:            terms,
			PostCount:           len(members),
			RepresentativePosts: posts,
			CreatedAt:           now,
		})
	}

	slices.SortStableFunc(clusters, func(a, b model.Cluster) int {
		na, errA := strconv.Atoi(a.ID)
		nb, errB := strconv.Atoi(b.ID)
		switch {
		case errA == nil && errB == nil:
			return na - nb
		case errA == nil:
			return -1
		case errB == nil:
			return 1
		}
		return 0
	})
	return clusters, nil
}
