// Package clustering assigns posts to a fixed keyword taxonomy and builds the
// resulting cluster summaries.
package clustering

import (
	"time"

	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/rules"
)

const (
	// topTermsLimit caps the keywords copied into a cluster summary.
	topTermsLimit = 6
	// representativeLimit caps the sample posts kept per cluster.
	representativeLimit = 5
)

// Result is the outcome of one assignment run.
type Result struct {
	Posts    []model.Post
	Clusters []model.Cluster
}

// Assigner matches posts against a taxonomy.
type Assigner struct {
	taxonomy []rules.ClusterDef
	now      func() time.Time
}

// NewAssigner creates an Assigner over the given taxonomy. A nil clock
// defaults to time.Now.
func NewAssigner(taxonomy []rules.ClusterDef, now func() time.Time) *Assigner {
	if now == nil {
		now = time.Now
	}
	return &Assigner{taxonomy: taxonomy, now: now}
}

// Assign labels posts with the best-scoring definition among the first k
// taxonomy entries and summarises every definition that received posts.
//
// The input slice is never modified; Result.Posts is a fresh copy. Posts that
// score zero everywhere keep whatever cluster fields they already had.
func (a *Assigner) Assign(posts []model.Post, k int) Result {
	selected := a.selected(k)

	out := make([]model.Post, len(posts))
	copy(out, posts)

	for i := range out {
		if def, ok := bestMatch(selected, rules.Lower(out[i].DetectedTerms)); ok {
			out[i].ClusterID = def.ID
			out[i].ClusterLabel = def.Label
		}
	}

	createdAt := a.now().UTC()
	clusters := make([]model.Cluster, 0, len(selected))
	for _, def := range selected {
		var members []model.Post
		for _, p := range out {
			if p.ClusterID == def.ID {
				members = append(members, p)
			}
		}
		if len(members) == 0 {
			continue
		}

		reps := members
		if len(reps) > representativeLimit {
			reps = reps[:representativeLimit]
		}
		top := def.Keywords
		if len(top) > topTermsLimit {
			top = top[:topTermsLimit]
		}

		clusters = append(clusters, model.Cluster{
			ID:                  def.ID,
			Label:               def.Label,
			TopTerms:            append([]string(nil), top...),
			PostCount:           len(members),
			RepresentativePosts: append([]model.Post(nil), reps...),
			CreatedAt:           createdAt,
		})
	}

	return Result{Posts: out, Clusters: clusters}
}

func (a *Assigner) selected(k int) []rules.ClusterDef {
	if k <= 0 {
		return nil
	}
	if k > len(a.taxonomy) {
		k = len(a.taxonomy)
	}
	return a.taxonomy[:k]
}

// Score counts the definition keywords that match at least one term.
// Terms must already be lower-cased.
func Score(def rules.ClusterDef, terms []string) int {
	score := 0
	for _, kw := range def.Keywords {
		for _, term := range terms {
			if rules.MatchTerm(term, kw) {
				score++
				break
			}
		}
	}
	return score
}

// bestMatch returns the first definition with the strictly highest positive
// score. Later definitions must exceed, not equal, the running best.
func bestMatch(defs []rules.ClusterDef, terms []string) (rules.ClusterDef, bool) {
	var best rules.ClusterDef
	max := 0
	for _, def := range defs {
		if s := Score(def, terms); s > max {
			max = s
			best = def
		}
	}
	return best, max > 0
}
