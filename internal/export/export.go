package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/kalambet/signalboard/internal/model"
)

// Column headers. The posts header doubles as the ingestion alias set, so an
// exported file can be loaded back unchanged.
var (
	PostsHeader = []string{"No", "Reddit 스레드 제목", "Subreddit", "링크", "cluster_id", "cluster_label", "cluster_top_terms"}

	RecommendationsHeader = []string{
		"cluster_id",
		"cluster_label",
		"cluster_top_terms",
		"seed_queries",
		"recommended_products",
		"content_topic_ideas",
		"mapping_rationale",
	}

	LogsHeader = []string{"Timestamp", "Actor", "Action", "Entity", "Detail"}
)

// File names offered for download.
const (
	PostsFilename           = "reddit_cluster_results.csv"
	RecommendationsFilename = "cluster_to_lg_recommendations.csv"
	LogsFilename            = "system_logs.csv"
)

const seedTermLimit = 3

// Posts builds the posts-with-cluster export.
func Posts(posts []model.Post) Table {
	rows := make([][]string, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, []string{
			strconv.Itoa(p.No),
			p.Title,
			p.Channel,
			p.URL,
			p.ClusterID,
			p.ClusterLabel,
			strings.Join(p.DetectedTerms, ","),
		})
	}
	return Table{Header: PostsHeader, Rows: rows}
}

// Recommendations builds one row per cluster from the scenarios that belong
// to it. Clusters without scenarios still get a row with empty product,
// topic and rationale cells.
func Recommendations(clusters []model.Cluster, scenarios []model.Scenario) Table {
	rows := make([][]string, 0, len(clusters))
	for _, c := range clusters {
		var (
			names     []string
			seen      = make(map[string]bool)
			titles    []string
			rationale string
		)
		for _, s := range scenarios {
			if s.ClusterID != c.ID {
				continue
			}
			if titles == nil {
				rationale = s.Rationale
			}
			titles = append(titles, s.Title)
			for _, p := range s.Products {
				if !seen[p.Name] {
					seen[p.Name] = true
					names = append(names, p.Name)
				}
			}
		}

		seeds := c.TopTerms
		if len(seeds) > seedTermLimit {
			seeds = seeds[:seedTermLimit]
		}
		rows = append(rows, []string{
			c.ID,
			c.Label,
			strings.Join(c.TopTerms, ","),
			strings.Join(seeds, ","),
			strings.Join(names, ", "),
			strings.Join(titles, " | "),
			rationale,
		})
	}
	return Table{Header: RecommendationsHeader, Rows: rows}
}

// Logs builds the activity log export in the order given.
func Logs(events []model.LogEvent) Table {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.Actor),
			e.Action,
			e.Entity,
			e.Detail,
		})
	}
	return Table{Header: LogsHeader, Rows: rows}
}
