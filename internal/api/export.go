package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kalambet/signalboard/internal/export"
)

func writeCSV(w http.ResponseWriter, filename string, t export.Table) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := t.WriteTo(w); err != nil {
		slog.Warn("writing csv export", "file", filename, "error", err)
	}
}

// handleExportPosts exports posts. With ?cluster=<id> only that cluster's
// posts are written, to reddit_cluster_<id>.csv.
func handleExportPosts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cluster := r.URL.Query().Get("cluster")
		posts := filterPosts(deps.Dashboard.Posts(), cluster)
		filename := export.PostsFilename
		if cluster != "" {
			filename = "reddit_cluster_" + sanitizeFilename(cluster) + ".csv"
		}
		writeCSV(w, filename, export.Posts(posts))
	}
}

func handleExportRecommendations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := export.Recommendations(deps.Dashboard.Clusters(), deps.Dashboard.Scenarios())
		writeCSV(w, export.RecommendationsFilename, t)
	}
}

func handleExportLogs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := deps.Dashboard.Logs(0, 0)
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeCSV(w, export.LogsFilename, export.Logs(events))
	}
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
