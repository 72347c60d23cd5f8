// Package api serves the dashboard over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/signalboard/internal/metrics"
	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/pipeline"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds dependencies for the HTTP handler.
type Deps struct {
	Dashboard *pipeline.Dashboard
	Metrics   *metrics.Metrics // optional
	Token     string           // empty disables auth
}

// NewHandler returns the dashboard REST API. /health and /metrics are
// always public.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(instrument(deps.Metrics))

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/posts", handleListPosts(deps))
		r.Patch("/posts/{id}/cluster", handleAssignPost(deps))
		r.Post("/posts/{id}/highlight", handleToggleHighlight(deps))

		r.Get("/clusters", handleListClusters(deps))
		r.Post("/clustering", handleRunClustering(deps))

		r.Get("/products", handleListProducts(deps))
		r.Post("/products", handleAddProduct(deps))
		r.Patch("/products/{id}", handleUpdateProduct(deps))

		r.Get("/scenarios", handleListScenarios(deps))
		r.Get("/scenarios/curated", handleCuratedScenarios(deps))
		r.Post("/scenarios/generate", handleGenerateScenarios(deps))
		r.Patch("/scenarios/{id}/status", handleUpdateScenarioStatus(deps))
		r.Get("/scenarios/{id}/hooks", handleHookVariations(deps))

		r.Get("/logs", handleListLogs(deps))
		r.Get("/logs/{id}", handleGetLog(deps))
		r.Delete("/logs", handleClearLogs(deps))

		r.Get("/search-queries", handleListSearchQueries(deps))
		r.Post("/search-queries", handleAddSearchQuery(deps))

		r.Post("/reload", handleReload(deps))
		r.Get("/stats", handleStats(deps))
		r.Get("/status", handleStatus(deps))

		r.Get("/export/posts.csv", handleExportPosts(deps))
		r.Get("/export/recommendations.csv", handleExportRecommendations(deps))
		r.Get("/export/logs.csv", handleExportLogs(deps))
	})

	return r
}

// instrument records request counts and latency by chi route pattern.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(r.Method, route, status, time.Since(start))
		})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// decodeBody reads a JSON body into v. An empty body leaves v unchanged.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

// writeDashboardError maps pipeline errors to HTTP statuses.
func writeDashboardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.Is(err, pipeline.ErrValidation), errors.Is(err, model.ErrInvalidStatus):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
