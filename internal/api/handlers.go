package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/pipeline"
)

// filterPosts applies the ?cluster= filter. "assigned" and "unassigned"
// select by presence of a cluster; anything else is a cluster id.
func filterPosts(posts []model.Post, cluster string) []model.Post {
	if cluster == "" {
		return posts
	}
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		switch cluster {
		case "assigned":
			if p.ClusterID == "" {
				continue
			}
		case "unassigned":
			if p.ClusterID != "" {
				continue
			}
		default:
			if p.ClusterID != cluster {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func handleListPosts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts := filterPosts(deps.Dashboard.Posts(), r.URL.Query().Get("cluster"))
		if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q"))); q != "" {
			matched := make([]model.Post, 0, len(posts))
			for _, p := range posts {
				if strings.Contains(strings.ToLower(p.Title), q) {
					matched = append(matched, p)
				}
			}
			posts = matched
		}
		if posts == nil {
			posts = []model.Post{}
		}
		writeJSON(w, posts)
	}
}

type assignRequest struct {
	ClusterID string `json:"cluster_id"`
}

func handleAssignPost(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req assignRequest
		if !decodeBody(w, r, &req) {
			return
		}
		p, err := deps.Dashboard.AssignPostCluster(chi.URLParam(r, "id"), req.ClusterID)
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, p)
	}
}

func handleToggleHighlight(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Dashboard.TogglePostHighlight(chi.URLParam(r, "id"))
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, p)
	}
}

func handleListClusters(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clusters := deps.Dashboard.Clusters()
		if clusters == nil {
			clusters = []model.Cluster{}
		}
		writeJSON(w, clusters)
	}
}

// clusteringRequest.Count is a pointer so an explicit 0 is distinguishable
// from an omitted count.
type clusteringRequest struct {
	Count      *int   `json:"count"`
	Strictness string `json:"strictness"`
}

type clusteringResponse struct {
	Clusters      []model.Cluster `json:"clusters"`
	AssignedPosts int             `json:"assigned_posts"`
}

const defaultClusterCount = 8

func handleRunClustering(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clusteringRequest
		if !decodeBody(w, r, &req) {
			return
		}
		count := defaultClusterCount
		if req.Count != nil {
			count = *req.Count
		}
		strictness, err := pipeline.ParseStrictness(req.Strictness)
		if err != nil {
			writeDashboardError(w, err)
			return
		}

		res, err := deps.Dashboard.RunClustering(r.Context(), count, strictness)
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "clustering cancelled: %v", err)
			return
		}
		assigned := 0
		for _, p := range res.Posts {
			if p.ClusterID != "" {
				assigned++
			}
		}
		clusters := res.Clusters
		if clusters == nil {
			clusters = []model.Cluster{}
		}
		writeJSON(w, clusteringResponse{Clusters: clusters, AssignedPosts: assigned})
	}
}

func handleListProducts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products := deps.Dashboard.Products()
		if r.URL.Query().Get("active") == "true" {
			active := make([]model.Product, 0, len(products))
			for _, p := range products {
				if p.Active {
					active = append(active, p)
				}
			}
			products = active
		}
		if products == nil {
			products = []model.Product{}
		}
		writeJSON(w, products)
	}
}

func handleAddProduct(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in pipeline.ProductInput
		if !decodeBody(w, r, &in) {
			return
		}
		p, err := deps.Dashboard.AddProduct(in)
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, p)
	}
}

func handleUpdateProduct(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch pipeline.ProductPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		p, err := deps.Dashboard.UpdateProduct(chi.URLParam(r, "id"), patch)
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, p)
	}
}

func handleListScenarios(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scenarios := deps.Dashboard.Scenarios()
		status := r.URL.Query().Get("status")
		cluster := r.URL.Query().Get("cluster")
		if status != "" || cluster != "" {
			filtered := make([]model.Scenario, 0, len(scenarios))
			for _, s := range scenarios {
				if status != "" && string(s.Status) != status {
					continue
				}
				if cluster != "" && s.ClusterID != cluster {
					continue
				}
				filtered = append(filtered, s)
			}
			scenarios = filtered
		}
		if scenarios == nil {
			scenarios = []model.Scenario{}
		}
		writeJSON(w, scenarios)
	}
}

type generateRequest struct {
	ClusterIDs []string `json:"cluster_ids"`
}

func handleGenerateScenarios(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		generated, err := deps.Dashboard.GenerateScenarios(r.Context(), req.ClusterIDs)
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "scenario generation cancelled: %v", err)
			return
		}
		if generated == nil {
			generated = []model.Scenario{}
		}
		writeJSON(w, generated)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func handleUpdateScenarioStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if !decodeBody(w, r, &req) {
			return
		}
		status, err := model.ParseStatus(req.Status)
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		id := chi.URLParam(r, "id")
		if err := deps.Dashboard.UpdateScenarioStatus(id, status); err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, map[string]string{"scenario_id": id, "status": string(status)})
	}
}

func handleCuratedScenarios(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		curated, err := deps.Dashboard.CuratedScenarios()
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, curated)
	}
}

func handleHookVariations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := deps.Dashboard.HookVariations(chi.URLParam(r, "id"))
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, v)
	}
}

func handleListLogs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 100, 1000)
		offset := parseIntParam(r, "offset", 0, 0)

		events, err := deps.Dashboard.Logs(limit, offset)
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, events)
	}
}

func handleGetLog(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := deps.Dashboard.Log(chi.URLParam(r, "id"))
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, e)
	}
}

func handleClearLogs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Dashboard.ClearLogs()
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, map[string]int64{"cleared": n})
	}
}

func handleListSearchQueries(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Dashboard.SearchQueries())
	}
}

type searchQueryRequest struct {
	Query string `json:"query"`
}

func handleAddSearchQuery(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchQueryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		q, err := deps.Dashboard.AddSearchQuery(req.Query)
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, q)
	}
}

type reloadResponse struct {
	Posts     int      `json:"posts"`
	Products  int      `json:"products"`
	Scenarios int      `json:"scenarios"`
	Clusters  int      `json:"clusters"`
	Fallbacks []string `json:"fallbacks"`
}

func handleReload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := deps.Dashboard.Initialize(r.Context())
		fallbacks := ds.Fallbacks
		if fallbacks == nil {
			fallbacks = []string{}
		}
		writeJSON(w, reloadResponse{
			Posts:     len(ds.Posts),
			Products:  len(ds.Products),
			Scenarios: len(ds.Scenarios),
			Clusters:  len(ds.Clusters),
			Fallbacks: fallbacks,
		})
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Dashboard.Stats())
	}
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ov, err := deps.Dashboard.Overview()
		if err != nil {
			writeDashboardError(w, err)
			return
		}
		writeJSON(w, ov)
	}
}
