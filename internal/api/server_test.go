package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/signalboard/internal/ingest"
	"github.com/kalambet/signalboard/internal/metrics"
	"github.com/kalambet/signalboard/internal/model"
	"github.com/kalambet/signalboard/internal/pipeline"
	"github.com/kalambet/signalboard/internal/recommend"
	"github.com/kalambet/signalboard/internal/rules"
	"github.com/kalambet/signalboard/internal/storage"
)

const testToken = "test-token-12345"

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type staticLoader struct{ ds ingest.Dataset }

func (l staticLoader) LoadAll(context.Context) ingest.Dataset { return l.ds }

type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

func newTestDashboard(t *testing.T) *pipeline.Dashboard {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tables := rules.MustDefault()
	clock := func() time.Time { return fixedNow }
	loader := staticLoader{ds: ingest.Dataset{
		Posts:     ingest.FallbackPosts(),
		Products:  ingest.FallbackProducts(),
		Scenarios: ingest.FallbackScenarios(fixedNow),
		Clusters:  []model.Cluster{},
	}}
	d := pipeline.New(tables, loader, store,
		pipeline.WithDelays(0, 0),
		pipeline.WithClock(clock),
		pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		pipeline.WithEngine(recommend.NewEngine(tables, recommend.WithRand(zeroRand{}), recommend.WithClock(clock))),
	)
	d.Initialize(context.Background())
	return d
}

func setupHandler(t *testing.T, token string) (http.Handler, *pipeline.Dashboard, *metrics.Metrics) {
	t.Helper()
	d := newTestDashboard(t)
	m := metrics.New()
	return NewHandler(Deps{Dashboard: d, Metrics: m, Token: token}), d, m
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func serve(t *testing.T, h http.Handler, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(method, url, body, testToken))
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v; body = %s", err, rr.Body.String())
	}
	return v
}

func TestHealth_NoAuth(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"status":"ok"}` {
		t.Errorf("body = %s", got)
	}
}

func TestAuth(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)

	for _, token := range []string{"", "wrong"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, authReq(http.MethodGet, "/posts", "", token))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, rr.Code)
		}
	}

	open, _, _ := setupHandler(t, "")
	rr := httptest.NewRecorder()
	open.ServeHTTP(rr, authReq(http.MethodGet, "/posts", "", ""))
	if rr.Code != http.StatusOK {
		t.Errorf("empty token: status = %d, want 200", rr.Code)
	}
}

func TestClusteringAndScenarioFlow(t *testing.T) {
	h, d, _ := setupHandler(t, testToken)

	rr := serve(t, h, http.MethodPost, "/clustering", `{"count":8,"strictness":"strict"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("clustering status = %d; body = %s", rr.Code, rr.Body.String())
	}
	res := decode[clusteringResponse](t, rr)
	if len(res.Clusters) == 0 || res.AssignedPosts != 8 {
		t.Fatalf("clustering = %d clusters, %d assigned", len(res.Clusters), res.AssignedPosts)
	}

	rr = serve(t, h, http.MethodGet, "/clusters", "")
	clusters := decode[[]model.Cluster](t, rr)
	if len(clusters) != len(res.Clusters) {
		t.Errorf("GET /clusters = %d, want %d", len(clusters), len(res.Clusters))
	}

	rr = serve(t, h, http.MethodPost, "/scenarios/generate", `{"cluster_ids":["C001"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("generate status = %d; body = %s", rr.Code, rr.Body.String())
	}
	generated := decode[[]model.Scenario](t, rr)
	if len(generated) != 2 {
		t.Fatalf("generated = %d, want 2", len(generated))
	}
	if n := len(d.Scenarios()); n != 3 {
		t.Errorf("scenarios = %d, want 3", n)
	}

	rr = serve(t, h, http.MethodPatch, "/scenarios/scenario-2/status", `{"status":"Published"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status update = %d; body = %s", rr.Code, rr.Body.String())
	}
	rr = serve(t, h, http.MethodGet, "/scenarios?status=Published", "")
	published := decode[[]model.Scenario](t, rr)
	if len(published) != 1 || published[0].ID != "scenario-2" {
		t.Errorf("published = %+v", published)
	}

	rr = serve(t, h, http.MethodGet, "/logs?limit=3", "")
	logs := decode[[]model.LogEvent](t, rr)
	var actions []string
	for _, e := range logs {
		actions = append(actions, e.Action)
	}
	want := []string{"Update Scenario Status", "Generate Scenarios", "Run Clustering"}
	if diff := cmp.Diff(want, actions); diff != "" {
		t.Errorf("log actions mismatch (-want +got):\n%s", diff)
	}
}

func TestClustering_EmptyBodyUsesDefaults(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)
	rr := serve(t, h, http.MethodPost, "/clustering", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
}

func TestClustering_ZeroCountSelectsNothing(t *testing.T) {
	h, d, _ := setupHandler(t, testToken)
	before := d.Posts()

	rr := serve(t, h, http.MethodPost, "/clustering", `{"count":0}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"clusters":[]`) {
		t.Errorf("body = %s, want empty clusters array", rr.Body.String())
	}
	if diff := cmp.Diff(before, d.Posts()); diff != "" {
		t.Errorf("posts changed (-before +after):\n%s", diff)
	}
	if n := len(d.Clusters()); n != 0 {
		t.Errorf("clusters = %d, want 0", n)
	}

	rr = serve(t, h, http.MethodPost, "/clustering", `{"count":-3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("negative count status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if res := decode[clusteringResponse](t, rr); len(res.Clusters) != 0 {
		t.Errorf("negative count clusters = %d, want 0", len(res.Clusters))
	}
}

func TestClustering_BadStrictness(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)
	rr := serve(t, h, http.MethodPost, "/clustering", `{"strictness":"extreme"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestGenerateScenarios_Selection(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		all   bool
		wantN int
	}{
		{name: "omitted selects all", body: `{}`, all: true},
		{name: "empty body selects all", body: ``, all: true},
		{name: "empty list selects none", body: `{"cluster_ids":[]}`, wantN: 0},
		{name: "explicit list", body: `{"cluster_ids":["C001"]}`, wantN: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, d, _ := setupHandler(t, testToken)
			serve(t, h, http.MethodPost, "/clustering", `{"count":8,"strictness":"strict"}`)

			rr := serve(t, h, http.MethodPost, "/scenarios/generate", tt.body)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
			}
			got := decode[[]model.Scenario](t, rr)
			if !tt.all {
				if len(got) != tt.wantN {
					t.Errorf("generated = %d, want %d", len(got), tt.wantN)
				}
				return
			}
			seen := map[string]bool{}
			for _, sc := range got {
				seen[sc.ClusterID] = true
			}
			if !seen["C001"] || len(got) < 2 {
				t.Errorf("generated = %d across %v, want every cluster including C001", len(got), seen)
			}
			if len(seen) > len(d.Clusters()) {
				t.Errorf("scenarios span %d clusters, only %d exist", len(seen), len(d.Clusters()))
			}
		})
	}
}

func TestUpdateScenarioStatus_Errors(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)

	rr := serve(t, h, http.MethodPatch, "/scenarios/scenario-1/status", `{"status":"Archived"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad status: code = %d, want 400", rr.Code)
	}
	rr = serve(t, h, http.MethodPatch, "/scenarios/nope/status", `{"status":"Selected"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown id: code = %d, want 404", rr.Code)
	}
	rr = serve(t, h, http.MethodPatch, "/scenarios/scenario-1/status", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad body: code = %d, want 400", rr.Code)
	}

	var body map[string]map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if body["error"]["type"] != "invalid_request_error" {
		t.Errorf("error body = %v", body)
	}
}

func TestProducts(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)

	rr := serve(t, h, http.MethodGet, "/products?active=true", "")
	if n := len(decode[[]model.Product](t, rr)); n != 9 {
		t.Errorf("active products = %d, want 9", n)
	}

	rr = serve(t, h, http.MethodPost, "/products", `{"name":"LG Pet Dryer","category":"Pet Care","tags":["#펫"]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	added := decode[model.Product](t, rr)
	if !added.Active || !strings.HasPrefix(added.ID, "prod-") {
		t.Errorf("added = %+v", added)
	}

	rr = serve(t, h, http.MethodPost, "/products", `{"name":"No Category"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing category: code = %d, want 400", rr.Code)
	}

	rr = serve(t, h, http.MethodPatch, "/products/prod-10", `{"active":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if p := decode[model.Product](t, rr); !p.Active {
		t.Error("patch did not activate product")
	}

	rr = serve(t, h, http.MethodPatch, "/products/prod-999", `{"active":true}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown product: code = %d, want 404", rr.Code)
	}
}

func TestPosts_AssignAndFilter(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)
	serve(t, h, http.MethodPost, "/clustering", `{"count":8}`)

	rr := serve(t, h, http.MethodPatch, "/posts/reddit-1/cluster", `{"cluster_id":"C002"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("assign status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if p := decode[model.Post](t, rr); p.ClusterLabel != "Pet Anxiety & Behavior" {
		t.Errorf("label = %q", p.ClusterLabel)
	}

	rr = serve(t, h, http.MethodGet, "/posts?cluster=C002", "")
	for _, p := range decode[[]model.Post](t, rr) {
		if p.ClusterID != "C002" {
			t.Errorf("filter leaked %s (%s)", p.ID, p.ClusterID)
		}
	}

	rr = serve(t, h, http.MethodPost, "/posts/reddit-1/highlight", "")
	if p := decode[model.Post](t, rr); !p.Highlighted {
		t.Error("highlight not toggled")
	}

	rr = serve(t, h, http.MethodPatch, "/posts/reddit-1/cluster", `{"cluster_id":"C999"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown cluster: code = %d, want 404", rr.Code)
	}
}

func TestSearchQueries(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)

	rr := serve(t, h, http.MethodPost, "/search-queries", `{"query":"cat litter"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	rr = serve(t, h, http.MethodGet, "/search-queries", "")
	qs := decode[[]model.SearchQuery](t, rr)
	if len(qs) != 9 || qs[8].Query != "cat litter" {
		t.Errorf("queries = %+v", qs)
	}

	rr = serve(t, h, http.MethodPost, "/search-queries", `{"query":""}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty query: code = %d, want 400", rr.Code)
	}
}

func TestClearLogs(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)

	rr := serve(t, h, http.MethodDelete, "/logs", "")
	if got := decode[map[string]int64](t, rr); got["cleared"] != 1 {
		t.Errorf("cleared = %v, want the init log", got)
	}
	rr = serve(t, h, http.MethodGet, "/logs", "")
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("logs after clear = %s", got)
	}
}

func TestGetLog(t *testing.T) {
	h, d, _ := setupHandler(t, testToken)
	logs, err := d.Logs(1, 0)
	if err != nil || len(logs) != 1 {
		t.Fatalf("Logs = %v, %v", logs, err)
	}

	rr := serve(t, h, http.MethodGet, "/logs/"+logs[0].ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	if diff := cmp.Diff(logs[0], decode[model.LogEvent](t, rr)); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}

	rr = serve(t, h, http.MethodGet, "/logs/missing", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing log status = %d, want 404", rr.Code)
	}
}

func TestReload(t *testing.T) {
	h, d, _ := setupHandler(t, testToken)
	d.SetPosts(nil)

	rr := serve(t, h, http.MethodPost, "/reload", "")
	res := decode[reloadResponse](t, rr)
	if res.Posts != 8 || res.Products != 10 || res.Fallbacks == nil {
		t.Errorf("reload = %+v", res)
	}
	if len(d.Posts()) != 8 {
		t.Errorf("posts after reload = %d", len(d.Posts()))
	}
}

func TestHookVariationsRoute(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)
	rr := serve(t, h, http.MethodGet, "/scenarios/scenario-1/hooks", "")
	v := decode[model.HookVariations](t, rr)
	if !strings.HasSuffix(v.Brand, "LG ThinQ로 스마트하게 해결하세요.") {
		t.Errorf("brand variation = %q", v.Brand)
	}
}

func TestCuratedScenariosRoute(t *testing.T) {
	h, d, _ := setupHandler(t, testToken)
	before := len(d.Scenarios())

	rr := serve(t, h, http.MethodGet, "/scenarios/curated", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	curated := decode[[]model.Scenario](t, rr)
	if len(curated) != 15 || curated[0].ID != "MPS001" || curated[0].CategoryDiversity != 3 {
		t.Fatalf("curated = %d scenarios, first %+v", len(curated), curated[0])
	}
	if n := len(d.Scenarios()); n != before {
		t.Errorf("working scenarios = %d, want untouched %d", n, before)
	}
}

func TestStatsAndStatus(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)

	rr := serve(t, h, http.MethodGet, "/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rr.Code)
	}
	rr = serve(t, h, http.MethodGet, "/status", "")
	ov := decode[pipeline.Overview](t, rr)
	if ov.Posts != 8 || ov.SearchQueries != 8 || ov.Logs != 1 {
		t.Errorf("overview = %+v", ov)
	}
}

func TestExports(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)
	serve(t, h, http.MethodPost, "/clustering", `{"count":8}`)

	rr := serve(t, h, http.MethodGet, "/export/posts.csv", "")
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="reddit_cluster_results.csv"` {
		t.Errorf("disposition = %q", cd)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "\uFEFFNo,") {
		t.Errorf("missing BOM or header: %q", body[:min(len(body), 20)])
	}
	if lines := strings.Count(body, "\n"); lines != 9 {
		t.Errorf("lines = %d, want header + 8", lines)
	}

	rr = serve(t, h, http.MethodGet, "/export/posts.csv?cluster=C001", "")
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="reddit_cluster_C001.csv"` {
		t.Errorf("cluster disposition = %q", cd)
	}

	rr = serve(t, h, http.MethodGet, "/export/recommendations.csv", "")
	if !strings.HasPrefix(rr.Body.String(), "\uFEFFcluster_id,cluster_label,") {
		t.Errorf("recommendations body = %q", rr.Body.String())
	}

	rr = serve(t, h, http.MethodGet, "/export/logs.csv", "")
	if !strings.Contains(rr.Body.String(), "Run Clustering") {
		t.Errorf("logs export = %q", rr.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	h, _, _ := setupHandler(t, testToken)
	serve(t, h, http.MethodGet, "/clusters", "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	want := `signalboard_http_requests_total{method="GET",route="/clusters",status="200"} 1`
	if !strings.Contains(rr.Body.String(), want) {
		t.Errorf("exposition missing %q", want)
	}
}
