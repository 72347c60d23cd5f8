package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/signalboard/internal/api"
	"github.com/kalambet/signalboard/internal/config"
	"github.com/kalambet/signalboard/internal/ingest"
	"github.com/kalambet/signalboard/internal/metrics"
	"github.com/kalambet/signalboard/internal/pipeline"
	"github.com/kalambet/signalboard/internal/rules"
	"github.com/kalambet/signalboard/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the dashboard over MCP on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and dashboard status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

// app is the wired dashboard with the resources it owns.
type app struct {
	dashboard *pipeline.Dashboard
	metrics   *metrics.Metrics
	store     *storage.Store
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
}

func setupLogging(cfg config.Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

// buildApp wires rules, ingestion, storage, metrics and the dashboard, then
// loads the initial dataset.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	tables, err := loadRules(cfg.Pipeline.RulesFile)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	m := metrics.New()
	fetcher := ingest.NewFetcher(cfg.Data.Source, ingest.ParseVariant(cfg.Data.Variant), ingest.HTTPConfig{
		Timeout:    cfg.Ingest.FetchTimeout,
		MaxRetries: cfg.Ingest.MaxRetries,
	})
	loader := ingest.NewLoader(fetcher, tables,
		ingest.WithLogger(logger),
		ingest.WithFallbackRecorder(m),
	)

	dash := pipeline.New(tables, loader, store,
		pipeline.WithDelays(cfg.Pipeline.ClusteringDelay, cfg.Pipeline.ScenarioDelay),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger),
	)
	ds := dash.Initialize(ctx)
	if len(ds.Fallbacks) > 0 {
		logger.Warn("serving built-in data", "sources", ds.Fallbacks)
	}

	return &app{dashboard: dash, metrics: m, store: store}, nil
}

func loadRules(path string) (*rules.Tables, error) {
	if path == "" {
		return rules.Default()
	}
	tables, err := rules.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading rules from %s: %w", path, err)
	}
	return tables, nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "signalboard version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg, os.Stderr)
	if cfg.Server.Token == "" {
		slog.Warn("SIGNALBOARD_SERVER_TOKEN is not set; API is unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Ingest.RefreshInterval > 0 {
		go ingest.NewWorker(a.dashboard, cfg.Ingest.RefreshInterval).Run(ctx)
		slog.Info("periodic refresh enabled", "interval", cfg.Ingest.RefreshInterval)
	}

	handler := api.NewHandler(api.Deps{
		Dashboard: a.dashboard,
		Metrics:   a.metrics,
		Token:     cfg.Server.Token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "signalboard listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runMCP serves an in-process dashboard over stdio. stdout carries the
// protocol, so all logging goes to stderr.
func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Dashboard: a.dashboard,
		Version:   version,
	})
	slog.Info("MCP server started (stdio transport)")
	if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

type overview struct {
	Posts          int            `json:"posts"`
	AssignedPosts  int            `json:"assigned_posts"`
	Clusters       int            `json:"clusters"`
	Products       int            `json:"products"`
	ActiveProducts int            `json:"active_products"`
	Scenarios      int            `json:"scenarios"`
	ByStatus       map[string]int `json:"by_status"`
	SearchQueries  int            `json:"search_queries"`
	Logs           int            `json:"logs"`
}

func showStatus(ctx context.Context) error {
	client, err := newAPIClient()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
		return nil
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		return nil
	}
	printStatus("Server", "running at %s", client.baseURL)

	resp, err = client.get(ctx, "/status")
	if err != nil {
		return err
	}
	var ov overview
	if err := decodeJSON(resp, &ov); err != nil {
		return err
	}
	printOverview(ov)
	return nil
}

func printOverview(ov overview) {
	printStatus("Posts", "%d (%d assigned)", ov.Posts, ov.AssignedPosts)
	printStatus("Clusters", "%d", ov.Clusters)
	printStatus("Products", "%d (%d active)", ov.Products, ov.ActiveProducts)
	printStatus("Scenarios", "%d (new %d, selected %d, in production %d, published %d)",
		ov.Scenarios, ov.ByStatus["New"], ov.ByStatus["Selected"], ov.ByStatus["In Production"], ov.ByStatus["Published"])
	printStatus("Search queries", "%d", ov.SearchQueries)
	printStatus("Log events", "%d", ov.Logs)
}
