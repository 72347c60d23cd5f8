package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// ErrUnavailable is returned when a source cannot be read or answers with a
// non-success status.
var ErrUnavailable = errors.New("source unavailable")

// Variant selects which dataset directory is read.
type Variant string

const (
	VariantLG365   Variant = "lg365"
	VariantMonthly Variant = "monthly"
)

// ParseVariant accepts "lg365" and "monthly"; anything else falls back to
// lg365.
func ParseVariant(s string) Variant {
	if Variant(s) == VariantMonthly {
		return VariantMonthly
	}
	return VariantLG365
}

// PathPrefix is the dataset path under the source root.
func (v Variant) PathPrefix() string {
	if v == VariantMonthly {
		return "/data/monthly"
	}
	return "/data"
}

// Label is the display name of the variant.
func (v Variant) Label() string {
	if v == VariantMonthly {
		return "Monthly LG"
	}
	return "Life's Good 365 AI"
}

// Fetcher reads a named dataset file.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// DirFetcher reads files from a local directory tree.
type DirFetcher struct {
	root string
}

// NewDirFetcher reads <root><variant prefix>/<name>.
func NewDirFetcher(root string, variant Variant) *DirFetcher {
	return &DirFetcher{root: filepath.Join(root, filepath.FromSlash(variant.PathPrefix()))}
}

// Fetch implements Fetcher.
func (f *DirFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(f.root, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return data, nil
}

// HTTPConfig configures an HTTPFetcher.
type HTTPConfig struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Client     *http.Client
}

// HTTPFetcher reads files from a static file server. Transport errors,
// 5xx and 429 responses are retried with jittered backoff.
type HTTPFetcher struct {
	base     string
	client   *http.Client
	executor failsafe.Executor[*http.Response]
}

// NewHTTPFetcher reads <base><variant prefix>/<name>.
//
//nolint:bodyclose // *http.Response is a type parameter here
func NewHTTPFetcher(base string, variant Variant, cfg HTTPConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = max(2*time.Second, cfg.BaseDelay)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	retry := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(shouldRetry).
		ReturnLastFailure().
		Build()

	return &HTTPFetcher{
		base:     strings.TrimRight(base, "/") + variant.PathPrefix(),
		client:   client,
		executor: failsafe.With(retry),
	}
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	}
	return false
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	target := f.base + "/" + url.PathEscape(name)

	resp, err := f.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		if shouldRetry(resp, nil) {
			// Drain so the connection can be reused by the next attempt.
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrUnavailable, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrUnavailable, target, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrUnavailable, target, err)
	}
	return data, nil
}

// NewFetcher picks an HTTPFetcher for http(s) sources and a DirFetcher
// otherwise.
func NewFetcher(source string, variant Variant, cfg HTTPConfig) Fetcher {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewHTTPFetcher(source, variant, cfg)
	}
	return NewDirFetcher(source, variant)
}
