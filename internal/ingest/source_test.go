package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestVariant(t *testing.T) {
	tests := []struct {
		in     string
		prefix string
	}{
		{"lg365", "/data"},
		{"monthly", "/data/monthly"},
		{"", "/data"},
		{"bogus", "/data"},
	}
	for _, tt := range tests {
		if got := ParseVariant(tt.in).PathPrefix(); got != tt.prefix {
			t.Errorf("ParseVariant(%q).PathPrefix() = %q, want %q", tt.in, got, tt.prefix)
		}
	}
}

func TestDirFetcher(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "data", "monthly")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ProductsFile), []byte("name\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewDirFetcher(root, VariantMonthly)
	data, err := f.Fetch(context.Background(), ProductsFile)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "name\nx\n" {
		t.Errorf("data = %q", data)
	}

	_, err = NewDirFetcher(root, VariantLG365).Fetch(context.Background(), ProductsFile)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func fastRetry(maxRetries int) HTTPConfig {
	return HTTPConfig{
		Timeout:    time.Second,
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/lg_g.csv" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("name\nLG Styler\n"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, VariantLG365, fastRetry(2))
	data, err := f.Fetch(context.Background(), ProductsFile)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "name\nLG Styler\n" {
		t.Errorf("data = %q", data)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestHTTPFetcher_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL, VariantLG365, fastRetry(2)).Fetch(context.Background(), PostsRawFile)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestHTTPFetcher_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL, VariantMonthly, fastRetry(2)).Fetch(context.Background(), ScenariosFile)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestNewFetcher_PicksBackend(t *testing.T) {
	if _, ok := NewFetcher("https://cdn.example.com", VariantLG365, HTTPConfig{}).(*HTTPFetcher); !ok {
		t.Error("https source should use HTTPFetcher")
	}
	if _, ok := NewFetcher("./public", VariantLG365, HTTPConfig{}).(*DirFetcher); !ok {
		t.Error("path source should use DirFetcher")
	}
}
