package webclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phishguard/phishguard/internal/logging"
)

func TestNetHTTPClient_Do_GET_ReturnsBody(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "hello")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "response body")
	}))
	defer ts.Close()

	client, err := NewNetHTTPClient(DefaultConfig(), logging.NewNopLogger(), ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	defer client.Close()

	resp, err := client.Get(context.Background(), ts.URL+"/test")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "response body" {
		t.Errorf("expected 'response body', got %q", resp.Body)
	}
	if resp.Headers.Get("X-Custom") != "hello" {
		t.Errorf("expected X-Custom header 'hello', got %q", resp.Headers.Get("X-Custom"))
	}
}

func TestNetHTTPClient_Do_TruncatesBody(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 4096))
	}))
	defer ts.Close()

	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 100
	client, err := NewNetHTTPClient(cfg, logging.NewNopLogger(), ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	defer client.Close()

	resp, err := client.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(resp.Body) != 100 {
		t.Errorf("expected 100-byte truncated body, got %d bytes", len(resp.Body))
	}
}

func TestNetHTTPClient_Do_SetsUserAgent(t *testing.T) {
	t.Parallel()
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	cfg := DefaultConfig()
	cfg.UserAgent = "phishguard-test"
	client, err := NewNetHTTPClient(cfg, logging.NewNopLogger(), ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	defer client.Close()

	if _, err := client.Get(context.Background(), ts.URL); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotUA != "phishguard-test" {
		t.Errorf("expected configured user agent, got %q", gotUA)
	}
}

func TestNetHTTPClient_Do_HonorsContextCancellation(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer ts.Close()

	client, err := NewNetHTTPClient(DefaultConfig(), logging.NewNopLogger(), ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := client.Get(ctx, ts.URL); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation took too long: %v", elapsed)
	}
}

func TestFactory_UnknownBackend(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Backend = "telnet"
	if _, err := New(cfg, logging.NewNopLogger()); err == nil {
		t.Fatal("expected error for unregistered backend")
	}
}

func TestFactory_DefaultBackendsRegistered(t *testing.T) {
	t.Parallel()
	names := ListBackends()
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	if !have[BackendNetHTTP] || !have[BackendChromedp] {
		t.Errorf("expected nethttp and chromedp registered, got %v", names)
	}
}
