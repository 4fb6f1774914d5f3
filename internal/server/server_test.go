package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phishguard/phishguard/internal/history"
	"github.com/phishguard/phishguard/internal/logging"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/scan"
)

type stubScanner struct {
	verdict *model.Verdict
	err     error
	lastURL string
}

func (s *stubScanner) Scan(_ context.Context, raw string) (*model.Verdict, error) {
	s.lastURL = raw
	if s.err != nil {
		return nil, s.err
	}
	return s.verdict, nil
}

type stubHistory struct {
	entries []history.Entry
	err     error
}

func (s *stubHistory) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.entries) {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func newTestServer(t *testing.T, sc Scanner, h HistoryReader) *Server {
	t.Helper()
	srv, err := NewServer(Config{Logger: logging.NewNopLogger()}, sc, h, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func postScan(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHandleScan_OK(t *testing.T) {
	t.Parallel()
	sc := &stubScanner{verdict: &model.Verdict{
		ID:         "abc",
		URL:        "https://example.com",
		Result:     model.ResultSafe,
		Confidence: 92,
		RiskScore:  12,
		ThreatType: model.ThreatUnknown,
	}}
	srv := newTestServer(t, sc, nil)

	rec := postScan(t, srv, `{"url":"https://example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	var got model.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Result != model.ResultSafe || got.RiskScore != 12 {
		t.Errorf("verdict = %+v", got)
	}
	if sc.lastURL != "https://example.com" {
		t.Errorf("scanner received %q", sc.lastURL)
	}
}

func TestHandleScan_InvalidURLIs400(t *testing.T) {
	t.Parallel()
	sc := &stubScanner{err: fmt.Errorf("%w: empty url", scan.ErrInvalidURL)}
	srv := newTestServer(t, sc, nil)

	rec := postScan(t, srv, `{"url":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Error("error body missing the error field")
	}
}

func TestHandleScan_MalformedJSONIs400(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubScanner{verdict: &model.Verdict{}}, nil)

	rec := postScan(t, srv, `{"url": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleScan_OversizedBodyIs413(t *testing.T) {
	t.Parallel()
	sc := &stubScanner{verdict: &model.Verdict{}}
	srv := newTestServer(t, sc, nil)

	body := `{"url":"https://example.com/` + strings.Repeat("a", maxScanBodyBytes) + `"}`
	rec := postScan(t, srv, body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if sc.lastURL != "" {
		t.Errorf("scanner ran on an oversized request: %q", sc.lastURL)
	}
}

func TestHandleScan_InternalErrorIs500(t *testing.T) {
	t.Parallel()
	sc := &stubScanner{err: errors.New("probe registry corrupted")}
	srv := newTestServer(t, sc, nil)

	rec := postScan(t, srv, `{"url":"https://example.com"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "registry corrupted") {
		t.Error("internal error detail leaked to the client")
	}
}

func TestHandleHistory(t *testing.T) {
	t.Parallel()
	h := &stubHistory{entries: []history.Entry{
		{ID: "a", URL: "https://a.example", Result: model.ResultSafe, ScannedAt: time.Now()},
		{ID: "b", URL: "https://b.example", Result: model.ResultPhishing, ScannedAt: time.Now()},
	}}
	srv := newTestServer(t, &stubScanner{verdict: &model.Verdict{}}, h)

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var entries []history.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "a" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestHandleHistory_NoStoreAnswersEmpty(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubScanner{verdict: &model.Verdict{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty list", got)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubScanner{verdict: &model.Verdict{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCORSHeadersPresent(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubScanner{verdict: &model.Verdict{}}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/scan", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing Access-Control-Allow-Origin")
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("missing Access-Control-Allow-Methods")
	}
}
