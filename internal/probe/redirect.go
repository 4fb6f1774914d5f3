package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/phishguard/phishguard/internal/logging"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/urlutil"
)

// RedirectProbe walks the HTTP redirect chain hop by hop, up to the
// configured limit, recording each hop's source URL and status code. It
// terminates on cycles and flags chains that leave the original domain.
type RedirectProbe struct {
	cfg    Config
	logger logging.Logger
	client *http.Client
}

// NewRedirectProbe builds the redirect walker. It owns a client with
// redirect following disabled so every hop is observed.
func NewRedirectProbe(cfg Config, logger logging.Logger) *RedirectProbe {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RedirectProbe{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "probe-redirect"}),
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (p *RedirectProbe) Kind() model.ProbeKind { return model.KindRedirect }

func (p *RedirectProbe) Run(ctx context.Context, target *model.Target) (model.Payload, error) {
	hopLimit := p.cfg.RedirectHopLimit
	if hopLimit <= 0 {
		hopLimit = 10
	}

	details := &model.RedirectDetails{Hops: []model.Hop{}}
	seen := map[string]bool{}
	current := target.Normalized

	for hop := 0; hop <= hopLimit; hop++ {
		if seen[current] {
			details.Cycle = true
			break
		}
		seen[current] = true

		status, location, err := p.head(ctx, current)
		if err != nil {
			if len(details.Hops) == 0 {
				return nil, fmt.Errorf("fetch %s: %w", current, err)
			}
			// A broken tail still leaves a usable partial chain.
			p.logger.Debug("redirect chain broke mid-walk",
				logging.Field{Key: "url", Value: current},
				logging.Field{Key: "error", Value: err.Error()})
			break
		}

		details.Hops = append(details.Hops, model.Hop{Source: current, Code: status})

		if status < 300 || status >= 400 || location == "" {
			break
		}

		next, err := resolveLocation(current, location)
		if err != nil {
			break
		}
		current = next
	}

	if n := len(details.Hops); n > 0 {
		final := details.Hops[n-1].Source
		if u, err := url.Parse(final); err == nil && u.Hostname() != "" {
			details.FinalHost = urlutil.RegistrableDomain(strings.ToLower(u.Hostname()))
			details.FinalHostMismatch = target.RegistrableDomain != "" &&
				details.FinalHost != target.RegistrableDomain
		}
	}

	return details, nil
}

// head issues a HEAD request, falling back to GET when the target rejects
// HEAD. Bodies are drained and closed so connections are reused and never
// leaked on cancellation.
func (p *RedirectProbe) head(ctx context.Context, rawURL string) (status int, location string, err error) {
	resp, err := p.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, "", err
	}
	if resp.StatusCode == http.StatusMethodNotAllowed {
		discard(resp)
		resp, err = p.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return 0, "", err
		}
	}
	defer discard(resp)
	return resp.StatusCode, resp.Header.Get("Location"), nil
}

func (p *RedirectProbe) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}
	return p.client.Do(req)
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

func resolveLocation(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	loc, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(loc).String(), nil
}
