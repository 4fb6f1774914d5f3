// Package urlutil derives the canonical identity of a URL. The canonical
// form is the cache key and the probe input, so it must be deterministic and
// idempotent under re-normalization.
package urlutil

import (
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/phishguard/phishguard/internal/model"
)

// Options controls canonicalization policy.
type Options struct {
	// DefaultScheme is assumed for schemeless input ("https" in production,
	// matching what the browser-facing product promises).
	DefaultScheme string `yaml:"default_scheme"`

	// StripTrailingSlash treats /a and /a/ the same (root "/" is kept).
	StripTrailingSlash bool `yaml:"strip_trailing_slash"`
}

// DefaultOptions returns the production canonicalization policy.
func DefaultOptions() Options {
	return Options{
		DefaultScheme:      "https",
		StripTrailingSlash: true,
	}
}

// Errors returned for structurally invalid input.
var (
	ErrEmptyURL    = &url.Error{Op: "canonicalize", URL: "", Err: &errStr{"empty url"}}
	ErrMissingHost = &url.Error{Op: "canonicalize", URL: "", Err: &errStr{"missing host"}}
	ErrBadScheme   = &url.Error{Op: "canonicalize", URL: "", Err: &errStr{"unsupported scheme"}}
)

type errStr struct{ s string }

func (e *errStr) Error() string { return e.s }

// Canonicalize returns a deterministic canonical URL string or an error.
// It lowercases scheme/host, converts IDN hosts to punycode, drops default
// ports, credentials and fragments, cleans the path and sorts query params.
func Canonicalize(raw string, opts Options) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}

	if opts.DefaultScheme != "" && !strings.Contains(raw, "://") {
		raw = opts.DefaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", ErrMissingHost
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrBadScheme
	}

	// Lowercase host and convert IDN -> punycode.
	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}

	// Preserve non-default port only.
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	} else if port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}

	// Drop userinfo (credentials).
	u.User = nil

	cleanPath := path.Clean(u.Path)
	if cleanPath == "." {
		cleanPath = "/"
	}
	if opts.StripTrailingSlash && len(cleanPath) > 1 {
		cleanPath = strings.TrimRight(cleanPath, "/")
		if cleanPath == "" {
			cleanPath = "/"
		}
	}
	u.Path = cleanPath

	u.Fragment = ""

	// Sort query keys and values for deterministic encoding.
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := url.Values{}
	for _, k := range keys {
		values := q[k]
		sort.Strings(values)
		for _, v := range values {
			ordered.Add(k, v)
		}
	}
	u.RawQuery = ordered.Encode()

	return u.String(), nil
}

// Normalize canonicalizes raw input and builds the Target passed to probes.
func Normalize(raw string, opts Options) (*model.Target, error) {
	canonical, err := Canonicalize(raw, opts)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(canonical)
	if err != nil {
		return nil, err
	}

	host := u.Hostname()
	t := &model.Target{
		Raw:        raw,
		Normalized: canonical,
		URL:        u,
		Host:       host,
	}

	if net.ParseIP(host) == nil {
		if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			t.RegistrableDomain = d
		}
	}
	return t, nil
}

// RegistrableDomain returns the eTLD+1 for a hostname, or the hostname
// itself when the public suffix list cannot decide (IP literals, localhost).
func RegistrableDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}
