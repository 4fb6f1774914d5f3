// Package probe collects the five independent forensic signals about a URL:
// TLS certificate posture, WHOIS/domain registration, page content, the
// redirect chain and hosting/geo reputation. Each probe is a stateless,
// re-entrant collector behind one capability interface; the Coordinator runs
// them concurrently under a shared deadline and records every outcome,
// whether success, failure or timeout, as a value.
package probe

import (
	"context"

	"github.com/phishguard/phishguard/internal/model"
)

// Probe is the common capability implemented by all five collectors. Run
// must respect ctx cancellation and must not leak connections when the
// coordinator's deadline fires mid-flight. Errors are legitimate signals
// (no TLS, no WHOIS record); the coordinator records them as slot values.
type Probe interface {
	Kind() model.ProbeKind
	Run(ctx context.Context, target *model.Target) (model.Payload, error)
}

// Config tunes the five probes.
type Config struct {
	// RedirectHopLimit bounds the redirect-chain walk.
	RedirectHopLimit int `yaml:"redirect_hop_limit"`

	// MaxBodyBytes bounds fetched page bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	UserAgent string `yaml:"user_agent"`

	// Keywords is the credential-harvesting keyword set the content probe
	// scans page text for.
	Keywords []string `yaml:"keywords"`

	// Brands is the known-brand list for homoglyph detection.
	Brands []string `yaml:"brands"`

	// Blacklists are DNSBL zones queried per serving IP.
	Blacklists []string `yaml:"blacklists"`

	// DomainBlacklists are DNSBL zones queried per registrable domain.
	DomainBlacklists []string `yaml:"domain_blacklists"`

	// DNSResolver is the nameserver used for DNSBL queries.
	DNSResolver string `yaml:"dns_resolver"`

	// GeoEndpoint is the IP geolocation API base URL.
	GeoEndpoint string `yaml:"geo_endpoint"`

	// GeoRequestsPerMinute throttles geolocation lookups (the free tier of
	// ip-api.com rate-limits hard).
	GeoRequestsPerMinute int `yaml:"geo_requests_per_minute"`

	// HighRiskCountries marks hosting country codes that raise the geo flag.
	HighRiskCountries []string `yaml:"high_risk_countries"`
}

// DefaultConfig returns production probe settings. The keyword set follows
// the credential-harvesting list the product shipped with; all lists are
// configuration, not code.
func DefaultConfig() Config {
	return Config{
		RedirectHopLimit: 10,
		MaxBodyBytes:     1 << 20,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		Keywords: []string{
			"login", "verify", "account", "password", "urgent",
			"update", "suspend", "bank", "secure",
		},
		Brands: []string{
			"paypal", "apple", "amazon", "google", "microsoft",
			"netflix", "facebook", "instagram", "whatsapp", "chase",
		},
		Blacklists: []string{
			"zen.spamhaus.org",
			"bl.spamcop.net",
			"dnsbl.sorbs.net",
		},
		DomainBlacklists: []string{
			"dbl.spamhaus.org",
		},
		DNSResolver:          "1.1.1.1:53",
		GeoEndpoint:          "http://ip-api.com/json",
		GeoRequestsPerMinute: 40,
		HighRiskCountries:    []string{},
	}
}
