package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/time/rate"

	"github.com/phishguard/phishguard/internal/logging"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/webclient"
)

// hostResolver is the slice of net.Resolver the probe needs; tests swap in
// their own.
type hostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// ReputationProbe resolves the serving IP, geolocates it and counts DNSBL
// blacklist hits for both the IP and the registrable domain.
type ReputationProbe struct {
	cfg      Config
	logger   logging.Logger
	wc       webclient.WebClient
	resolver hostResolver
	dns      *dns.Client
	limiter  *rate.Limiter
	highRisk map[string]bool
}

// NewReputationProbe builds the network/geo-reputation probe. Geolocation
// calls share a limiter because the free ip-api tier throttles by source IP.
func NewReputationProbe(cfg Config, wc webclient.WebClient, logger logging.Logger) *ReputationProbe {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	perMinute := cfg.GeoRequestsPerMinute
	if perMinute <= 0 {
		perMinute = 40
	}
	highRisk := make(map[string]bool, len(cfg.HighRiskCountries))
	for _, cc := range cfg.HighRiskCountries {
		highRisk[strings.ToUpper(cc)] = true
	}
	return &ReputationProbe{
		cfg:      cfg,
		logger:   logger.With(logging.Field{Key: "component", Value: "probe-reputation"}),
		wc:       wc,
		resolver: net.DefaultResolver,
		dns:      &dns.Client{},
		limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		highRisk: highRisk,
	}
}

func (p *ReputationProbe) Kind() model.ProbeKind { return model.KindReputation }

func (p *ReputationProbe) Run(ctx context.Context, target *model.Target) (model.Payload, error) {
	ip := target.Host
	if net.ParseIP(ip) == nil {
		ips, err := p.resolver.LookupHost(ctx, target.Host)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", target.Host, err)
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("resolve %s: no addresses", target.Host)
		}
		ip = ips[0]
	}

	details := &model.ServerDetails{
		IP:       ip,
		Location: "Unknown",
		Provider: "Unknown",
	}

	// Geolocation is best-effort; the blacklist count is the signal that
	// feeds scoring.
	if loc, err := p.geolocate(ctx, ip); err == nil {
		details.Location = loc.location()
		details.Provider = loc.provider()
		details.GeoRisk = p.highRisk[strings.ToUpper(loc.CountryCode)]
	} else {
		p.logger.Debug("geolocation lookup failed",
			logging.Field{Key: "ip", Value: ip},
			logging.Field{Key: "error", Value: err.Error()})
	}

	details.BlacklistHits = p.blacklistHits(ctx, ip, target.RegistrableDomain)

	return details, nil
}

type geoResult struct {
	Status      string `json:"status"`
	City        string `json:"city"`
	CountryCode string `json:"countryCode"`
	ISP         string `json:"isp"`
}

func (g *geoResult) location() string {
	city := g.City
	if city == "" {
		city = "Unknown"
	}
	cc := g.CountryCode
	if cc == "" {
		cc = "Unknown"
	}
	return city + ", " + cc
}

func (g *geoResult) provider() string {
	if g.ISP == "" {
		return "Unknown"
	}
	return g.ISP
}

func (p *ReputationProbe) geolocate(ctx context.Context, ip string) (*geoResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(p.cfg.GeoEndpoint, "/")
	resp, err := p.wc.Get(ctx, fmt.Sprintf("%s/%s?fields=status,city,countryCode,isp", endpoint, ip))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("geo endpoint returned %d", resp.StatusCode)
	}

	var out geoResult
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("decode geo response: %w", err)
	}
	if out.Status != "" && out.Status != "success" {
		return nil, fmt.Errorf("geo lookup status %q", out.Status)
	}
	return &out, nil
}

// blacklistHits queries each configured DNSBL zone. A zone that answers with
// any A record lists the IP/domain; resolver errors count as no hit.
func (p *ReputationProbe) blacklistHits(ctx context.Context, ip, domain string) int {
	hits := 0

	if reversed := reverseIPv4(ip); reversed != "" {
		for _, zone := range p.cfg.Blacklists {
			if p.listed(ctx, reversed+"."+zone) {
				hits++
			}
		}
	}
	if domain != "" {
		for _, zone := range p.cfg.DomainBlacklists {
			if p.listed(ctx, domain+"."+zone) {
				hits++
			}
		}
	}
	return hits
}

func (p *ReputationProbe) listed(ctx context.Context, name string) bool {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)

	in, _, err := p.dns.ExchangeContext(ctx, m, p.cfg.DNSResolver)
	if err != nil {
		return false
	}
	return in.Rcode == dns.RcodeSuccess && len(in.Answer) > 0
}

// reverseIPv4 produces the reversed-octet form DNSBLs key on; "" for IPv6.
func reverseIPv4(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	v4 := parsed.To4()
	if v4 == nil {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d.%d", v4[3], v4[2], v4[1], v4[0])
}
