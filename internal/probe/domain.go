package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/phishguard/phishguard/internal/logging"
	"github.com/phishguard/phishguard/internal/model"
)

// DomainProbe looks up the registration record of the target's registrable
// domain. The signal that matters most downstream is the age bucket: very
// young domains are disproportionately phishing infrastructure.
type DomainProbe struct {
	cfg      Config
	logger   logging.Logger
	resolver *net.Resolver

	// now is swappable for tests.
	now func() time.Time
}

// NewDomainProbe builds the WHOIS/domain probe.
func NewDomainProbe(cfg Config, logger logging.Logger) *DomainProbe {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DomainProbe{
		cfg:      cfg,
		logger:   logger.With(logging.Field{Key: "component", Value: "probe-domain"}),
		resolver: net.DefaultResolver,
		now:      time.Now,
	}
}

func (p *DomainProbe) Kind() model.ProbeKind { return model.KindDomain }

// Run fetches WHOIS data and resolved IPs. The whois library has no context
// support, so the lookup runs in a goroutine raced against ctx; the orphaned
// lookup times out on its own client deadline.
func (p *DomainProbe) Run(ctx context.Context, target *model.Target) (model.Payload, error) {
	domain := target.RegistrableDomain
	if domain == "" {
		return nil, fmt.Errorf("no registrable domain for host %s", target.Host)
	}

	// The client is per call: SetTimeout mutates it, and Run must stay safe
	// under concurrent scans. NewClient is cheap.
	client := whois.NewClient()
	if deadline, ok := ctx.Deadline(); ok {
		client.SetTimeout(time.Until(deadline))
	}

	type whoisOut struct {
		raw string
		err error
	}
	ch := make(chan whoisOut, 1)
	go func() {
		raw, err := client.Whois(domain)
		ch <- whoisOut{raw: raw, err: err}
	}()

	var raw string
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		if out.err != nil {
			return nil, fmt.Errorf("whois %s: %w", domain, out.err)
		}
		raw = out.raw
	}

	details := &model.DomainDetails{
		Registrar: "Unknown",
		Created:   "Unknown",
		AgeDays:   -1,
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		// A record that exists but does not parse (privacy-guarded TLDs)
		// still tells us the domain is registered; keep the unknowns.
		p.logger.Debug("whois parse failed",
			logging.Field{Key: "domain", Value: domain},
			logging.Field{Key: "error", Value: err.Error()})
	} else {
		if parsed.Registrar != nil && parsed.Registrar.Name != "" {
			details.Registrar = parsed.Registrar.Name
		}
		if parsed.Domain != nil {
			details.RawCreationDate = parsed.Domain.CreatedDate
			if parsed.Domain.CreatedDateInTime != nil {
				created := *parsed.Domain.CreatedDateInTime
				age := int(p.now().Sub(created).Hours() / 24)
				if age < 0 {
					age = 0
				}
				details.AgeDays = age
				details.Created = humanizeAge(age)
			}
		}
	}

	// Resolved IPs are part of the registration picture for the dashboard.
	if ips, err := p.resolver.LookupHost(ctx, target.Host); err == nil {
		details.IPs = ips
	}

	return details, nil
}

// humanizeAge renders a domain age the way the dashboard displays it.
func humanizeAge(days int) string {
	switch {
	case days < 1:
		return "Today"
	case days < 365:
		return fmt.Sprintf("%d days ago", days)
	default:
		years := days / 365
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}
