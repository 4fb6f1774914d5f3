package model

import "time"

// Result labels for a verdict. The SAFE/PHISHING decision itself is made in
// one place only (the scoring engine's threshold).
const (
	ResultSafe     = "SAFE"
	ResultPhishing = "PHISHING"
)

// Threat taxonomy. ThreatUnknown is the default for low or inconclusive risk.
const (
	ThreatCredentialHarvesting = "Credential Harvesting"
	ThreatMalwareDistribution  = "Malware Distribution"
	ThreatTyposquatting        = "Typosquatting"
	ThreatUnknown              = "Unknown"
)

// FeatureVector is the fixed-shape input to the scoring engine. Every field
// is always defined: failed probes map to risk-aware defaults during
// extraction, so scoring never branches on missing data.
type FeatureVector struct {
	// Lexical features of the URL itself (always available).
	URLLength       int     `json:"url_length"`
	SpecialChars    int     `json:"special_chars"`
	SubdomainDepth  int     `json:"subdomain_depth"`
	DigitCount      int     `json:"digit_count"`
	HTTPS           bool    `json:"https"`
	Punycode        bool    `json:"punycode"`
	BrandSimilarity float64 `json:"brand_similarity"` // 0..1, highest brand-token match

	// TLS features.
	CertValid    bool `json:"cert_valid"`
	CertDaysLeft int  `json:"cert_days_left"`

	// Domain registration features.
	DomainAgeDays  int  `json:"domain_age_days"` // -1 when unknown
	DomainAgeKnown bool `json:"domain_age_known"`

	// Content features.
	KeywordHits    int  `json:"keyword_hits"`
	FormMismatch   bool `json:"form_mismatch"`
	Homoglyph      bool `json:"homoglyph"`
	ContentFetched bool `json:"content_fetched"`

	// Redirect features.
	RedirectHops      int  `json:"redirect_hops"`
	RedirectCycle     bool `json:"redirect_cycle"`
	FinalHostMismatch bool `json:"final_host_mismatch"`

	// Reputation features.
	BlacklistHits int  `json:"blacklist_hits"`
	GeoRisk       bool `json:"geo_risk"`

	// Per-group resolution flags, used for confidence, never for scoring
	// branches.
	TLSResolved        bool `json:"tls_resolved"`
	DomainResolved     bool `json:"domain_resolved"`
	ContentResolved    bool `json:"content_resolved"`
	RedirectResolved   bool `json:"redirect_resolved"`
	ReputationResolved bool `json:"reputation_resolved"`
	ProbesOk           int  `json:"probes_ok"`
}

// Assessment is the scoring engine's output: the classification and its two
// independent axes (confidence = certainty, riskScore = severity).
type Assessment struct {
	Result     string  `json:"result"`
	Confidence float64 `json:"confidence"`
	RiskScore  int     `json:"riskScore"`
	ThreatType string  `json:"threatType"`
}

// ProbeMeta annotates each details section with how its probe resolved.
type ProbeMeta struct {
	ProbeStatus ProbeStatus `json:"probe_status"`
	LatencyMS   int64       `json:"latency_ms"`
	Error       string      `json:"error,omitempty"`
}

// SSLReport is the wire form of the TLS slot.
type SSLReport struct {
	ProbeMeta
	TLSDetails
}

// DomainReport is the wire form of the domain slot.
type DomainReport struct {
	ProbeMeta
	DomainDetails
}

// ContentReport is the wire form of the content slot.
type ContentReport struct {
	ProbeMeta
	ContentDetails
}

// ServerReport is the wire form of the reputation slot.
type ServerReport struct {
	ProbeMeta
	ServerDetails
}

// Details is the forensic breakdown section of a verdict.
type Details struct {
	SSL       SSLReport     `json:"ssl"`
	Domain    DomainReport  `json:"domain"`
	Content   ContentReport `json:"content"`
	Redirects []Hop         `json:"redirects"`
	Server    ServerReport  `json:"server"`

	// RedirectMeta carries the redirect slot status alongside the flat hop
	// list the front end renders.
	RedirectMeta ProbeMeta `json:"redirect_meta"`
}

// WireFeatures is the small lexical feature summary exposed on the wire for
// the existing dashboard.
type WireFeatures struct {
	Length          int  `json:"length"`
	SuspiciousChars int  `json:"suspicious_chars"`
	Subdomains      int  `json:"subdomains"`
	HTTPS           bool `json:"https"`
}

// Verdict is the complete scan response.
type Verdict struct {
	ID         string       `json:"id"`
	URL        string       `json:"url"`
	Result     string       `json:"result"`
	Confidence float64      `json:"confidence"`
	RiskScore  int          `json:"riskScore"`
	ThreatType string       `json:"threatType"`
	Cached     bool         `json:"cached"`
	Degraded   bool         `json:"degraded"`
	Details    Details      `json:"details"`
	Features   WireFeatures `json:"features"`
	ScannedAt  time.Time    `json:"scanned_at"`
	DurationMS int64        `json:"duration_ms"`
}

func meta(s Slot) ProbeMeta {
	return ProbeMeta{
		ProbeStatus: s.Status,
		LatencyMS:   s.Latency.Milliseconds(),
		Error:       s.Err,
	}
}

// Report converts a probe outcome bundle into the wire Details section.
// Slots that did not resolve Ok keep zero-valued payloads with their status
// and error attached.
func (o *Outcome) Report() Details {
	d := Details{
		SSL:          SSLReport{ProbeMeta: meta(o.Slots[KindTLS])},
		Domain:       DomainReport{ProbeMeta: meta(o.Slots[KindDomain])},
		Content:      ContentReport{ProbeMeta: meta(o.Slots[KindContent])},
		Server:       ServerReport{ProbeMeta: meta(o.Slots[KindReputation])},
		RedirectMeta: meta(o.Slots[KindRedirect]),
		Redirects:    []Hop{},
	}
	if p := o.TLS(); p != nil {
		d.SSL.TLSDetails = *p
	}
	if p := o.Domain(); p != nil {
		d.Domain.DomainDetails = *p
	}
	if p := o.Content(); p != nil {
		d.Content.ContentDetails = *p
	}
	if p := o.Redirect(); p != nil {
		d.Redirects = p.Hops
	}
	if p := o.Server(); p != nil {
		d.Server.ServerDetails = *p
	}
	return d
}

// Clone returns a shallow copy of the verdict. Callers that annotate a
// returned verdict (cache-hit flag) must not mutate the shared cached copy.
func (v *Verdict) Clone() *Verdict {
	c := *v
	return &c
}
