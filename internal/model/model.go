// Package model holds the shared domain types for the scan pipeline: the
// scan request, the per-probe result slots, the feature vector and the final
// verdict returned on the wire. All JSON field names match what the existing
// front end consumes.
package model

import (
	"net/url"
	"time"
)

// ScanRequest represents a request to analyze a URL.
type ScanRequest struct {
	// URL is the raw, user-supplied target.
	URL string `json:"url"`
}

// Target is the normalized identity of a URL under scan. It is derived once
// by urlutil and used as the cache key and as probe input.
type Target struct {
	// Raw is the original user input.
	Raw string

	// Normalized is the canonical URL string (stable cache key).
	Normalized string

	// URL is the parsed canonical URL.
	URL *url.URL

	// Host is the lowercase, punycode-encoded hostname.
	Host string

	// RegistrableDomain is the eTLD+1 of Host ("" for IP literals).
	RegistrableDomain string
}

// Port returns the explicit port of the target, or def when absent.
func (t *Target) Port(def string) string {
	if p := t.URL.Port(); p != "" {
		return p
	}
	return def
}

// ProbeKind identifies one of the five forensic probes. The set is closed;
// Outcome slots are indexed by kind so results are deterministic regardless
// of completion order.
type ProbeKind int

const (
	KindTLS ProbeKind = iota
	KindDomain
	KindContent
	KindRedirect
	KindReputation

	probeKindCount
)

// NumProbeKinds is the number of probe slots in every Outcome.
const NumProbeKinds = int(probeKindCount)

func (k ProbeKind) String() string {
	switch k {
	case KindTLS:
		return "tls"
	case KindDomain:
		return "domain"
	case KindContent:
		return "content"
	case KindRedirect:
		return "redirect"
	case KindReputation:
		return "reputation"
	default:
		return "unknown"
	}
}

// ProbeStatus is the terminal state of a probe slot. Failures are values,
// never errors crossing the coordinator boundary.
type ProbeStatus string

const (
	StatusOk       ProbeStatus = "ok"
	StatusFailed   ProbeStatus = "failed"
	StatusTimedOut ProbeStatus = "timeout"
)

// Payload is the closed union of probe payload types.
type Payload interface {
	isProbePayload()
}

// TLSDetails is the TLS probe payload.
type TLSDetails struct {
	Issuer   string `json:"issuer"`
	IssuedOn string `json:"issued_on"`
	Expires  string `json:"expires"`
	DaysLeft int    `json:"days_left"`
	// Valid means not expired, chain trusted and hostname matching.
	Valid bool `json:"valid"`
}

// DomainDetails is the WHOIS/domain probe payload.
type DomainDetails struct {
	Registrar string `json:"registrar"`
	// Created is the humanized creation date ("Today", "3 days ago", ...).
	Created         string   `json:"created"`
	AgeDays         int      `json:"age_days"` // -1 when unknown
	RawCreationDate string   `json:"raw_creation_date,omitempty"`
	IPs             []string `json:"ips,omitempty"`
}

// ContentDetails is the content probe payload.
type ContentDetails struct {
	// Status is "Suspicious" or "Clean".
	Status   string   `json:"status"`
	Keywords []string `json:"keywords"`
	// Homoglyphs is "None", "Punycode Detected" or "Confusable Characters".
	Homoglyphs string `json:"homoglyphs"`
	// FormMismatch is set when a form posts to a different host than the page.
	FormMismatch bool `json:"form_mismatch"`
}

// Hop is one step of a redirect chain.
type Hop struct {
	Source string `json:"source"`
	Code   int    `json:"code"`
}

// RedirectDetails is the redirect-chain probe payload.
type RedirectDetails struct {
	Hops  []Hop `json:"hops"`
	Cycle bool  `json:"cycle"`
	// FinalHost is the registrable domain the chain lands on.
	FinalHost string `json:"final_host"`
	// FinalHostMismatch is set when the chain leaves the original domain.
	FinalHostMismatch bool `json:"final_host_mismatch"`
}

// ServerDetails is the network/geo-reputation probe payload.
type ServerDetails struct {
	IP            string `json:"ip"`
	Location      string `json:"location"`
	Provider      string `json:"provider"`
	BlacklistHits int    `json:"blacklist_hits"`
	GeoRisk       bool   `json:"geo_risk"`
}

func (*TLSDetails) isProbePayload()      {}
func (*DomainDetails) isProbePayload()   {}
func (*ContentDetails) isProbePayload()  {}
func (*RedirectDetails) isProbePayload() {}
func (*ServerDetails) isProbePayload()   {}

// Slot is one resolved probe result inside an Outcome.
type Slot struct {
	Status  ProbeStatus
	Payload Payload // nil unless Status == StatusOk
	Latency time.Duration
	Err     string // reason for failed/timed-out slots
}

// Outcome is the kind-indexed bundle of probe results for one scan. Every
// slot is always populated; a slot never launched counts as failed.
type Outcome struct {
	Slots [NumProbeKinds]Slot
}

// NewOutcome returns an outcome with every slot pre-marked failed, so a
// coordinator that never ran a probe still yields a total bundle.
func NewOutcome() *Outcome {
	o := &Outcome{}
	for i := range o.Slots {
		o.Slots[i] = Slot{Status: StatusFailed, Err: "not run"}
	}
	return o
}

// TLS returns the TLS payload, or nil when the slot did not resolve Ok.
func (o *Outcome) TLS() *TLSDetails {
	p, _ := o.Slots[KindTLS].Payload.(*TLSDetails)
	return p
}

func (o *Outcome) Domain() *DomainDetails {
	p, _ := o.Slots[KindDomain].Payload.(*DomainDetails)
	return p
}

func (o *Outcome) Content() *ContentDetails {
	p, _ := o.Slots[KindContent].Payload.(*ContentDetails)
	return p
}

func (o *Outcome) Redirect() *RedirectDetails {
	p, _ := o.Slots[KindRedirect].Payload.(*RedirectDetails)
	return p
}

func (o *Outcome) Server() *ServerDetails {
	p, _ := o.Slots[KindReputation].Payload.(*ServerDetails)
	return p
}

// OkCount returns how many probes resolved Ok.
func (o *Outcome) OkCount() int {
	n := 0
	for i := range o.Slots {
		if o.Slots[i].Status == StatusOk {
			n++
		}
	}
	return n
}
