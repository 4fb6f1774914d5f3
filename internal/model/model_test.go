package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewOutcome_EverySlotDefined(t *testing.T) {
	t.Parallel()
	o := NewOutcome()

	for i := range o.Slots {
		if o.Slots[i].Status != StatusFailed {
			t.Errorf("slot %s starts as %q, want failed", ProbeKind(i), o.Slots[i].Status)
		}
		if o.Slots[i].Err == "" {
			t.Errorf("slot %s has no reason", ProbeKind(i))
		}
	}
	if o.OkCount() != 0 {
		t.Errorf("OkCount = %d for a fresh outcome", o.OkCount())
	}
}

func TestOutcome_TypedAccessors(t *testing.T) {
	t.Parallel()
	o := NewOutcome()
	o.Slots[KindTLS] = Slot{Status: StatusOk, Payload: &TLSDetails{Issuer: "Test CA", Valid: true}}
	o.Slots[KindRedirect] = Slot{Status: StatusOk, Payload: &RedirectDetails{Cycle: true}}

	if got := o.TLS(); got == nil || got.Issuer != "Test CA" {
		t.Errorf("TLS() = %+v", got)
	}
	if got := o.Redirect(); got == nil || !got.Cycle {
		t.Errorf("Redirect() = %+v", got)
	}
	if o.Domain() != nil || o.Content() != nil || o.Server() != nil {
		t.Error("accessors returned payloads for unresolved slots")
	}
	if o.OkCount() != 2 {
		t.Errorf("OkCount = %d, want 2", o.OkCount())
	}
}

func TestOutcome_ReportCarriesStatusForLostProbes(t *testing.T) {
	t.Parallel()
	o := NewOutcome()
	o.Slots[KindTLS] = Slot{Status: StatusOk, Payload: &TLSDetails{Valid: true}, Latency: 80 * time.Millisecond}
	o.Slots[KindDomain] = Slot{Status: StatusTimedOut, Err: "context deadline exceeded"}

	d := o.Report()

	if d.SSL.ProbeStatus != StatusOk || !d.SSL.Valid {
		t.Errorf("ssl report = %+v", d.SSL)
	}
	if d.SSL.LatencyMS != 80 {
		t.Errorf("ssl latency = %d", d.SSL.LatencyMS)
	}
	if d.Domain.ProbeStatus != StatusTimedOut || d.Domain.Error == "" {
		t.Errorf("domain report = %+v", d.Domain)
	}
	if d.Redirects == nil {
		t.Error("redirects must serialize as a list, never null")
	}
}

func TestVerdict_CloneIsIndependent(t *testing.T) {
	t.Parallel()
	v := &Verdict{ID: "a", Result: ResultSafe}
	c := v.Clone()
	c.Cached = true

	if v.Cached {
		t.Error("mutating the clone changed the original")
	}
}

func TestVerdict_WireShape(t *testing.T) {
	t.Parallel()
	o := NewOutcome()
	v := &Verdict{
		ID:         "abc",
		URL:        "https://example.com",
		Result:     ResultPhishing,
		Confidence: 88,
		RiskScore:  76,
		ThreatType: ThreatCredentialHarvesting,
		Details:    o.Report(),
		ScannedAt:  time.Now().UTC(),
	}

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"id", "url", "result", "confidence", "riskScore", "threatType", "cached", "degraded", "details", "features", "scanned_at"} {
		if _, ok := wire[key]; !ok {
			t.Errorf("wire verdict missing %q", key)
		}
	}
	details := wire["details"].(map[string]any)
	for _, key := range []string{"ssl", "domain", "content", "redirects", "server"} {
		if _, ok := details[key]; !ok {
			t.Errorf("details missing %q", key)
		}
	}
}
