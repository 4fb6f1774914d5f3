package feature

import (
	"testing"

	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/urlutil"
)

var testBrands = []string{"paypal", "apple", "amazon", "google", "microsoft"}

func target(t *testing.T, raw string) *model.Target {
	t.Helper()
	tgt, err := urlutil.Normalize(raw, urlutil.DefaultOptions())
	if err != nil {
		t.Fatalf("normalize %q: %v", raw, err)
	}
	return tgt
}

func fullOutcome() *model.Outcome {
	o := model.NewOutcome()
	o.Slots[model.KindTLS] = model.Slot{Status: model.StatusOk, Payload: &model.TLSDetails{Valid: true, DaysLeft: 120}}
	o.Slots[model.KindDomain] = model.Slot{Status: model.StatusOk, Payload: &model.DomainDetails{AgeDays: 3650}}
	o.Slots[model.KindContent] = model.Slot{Status: model.StatusOk, Payload: &model.ContentDetails{
		Status: "Clean", Keywords: []string{}, Homoglyphs: "None",
	}}
	o.Slots[model.KindRedirect] = model.Slot{Status: model.StatusOk, Payload: &model.RedirectDetails{
		Hops: []model.Hop{{Source: "https://example.com", Code: 200}},
	}}
	o.Slots[model.KindReputation] = model.Slot{Status: model.StatusOk, Payload: &model.ServerDetails{IP: "192.0.2.1"}}
	return o
}

func TestExtract_LexicalFeatures(t *testing.T) {
	t.Parallel()
	tgt := target(t, "http://paypal-secure.login.example.com/a@b")
	fv := Extract(tgt, model.NewOutcome(), testBrands)

	if fv.HTTPS {
		t.Error("http target flagged as https")
	}
	if fv.SubdomainDepth != 2 {
		t.Errorf("SubdomainDepth = %d, want 2", fv.SubdomainDepth)
	}
	if fv.SpecialChars < 2 {
		t.Errorf("SpecialChars = %d, want at least 2 (dash and @)", fv.SpecialChars)
	}
	if fv.BrandSimilarity != 1.0 {
		t.Errorf("BrandSimilarity = %v, want 1.0 for embedded brand token", fv.BrandSimilarity)
	}
	if fv.Punycode {
		t.Error("ascii host flagged as punycode")
	}
}

func TestExtract_BrandOwnDomainNotPenalized(t *testing.T) {
	t.Parallel()
	fv := Extract(target(t, "https://www.paypal.com"), model.NewOutcome(), testBrands)
	if fv.BrandSimilarity >= 0.75 {
		t.Errorf("BrandSimilarity = %v for the brand's own domain, want below the impersonation range", fv.BrandSimilarity)
	}
}

func TestExtract_NearMissBrandScoresHigh(t *testing.T) {
	t.Parallel()
	fv := Extract(target(t, "https://paypa1.example.com"), model.NewOutcome(), testBrands)
	if fv.BrandSimilarity < 0.75 {
		t.Errorf("BrandSimilarity = %v for one-char typo, want >= 0.75", fv.BrandSimilarity)
	}
}

func TestExtract_PunycodeHost(t *testing.T) {
	t.Parallel()
	fv := Extract(target(t, "https://xn--pple-43d.com"), model.NewOutcome(), testBrands)
	if !fv.Punycode {
		t.Error("punycode host not flagged")
	}
	if !fv.Homoglyph {
		t.Error("punycode host should carry the homoglyph signal even without content")
	}
}

func TestExtract_ResolvedOutcome(t *testing.T) {
	t.Parallel()
	fv := Extract(target(t, "https://example.com"), fullOutcome(), testBrands)

	if !fv.CertValid || fv.CertDaysLeft != 120 {
		t.Errorf("tls features = valid %v days %d", fv.CertValid, fv.CertDaysLeft)
	}
	if !fv.DomainAgeKnown || fv.DomainAgeDays != 3650 {
		t.Errorf("domain features = known %v age %d", fv.DomainAgeKnown, fv.DomainAgeDays)
	}
	if !fv.ContentFetched || fv.KeywordHits != 0 {
		t.Errorf("content features = fetched %v hits %d", fv.ContentFetched, fv.KeywordHits)
	}
	if fv.RedirectHops != 0 {
		t.Errorf("single-hop chain should count 0 redirects, got %d", fv.RedirectHops)
	}
	if fv.ProbesOk != model.NumProbeKinds {
		t.Errorf("ProbesOk = %d, want %d", fv.ProbesOk, model.NumProbeKinds)
	}
	if !fv.TLSResolved || !fv.DomainResolved || !fv.ContentResolved || !fv.RedirectResolved || !fv.ReputationResolved {
		t.Error("resolution flags not all set for a fully resolved outcome")
	}
}

// Extraction must stay total: every status combination yields a defined
// vector with risk-aware defaults for the lost groups.
func TestExtract_TotalOverProbeLoss(t *testing.T) {
	t.Parallel()
	statuses := []model.ProbeStatus{model.StatusOk, model.StatusFailed, model.StatusTimedOut}
	tgt := target(t, "https://example.com")

	for _, tlsStatus := range statuses {
		for _, domStatus := range statuses {
			o := fullOutcome()
			if tlsStatus != model.StatusOk {
				o.Slots[model.KindTLS] = model.Slot{Status: tlsStatus, Err: "lost"}
			}
			if domStatus != model.StatusOk {
				o.Slots[model.KindDomain] = model.Slot{Status: domStatus, Err: "lost"}
			}

			fv := Extract(tgt, o, testBrands)
			if tlsStatus != model.StatusOk && (fv.CertValid || fv.TLSResolved) {
				t.Errorf("tls %s: CertValid=%v TLSResolved=%v, want risk defaults", tlsStatus, fv.CertValid, fv.TLSResolved)
			}
			if domStatus != model.StatusOk && (fv.DomainAgeDays != -1 || fv.DomainAgeKnown) {
				t.Errorf("domain %s: age=%d known=%v, want -1/false", domStatus, fv.DomainAgeDays, fv.DomainAgeKnown)
			}
		}
	}
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()
	tgt := target(t, "https://paypal-login.example.com/verify?a=1")
	o := fullOutcome()

	first := Extract(tgt, o, testBrands)
	for i := 0; i < 5; i++ {
		if got := Extract(tgt, o, testBrands); got != first {
			t.Fatalf("extraction not deterministic: %+v vs %+v", got, first)
		}
	}
}
