// Package feature flattens a probe outcome bundle into the fixed-shape
// vector the scoring engine consumes. Extraction is pure and total: it never
// does I/O, and every field has a defined value for every combination of
// probe statuses, with failures mapped to risk-aware defaults.
package feature

import (
	"strings"

	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/probe"
)

// Extract builds the feature vector for a scanned target. Lexical features
// come from the normalized URL alone, so two verdicts for the same canonical
// target always agree regardless of how the raw input was spelled.
func Extract(target *model.Target, outcome *model.Outcome, brands []string) model.FeatureVector {
	fv := model.FeatureVector{
		URLLength:       len(target.Normalized),
		SpecialChars:    countSpecialChars(target.Normalized),
		SubdomainDepth:  subdomainDepth(target.Host),
		DigitCount:      countDigits(target.Host),
		HTTPS:           target.URL.Scheme == "https",
		Punycode:        strings.Contains(target.Host, "xn--"),
		BrandSimilarity: brandSimilarity(target.Host, target.RegistrableDomain, brands),

		// Risk-aware defaults; overwritten below when the probe resolved Ok.
		CertValid:     false,
		DomainAgeDays: -1,
	}

	if p := outcome.TLS(); p != nil {
		fv.TLSResolved = true
		fv.CertValid = p.Valid
		fv.CertDaysLeft = p.DaysLeft
	}

	if p := outcome.Domain(); p != nil {
		fv.DomainResolved = true
		fv.DomainAgeDays = p.AgeDays
		fv.DomainAgeKnown = p.AgeDays >= 0
	}

	if p := outcome.Content(); p != nil {
		fv.ContentResolved = true
		fv.ContentFetched = true
		fv.KeywordHits = len(p.Keywords)
		fv.FormMismatch = p.FormMismatch
		fv.Homoglyph = p.Homoglyphs != probe.HomoglyphsNone
	} else {
		// The page is unreachable but the hostname itself still carries the
		// homoglyph signal.
		fv.Homoglyph = probe.DetectHomoglyphs(target.Host) != probe.HomoglyphsNone
	}

	if p := outcome.Redirect(); p != nil {
		fv.RedirectResolved = true
		if n := len(p.Hops); n > 1 {
			fv.RedirectHops = n - 1
		}
		fv.RedirectCycle = p.Cycle
		fv.FinalHostMismatch = p.FinalHostMismatch
	}

	if p := outcome.Server(); p != nil {
		fv.ReputationResolved = true
		fv.BlacklistHits = p.BlacklistHits
		fv.GeoRisk = p.GeoRisk
	}

	fv.ProbesOk = outcome.OkCount()
	return fv
}

// countSpecialChars counts URL characters common in obfuscated links: '@',
// dashes, and any '//' beyond the scheme separator.
func countSpecialChars(u string) int {
	n := strings.Count(u, "@") + strings.Count(u, "-")
	rest := u
	if i := strings.Index(u, "://"); i >= 0 {
		rest = u[i+3:]
	}
	n += strings.Count(rest, "//")
	return n
}

func subdomainDepth(host string) int {
	d := strings.Count(host, ".") - 1
	if d < 0 {
		return 0
	}
	return d
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
