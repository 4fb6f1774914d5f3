// Package scoring turns a feature vector into a verdict assessment. The
// engine is swappable behind the Engine interface and is the single place
// where the SAFE/PHISHING threshold lives.
package scoring

import (
	"math"

	"github.com/phishguard/phishguard/internal/model"
)

// Engine maps a feature vector to an assessment. Implementations must be
// pure: same vector, same assessment.
type Engine interface {
	Score(fv model.FeatureVector) model.Assessment
}

// Weights scales the contribution of each signal group. 1.0 is the neutral
// production setting; operators can damp a noisy group without redeploying.
type Weights struct {
	Lexical    float64 `yaml:"lexical"`
	TLS        float64 `yaml:"tls"`
	DomainAge  float64 `yaml:"domain_age"`
	Content    float64 `yaml:"content"`
	Redirect   float64 `yaml:"redirect"`
	Reputation float64 `yaml:"reputation"`
}

// Config holds the tunables of the rule engine.
type Config struct {
	// PhishingThreshold is the risk score strictly above which a target is
	// classified PHISHING. It is defined here and nowhere else.
	PhishingThreshold int `yaml:"phishing_threshold"`

	// LowConfidenceCap bounds confidence when two or fewer probes resolved.
	LowConfidenceCap float64 `yaml:"low_confidence_cap"`

	// BaseScore is the floor every scan starts from.
	BaseScore int `yaml:"base_score"`

	Weights Weights `yaml:"weights"`
}

func DefaultConfig() Config {
	return Config{
		PhishingThreshold: 50,
		LowConfidenceCap:  45,
		BaseScore:         5,
		Weights: Weights{
			Lexical:    1.0,
			TLS:        1.0,
			DomainAge:  1.0,
			Content:    1.0,
			Redirect:   1.0,
			Reputation: 1.0,
		},
	}
}

// RuleEngine is the production Engine: additive points per signal group,
// scaled by configurable weights and clamped to 0..99.
type RuleEngine struct {
	cfg Config
}

func NewRuleEngine(cfg Config) *RuleEngine {
	return &RuleEngine{cfg: cfg}
}

// Threshold exposes the classification boundary for callers that report it.
func (e *RuleEngine) Threshold() int {
	return e.cfg.PhishingThreshold
}

// Score computes the risk score, the classification, the confidence and the
// threat type for one feature vector.
func (e *RuleEngine) Score(fv model.FeatureVector) model.Assessment {
	w := e.cfg.Weights

	risk := float64(e.cfg.BaseScore)
	risk += w.Lexical * lexicalPoints(fv)
	risk += w.TLS * tlsPoints(fv)
	risk += w.DomainAge * domainAgePoints(fv)
	risk += w.Content * contentPoints(fv)
	risk += w.Redirect * redirectPoints(fv)
	risk += w.Reputation * reputationPoints(fv)

	score := int(math.Round(risk))
	if score < 0 {
		score = 0
	}
	if score > 99 {
		score = 99
	}

	result := model.ResultSafe
	if score > e.cfg.PhishingThreshold {
		result = model.ResultPhishing
	}

	return model.Assessment{
		Result:     result,
		RiskScore:  score,
		Confidence: e.confidence(fv),
		ThreatType: e.threatType(score, fv),
	}
}

func lexicalPoints(fv model.FeatureVector) float64 {
	var pts float64
	if fv.URLLength > 75 {
		pts += 8
		if fv.URLLength > 120 {
			pts += 4
		}
	}
	if fv.SpecialChars > 3 {
		pts += 7
	}
	if fv.SubdomainDepth > 3 {
		pts += 8
	}
	if !fv.HTTPS {
		pts += 10
	}
	if fv.DigitCount > 5 {
		pts += 3
	}
	if fv.BrandSimilarity >= 0.75 {
		pts += 15
	}
	return pts
}

func tlsPoints(fv model.FeatureVector) float64 {
	if !fv.CertValid {
		return 40
	}
	if fv.CertDaysLeft < 30 {
		return 10
	}
	return 0
}

func domainAgePoints(fv model.FeatureVector) float64 {
	if !fv.DomainAgeKnown {
		return 0
	}
	switch {
	case fv.DomainAgeDays < 2:
		return 50
	case fv.DomainAgeDays < 30:
		return 35
	case fv.DomainAgeDays < 180:
		return 10
	}
	return 0
}

func contentPoints(fv model.FeatureVector) float64 {
	var pts float64
	switch {
	case fv.KeywordHits >= 3:
		pts += 30
	case fv.KeywordHits >= 1:
		pts += 10
	}
	if fv.FormMismatch {
		pts += 15
	}
	if fv.Homoglyph {
		pts += 15
	}
	return pts
}

func redirectPoints(fv model.FeatureVector) float64 {
	var pts float64
	if fv.RedirectHops > 2 {
		pts += 20
	}
	if fv.RedirectCycle {
		pts += 10
	}
	if fv.FinalHostMismatch {
		pts += 15
	}
	return pts
}

func reputationPoints(fv model.FeatureVector) float64 {
	pts := float64(fv.BlacklistHits) * 15
	if pts > 30 {
		pts = 30
	}
	if fv.GeoRisk {
		pts += 10
	}
	return pts
}

// confidence measures certainty in the verdict, orthogonal to severity: it
// grows with the number of resolved probes and with how many risky signals
// agree, and is capped when most evidence is missing.
func (e *RuleEngine) confidence(fv model.FeatureVector) float64 {
	agreeing, groups := 0, 0

	count := func(pts float64) {
		groups++
		if pts > 0 {
			agreeing++
		}
	}
	count(lexicalPoints(fv))
	if fv.TLSResolved {
		count(tlsPoints(fv))
	}
	if fv.DomainResolved {
		count(domainAgePoints(fv))
	}
	if fv.ContentResolved {
		count(contentPoints(fv))
	}
	if fv.RedirectResolved {
		count(redirectPoints(fv))
	}
	if fv.ReputationResolved {
		count(reputationPoints(fv))
	}

	agreeFrac := 0.0
	if groups > 0 {
		frac := float64(agreeing) / float64(groups)
		// Unanimously quiet groups agree on SAFE just as loud ones agree
		// on PHISHING.
		if frac < 0.5 {
			frac = 1 - frac
		}
		agreeFrac = frac
	}

	conf := 20 + 12*float64(fv.ProbesOk) + 20*agreeFrac
	if fv.ProbesOk <= 2 && conf > e.cfg.LowConfidenceCap {
		conf = e.cfg.LowConfidenceCap
	}
	if conf > 100 {
		conf = 100
	}
	return math.Round(conf)
}

// threatType picks the most specific matching category; rules are ordered
// from strongest signal to weakest.
func (e *RuleEngine) threatType(score int, fv model.FeatureVector) string {
	if score <= e.cfg.PhishingThreshold {
		return model.ThreatUnknown
	}
	switch {
	case fv.KeywordHits >= 2 || fv.FormMismatch:
		return model.ThreatCredentialHarvesting
	case fv.BrandSimilarity >= 0.75 || fv.Homoglyph:
		return model.ThreatTyposquatting
	case fv.BlacklistHits > 0 || fv.FinalHostMismatch || fv.RedirectCycle:
		return model.ThreatMalwareDistribution
	}
	return model.ThreatUnknown
}
