package feature

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// hostTokens splits a hostname into comparable tokens: each dot label, and
// each dash segment inside a label. "paypal-secure.login.example.com" yields
// paypal-secure, login, example, com, paypal, secure.
func hostTokens(host string) []string {
	labels := strings.Split(host, ".")
	tokens := make([]string, 0, len(labels)*2)
	for _, label := range labels {
		if label == "" {
			continue
		}
		tokens = append(tokens, label)
		if strings.Contains(label, "-") {
			for _, seg := range strings.Split(label, "-") {
				if seg != "" {
					tokens = append(tokens, seg)
				}
			}
		}
	}
	return tokens
}

// levSimilarity maps edit distance onto 0..1, where 1 is an exact match.
func levSimilarity(dmp *diffmatchpatch.DiffMatchPatch, a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	diffs := dmp.DiffMain(a, b, false)
	dist := dmp.DiffLevenshtein(diffs)
	sim := 1 - float64(dist)/float64(longest)
	if sim < 0 {
		return 0
	}
	return sim
}

// brandSimilarity scores how closely the host imitates a known brand name.
// A host whose registrable domain IS the brand scores 0 for that brand; the
// signal targets look-alikes, not the brand's own site.
func brandSimilarity(host, registrableDomain string, brands []string) float64 {
	ownLabel := ""
	if i := strings.IndexByte(registrableDomain, '.'); i > 0 {
		ownLabel = registrableDomain[:i]
	}

	dmp := diffmatchpatch.New()
	tokens := hostTokens(host)

	best := 0.0
	for _, brand := range brands {
		if brand == ownLabel {
			continue
		}
		for _, tok := range tokens {
			// Very short tokens (tlds, single letters) produce noise.
			if len(tok) < 4 {
				continue
			}
			if sim := levSimilarity(dmp, tok, brand); sim > best {
				best = sim
			}
		}
	}
	return best
}
