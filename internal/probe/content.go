package probe

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/idna"

	"github.com/phishguard/phishguard/internal/logging"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/webclient"
)

// Homoglyph status values surfaced on the wire.
const (
	HomoglyphsNone       = "None"
	HomoglyphsPunycode   = "Punycode Detected"
	HomoglyphsConfusable = "Confusable Characters"
)

// confusables maps common lookalike characters to their latin shapes.
// Cyrillic and Greek letters that render identically to ASCII are the bulk
// of in-the-wild homoglyph abuse.
var confusables = map[rune]rune{
	'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'х': 'x',
	'у': 'y', 'і': 'i', 'ѕ': 's', 'ԁ': 'd', 'ո': 'n', 'ј': 'j',
	'ο': 'o', 'ν': 'v', 'α': 'a', 'ϲ': 'c', 'τ': 't', 'ı': 'i',
}

// ContentProbe fetches the page (bounded body, via the configured webclient
// backend) and scans it for credential-harvesting keywords, homoglyph abuse
// in the host, and forms posting to a different host than the page.
type ContentProbe struct {
	cfg    Config
	logger logging.Logger
	wc     webclient.WebClient
}

// NewContentProbe builds the content probe on top of a webclient.
func NewContentProbe(cfg Config, wc webclient.WebClient, logger logging.Logger) *ContentProbe {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ContentProbe{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "probe-content"}),
		wc:     wc,
	}
}

func (p *ContentProbe) Kind() model.ProbeKind { return model.KindContent }

func (p *ContentProbe) Run(ctx context.Context, target *model.Target) (model.Payload, error) {
	resp, err := p.wc.Get(ctx, target.Normalized)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target.Normalized, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	text := strings.ToLower(doc.Text())
	var hits []string
	for _, kw := range p.cfg.Keywords {
		if strings.Contains(text, kw) {
			hits = append(hits, kw)
		}
	}
	if len(hits) > 5 {
		hits = hits[:5]
	}
	if hits == nil {
		hits = []string{}
	}

	pageHost := target.Host
	if resp.FinalURL != "" {
		if fu, err := url.Parse(resp.FinalURL); err == nil && fu.Hostname() != "" {
			pageHost = strings.ToLower(fu.Hostname())
		}
	}

	details := &model.ContentDetails{
		Keywords:     hits,
		Homoglyphs:   DetectHomoglyphs(target.Host),
		FormMismatch: hasForeignFormTarget(doc, pageHost),
	}

	details.Status = "Clean"
	if len(hits) > 2 {
		details.Status = "Suspicious"
	}

	return details, nil
}

// hasForeignFormTarget reports whether any form posts to a host other than
// the page's own.
func hasForeignFormTarget(doc *goquery.Document, pageHost string) bool {
	mismatch := false
	doc.Find("form[action]").Each(func(_ int, s *goquery.Selection) {
		action, ok := s.Attr("action")
		if !ok || action == "" {
			return
		}
		u, err := url.Parse(strings.TrimSpace(action))
		if err != nil {
			return
		}
		host := strings.ToLower(u.Hostname())
		if host != "" && host != pageHost {
			mismatch = true
		}
	})
	return mismatch
}

// DetectHomoglyphs classifies homoglyph abuse in a hostname. Punycode hosts
// are flagged outright; for unicode forms each label is checked against the
// confusable table.
func DetectHomoglyphs(host string) string {
	if strings.Contains(host, "xn--") {
		return HomoglyphsPunycode
	}

	unicodeHost, err := idna.Lookup.ToUnicode(host)
	if err != nil {
		unicodeHost = host
	}
	for _, r := range unicodeHost {
		if r > 0x7f {
			if _, ok := confusables[r]; ok {
				return HomoglyphsConfusable
			}
		}
	}
	return HomoglyphsNone
}
