// Package scan orchestrates a full URL scan: validation, cache lookup,
// in-flight deduplication, the probe fan-out, feature extraction, scoring
// and verdict assembly.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/phishguard/phishguard/internal/cache"
	"github.com/phishguard/phishguard/internal/feature"
	"github.com/phishguard/phishguard/internal/logging"
	"github.com/phishguard/phishguard/internal/metrics"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/probe"
	"github.com/phishguard/phishguard/internal/scoring"
	"github.com/phishguard/phishguard/internal/urlutil"
)

// ErrInvalidURL marks caller mistakes: empty, oversized or unparseable
// input. The HTTP layer maps it to a 4xx; everything else is a 5xx.
var ErrInvalidURL = errors.New("invalid url")

// Options are the orchestration tunables.
type Options struct {
	// Deadline is the ceiling for one full scan.
	Deadline time.Duration

	// ProbeMargin is reserved out of Deadline for extraction and scoring,
	// so probes get Deadline-ProbeMargin.
	ProbeMargin time.Duration

	// MaxURLLength rejects oversized input before normalization.
	MaxURLLength int

	// URL controls normalization of raw input.
	URL urlutil.Options

	// Brands feeds the lexical brand-similarity feature.
	Brands []string
}

// Recorder receives completed verdicts. history.Store satisfies it.
type Recorder interface {
	RecordScan(ctx context.Context, v *model.Verdict) error
}

// Deps are the collaborators a Scanner needs. History and Metrics may be
// nil; the scanner then skips those concerns.
type Deps struct {
	Coordinator *probe.Coordinator
	Engine      scoring.Engine
	Cache       *cache.Cache
	History     Recorder
	Metrics     *metrics.Metrics
	Logger      logging.Logger
}

// Scanner runs scans. Safe for concurrent use.
type Scanner struct {
	opts    Options
	coord   *probe.Coordinator
	engine  scoring.Engine
	cache   *cache.Cache
	history Recorder
	metrics *metrics.Metrics
	logger  logging.Logger
	flight  singleflight.Group

	now func() time.Time
}

// New creates a Scanner.
func New(opts Options, deps Deps) (*Scanner, error) {
	if deps.Coordinator == nil {
		return nil, errors.New("scan: nil coordinator provided")
	}
	if deps.Engine == nil {
		return nil, errors.New("scan: nil scoring engine provided")
	}
	if deps.Cache == nil {
		return nil, errors.New("scan: nil cache provided")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if opts.Deadline <= 0 {
		opts.Deadline = 30 * time.Second
	}
	if opts.ProbeMargin <= 0 || opts.ProbeMargin >= opts.Deadline {
		opts.ProbeMargin = 2 * time.Second
	}
	if opts.MaxURLLength <= 0 {
		opts.MaxURLLength = 2048
	}
	return &Scanner{
		opts:    opts,
		coord:   deps.Coordinator,
		engine:  deps.Engine,
		cache:   deps.Cache,
		history: deps.History,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     time.Now,
	}, nil
}

// Scan produces a verdict for raw. Identical targets hit the cache first;
// concurrent identical targets share one probe run. Probe failures never
// surface as errors, only invalid input does.
func (s *Scanner) Scan(ctx context.Context, raw string) (*model.Verdict, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidURL)
	}
	if len(raw) > s.opts.MaxURLLength {
		return nil, fmt.Errorf("%w: url exceeds %d characters", ErrInvalidURL, s.opts.MaxURLLength)
	}

	target, err := urlutil.Normalize(raw, s.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	key := target.Normalized

	if v := s.cache.Get(key); v != nil {
		if s.metrics != nil {
			s.metrics.ObserveCacheHit()
		}
		hit := v.Clone()
		hit.Cached = true
		return hit, nil
	}

	// The scan keeps running on a detached context so one impatient caller
	// does not kill the run its duplicates are waiting on.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Deadline)
	defer cancel()

	res, err, shared := s.flight.Do(key, func() (interface{}, error) {
		return s.run(runCtx, target), nil
	})
	if err != nil {
		return nil, err
	}
	if shared && s.metrics != nil {
		s.metrics.ObserveDedup()
	}
	return res.(*model.Verdict).Clone(), nil
}

func (s *Scanner) run(ctx context.Context, target *model.Target) *model.Verdict {
	start := s.now()

	probeCtx, cancel := context.WithTimeout(ctx, s.opts.Deadline-s.opts.ProbeMargin)
	defer cancel()

	outcome := s.coord.RunAll(probeCtx, target)
	fv := feature.Extract(target, outcome, s.opts.Brands)
	assessment := s.engine.Score(fv)

	v := &model.Verdict{
		ID:         uuid.NewString(),
		URL:        target.Normalized,
		Result:     assessment.Result,
		Confidence: assessment.Confidence,
		RiskScore:  assessment.RiskScore,
		ThreatType: assessment.ThreatType,
		Degraded:   outcome.OkCount() == 0,
		Details:    outcome.Report(),
		Features: model.WireFeatures{
			Length:          fv.URLLength,
			SuspiciousChars: fv.SpecialChars,
			Subdomains:      fv.SubdomainDepth,
			HTTPS:           fv.HTTPS,
		},
		ScannedAt:  start.UTC(),
		DurationMS: time.Since(start).Milliseconds(),
	}

	s.cache.Put(target.Normalized, v)

	if s.history != nil {
		if err := s.history.RecordScan(ctx, v); err != nil {
			s.logger.Warn("failed to record scan",
				logging.Field{Key: "url", Value: v.URL},
				logging.Field{Key: "error", Value: err.Error()},
			)
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveScan(v, outcome)
	}

	s.logger.Info("scan complete",
		logging.Field{Key: "url", Value: v.URL},
		logging.Field{Key: "result", Value: v.Result},
		logging.Field{Key: "risk_score", Value: v.RiskScore},
		logging.Field{Key: "probes_ok", Value: fv.ProbesOk},
		logging.Field{Key: "duration_ms", Value: v.DurationMS},
	)
	return v
}
