package probe

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/phishguard/phishguard/internal/logging"
	"github.com/phishguard/phishguard/internal/model"
)

// cancelGrace is how long the coordinator waits after the deadline fires for
// cancelled probes to unwind before their slots are sealed as timed out.
const cancelGrace = 500 * time.Millisecond

// Coordinator fans the probes out concurrently under one shared deadline and
// fans their results into a kind-indexed Outcome. No probe's failure or
// timeout blocks the others; completed results are preserved when the
// deadline fires mid-scan.
type Coordinator struct {
	probes []Probe
	logger logging.Logger
}

// NewCoordinator builds a coordinator over the given probes.
func NewCoordinator(probes []Probe, logger logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Coordinator{
		probes: probes,
		logger: logger.With(logging.Field{Key: "component", Value: "coordinator"}),
	}
}

// RunAll executes every probe concurrently and blocks until all slots are
// resolved or ctx's deadline fires. The returned bundle is always total:
// every kind has a slot, keyed by kind rather than arrival order.
func (c *Coordinator) RunAll(ctx context.Context, target *model.Target) *model.Outcome {
	outcome := model.NewOutcome()

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range c.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()

			start := time.Now()
			payload, err := p.Run(ctx, target)
			latency := time.Since(start)

			slot := model.Slot{Status: model.StatusOk, Payload: payload, Latency: latency}
			if err != nil {
				slot.Payload = nil
				slot.Err = err.Error()
				if isTimeout(ctx, err) {
					slot.Status = model.StatusTimedOut
				} else {
					slot.Status = model.StatusFailed
				}
				c.logger.Debug("probe did not resolve ok",
					logging.Field{Key: "kind", Value: p.Kind().String()},
					logging.Field{Key: "status", Value: string(slot.Status)},
					logging.Field{Key: "error", Value: slot.Err})
			}

			mu.Lock()
			outcome.Slots[p.Kind()] = slot
			mu.Unlock()
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Probes honor ctx; give them a moment to unwind, then seal
		// whatever is still unresolved as timed out.
		select {
		case <-done:
		case <-time.After(cancelGrace):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	sealed := *outcome
	for kind := range sealed.Slots {
		if sealed.Slots[kind].Status == model.StatusFailed && sealed.Slots[kind].Err == "not run" {
			if ctx.Err() != nil {
				sealed.Slots[kind] = model.Slot{
					Status: model.StatusTimedOut,
					Err:    context.DeadlineExceeded.Error(),
				}
			}
		}
	}
	return &sealed
}

// isTimeout classifies a probe error as deadline-driven rather than a
// failure of the target itself.
func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
