package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/probe"
)

type worker struct {
	id       domain.TargetID
	period   time.Duration // as last requested; guarded by Scheduler.mu
	initial  time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	periodCh chan time.Duration
	done     chan struct{}
	after    <-chan struct{}
	state    *targetState
}

// setPeriod hands a new interval to the running loop, replacing any
// interval it has not picked up yet. Callers hold Scheduler.mu.
func (w *worker) setPeriod(p time.Duration) {
	w.period = p
	select {
	case <-w.periodCh:
	default:
	}
	w.periodCh <- p
}

// run fires immediately, then every period. A tick that arrives while
// the previous probe is still in flight is skipped. After cancellation
// any in-flight result is dropped.
func (w *worker) run(s *Scheduler) {
	defer close(w.done)
	if w.after != nil {
		select {
		case <-w.after:
		case <-w.ctx.Done():
			return
		}
	}
	s.seed(w.ctx, w.id, w.state)

	period := w.initial
	select {
	case period = <-w.periodCh:
	default:
	}
	timer := time.NewTimer(0)
	defer timer.Stop()

	var (
		lastFire time.Time
		inflight chan domain.ProbeResult
	)
	for {
		select {
		case <-w.ctx.Done():
			return

		case p := <-w.periodCh:
			period = p
			if lastFire.IsZero() {
				continue
			}
			// keep the phase: the next tick is one new period after the last one
			timer.Stop()
			timer.Reset(max(time.Until(lastFire.Add(period)), 0))

		case <-timer.C:
			lastFire = time.Now()
			timer.Reset(period)
			if inflight != nil {
				s.log.Debug("check_skipped_inflight", zap.String("target_id", string(w.id)))
				continue
			}
			inflight = make(chan domain.ProbeResult, 1)
			go s.probe(w.id, inflight)

		case res := <-inflight:
			inflight = nil
			if w.ctx.Err() != nil {
				return
			}
			s.complete(w.ctx, w.state, res)
		}
	}
}

// probe runs one check bounded by the configured timeout. It is tied to
// the scheduler's root context rather than the worker's, so a probe for a
// retired target runs to completion and its result is simply not read.
func (s *Scheduler) probe(id domain.TargetID, out chan<- domain.ProbeResult) {
	s.mu.Lock()
	root := s.root
	s.mu.Unlock()
	if root == nil {
		root = context.Background()
	}
	ctx, cancel := context.WithTimeout(root, s.cfg.Timeout)
	defer cancel()

	res := s.checker.Check(ctx, string(id))
	out <- toProbeResult(id, s.now(), res)
}

func toProbeResult(id domain.TargetID, at time.Time, res probe.CheckResult) domain.ProbeResult {
	pr := domain.ProbeResult{
		TargetID:       id,
		Timestamp:      at,
		ResponseTimeMS: res.LatencyMS,
		HTTPStatus:     res.StatusCode,
	}
	if !res.Success {
		pr.Class = res.Class
		if pr.Class == "" {
			pr.Class = domain.ProbeConnectionError
		}
		pr.Error = res.Message
	}
	return pr
}
