package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/notify"
)

// DefaultCooldown is the minimum gap between two alerts for one target.
const DefaultCooldown = 5 * time.Second

type Phase int

const (
	Idle Phase = iota
	Cooldown
)

// NotificationState is the per-target edge detector. It is owned by the
// target's worker and is never shared.
type NotificationState struct {
	LastStatus     domain.Status
	LastNotifiedAt time.Time
	// DownSince is when the current outage began; zero while available.
	DownSince     time.Time
	cooldownUntil time.Time
}

// Phase reports whether alerts are currently suppressed.
func (n *NotificationState) Phase(now time.Time) Phase {
	if now.Before(n.cooldownUntil) {
		return Cooldown
	}
	return Idle
}

// CooldownUntil is the end of the current cooldown, zero when none started.
func (n *NotificationState) CooldownUntil() time.Time { return n.cooldownUntil }

type Decision int

const (
	NoAlert Decision = iota
	AlertDown
	AlertRecovery
	Suppressed
)

func (d Decision) String() string {
	switch d {
	case AlertDown:
		return "down"
	case AlertRecovery:
		return "recovery"
	case Suppressed:
		return "suppressed"
	default:
		return "none"
	}
}

type AlerterConfig struct {
	Cooldown    time.Duration
	SendTimeout time.Duration
}

// Alerter fires edge-triggered alerts and fans them out to channels.
type Alerter struct {
	log      *zap.Logger
	channels []notify.Channel
	cfg      AlerterConfig
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewAlerter(log *zap.Logger, channels []notify.Channel, cfg AlerterConfig) *Alerter {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	return &Alerter{log: log, channels: channels, cfg: cfg, now: time.Now}
}

// Decide advances st with rec and reports which alert, if any, is due.
// A target with no known status is treated as previously Up.
func (a *Alerter) Decide(st *NotificationState, rec domain.HealthRecord) Decision {
	prev := st.LastStatus
	if prev == "" {
		prev = domain.StatusUp
	}
	st.LastStatus = rec.Status

	var d Decision
	switch {
	case prev.Available() && rec.Status == domain.StatusDown:
		st.DownSince = rec.Timestamp
		d = AlertDown
	case prev == domain.StatusDown && rec.Status.Available():
		st.DownSince = time.Time{}
		d = AlertRecovery
	default:
		return NoAlert
	}

	now := a.now()
	if st.Phase(now) == Cooldown {
		return Suppressed
	}
	st.LastNotifiedAt = now
	st.cooldownUntil = now.Add(a.cfg.Cooldown)
	return d
}

// Evaluate runs Decide and dispatches the resulting alert without waiting
// for delivery.
func (a *Alerter) Evaluate(ctx context.Context, st *NotificationState, rec domain.HealthRecord) Decision {
	var downtime time.Duration
	if !st.DownSince.IsZero() {
		downtime = rec.Timestamp.Sub(st.DownSince)
	}
	d := a.Decide(st, rec)
	switch d {
	case AlertDown, AlertRecovery:
		a.log.Info("alert_sent",
			zap.String("target_id", string(rec.TargetID)),
			zap.String("kind", d.String()),
			zap.Int("channels", len(a.channels)),
		)
		a.dispatch(ctx, d, rec, downtime)
	case Suppressed:
		a.log.Info("alert_suppressed_cooldown",
			zap.String("target_id", string(rec.TargetID)),
			zap.String("status", string(rec.Status)),
			zap.Time("cooldown_until", st.cooldownUntil),
		)
	}
	return d
}

func (a *Alerter) dispatch(ctx context.Context, d Decision, rec domain.HealthRecord, downtime time.Duration) {
	for _, ch := range a.channels {
		a.wg.Add(1)
		go func(ch notify.Channel) {
			defer a.wg.Done()
			cctx, cancel := context.WithTimeout(ctx, a.cfg.SendTimeout)
			defer cancel()

			var err error
			if d == AlertDown {
				err = ch.SendDown(cctx, rec.TargetID, rec.Reason)
			} else {
				err = ch.SendRecovery(cctx, rec.TargetID, downtime)
			}
			if err != nil {
				err = domain.Wrap(domain.NotificationSendError, rec.TargetID, err)
				a.log.Warn("alert_channel_failed",
					zap.String("target_id", string(rec.TargetID)),
					zap.String("channel", ch.Name()),
					zap.String("error_class", string(domain.ClassOf(err))),
					zap.Error(err),
				)
			}
		}(ch)
	}
}

// Wait blocks until every dispatched alert has been delivered or failed.
func (a *Alerter) Wait() { a.wg.Wait() }
