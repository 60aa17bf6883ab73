package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"

	"github.com/hamed0406/healthwatch/internal/domain"
)

// Notifier is a transport that delivers a titled text message.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi sends through every non-nil notifier and reports all failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, n.Send(ctx, title, text))
	}
	return errs
}

// Channel is the alert contract the dispatcher fans out to.
type Channel interface {
	Name() string
	SendDown(ctx context.Context, id domain.TargetID, summary string) error
	// SendRecovery reports the outage length; zero when it is not known.
	SendRecovery(ctx context.Context, id domain.TargetID, downtime time.Duration) error
}

// Alerts formats down and recovery alerts and hands them to a Notifier.
type Alerts struct {
	name string
	n    Notifier
	now  func() time.Time
}

func NewChannel(name string, n Notifier) *Alerts {
	return &Alerts{name: name, n: n, now: time.Now}
}

func (a *Alerts) Name() string { return a.name }

func (a *Alerts) SendDown(ctx context.Context, id domain.TargetID, summary string) error {
	text := fmt.Sprintf("URL: %s\nReason: %s\nChecked: %s", id, summary, a.now().UTC().Format(time.RFC3339))
	return a.n.Send(ctx, "🔴 Target DOWN", text)
}

func (a *Alerts) SendRecovery(ctx context.Context, id domain.TargetID, downtime time.Duration) error {
	now := a.now()
	text := fmt.Sprintf("URL: %s\nRecovered: %s", id, now.UTC().Format(time.RFC3339))
	if downtime > 0 {
		text += "\nDowntime: " + strings.TrimSpace(humanize.RelTime(now.Add(-downtime), now, "", ""))
	}
	return a.n.Send(ctx, "🟢 Target RECOVERED", text)
}
