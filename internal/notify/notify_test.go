package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/gomail.v2"
)

type recNotifier struct {
	titles []string
	texts  []string
	err    error
}

func (r *recNotifier) Send(ctx context.Context, title, text string) error {
	r.titles = append(r.titles, title)
	r.texts = append(r.texts, text)
	return r.err
}

func TestMulti_SendsToAllAndCombinesErrors(t *testing.T) {
	a := &recNotifier{err: errors.New("a failed")}
	b := &recNotifier{}
	c := &recNotifier{err: errors.New("c failed")}

	err := Multi{a, nil, b, c}.Send(context.Background(), "T", "body")
	if len(a.titles) != 1 || len(b.titles) != 1 || len(c.titles) != 1 {
		t.Fatalf("every notifier must be called")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("want 2 combined errors, got %d (%v)", got, err)
	}
}

func TestAlerts_FormatsDownAndRecovery(t *testing.T) {
	n := &recNotifier{}
	ch := NewChannel("chat", n)
	ch.now = func() time.Time { return time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC) }

	if ch.Name() != "chat" {
		t.Fatalf("unexpected name %q", ch.Name())
	}
	if err := ch.SendDown(context.Background(), "https://a.example", "ProbeTimeout: deadline"); err != nil {
		t.Fatal(err)
	}
	if err := ch.SendRecovery(context.Background(), "https://a.example", 3*time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := ch.SendRecovery(context.Background(), "https://a.example", 0); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(n.titles[0], "DOWN") || !strings.Contains(n.titles[1], "RECOVERED") {
		t.Fatalf("unexpected titles %v", n.titles)
	}
	if !strings.Contains(n.texts[0], "Reason: ProbeTimeout: deadline") || !strings.Contains(n.texts[0], "2025-08-18T12:00:00Z") {
		t.Fatalf("unexpected down text %q", n.texts[0])
	}
	if !strings.Contains(n.texts[1], "URL: https://a.example") || !strings.Contains(n.texts[1], "Downtime: 3 minutes") {
		t.Fatalf("unexpected recovery text %q", n.texts[1])
	}
	if strings.Contains(n.texts[2], "Downtime") {
		t.Fatalf("unknown downtime should be omitted: %q", n.texts[2])
	}
}

func TestNewMail_DisabledWithoutHost(t *testing.T) {
	if NewMail(SMTPConfig{To: "ops@example.com"}) != nil {
		t.Fatalf("want nil mail without host")
	}
	if NewBrevo("", "a@example.com", "b@example.com") != nil {
		t.Fatalf("want nil brevo without key")
	}
}

func TestMail_BuildsMessage(t *testing.T) {
	m := NewMail(SMTPConfig{Host: "smtp.example.com", Username: "bot@example.com", To: "ops@example.com"})
	if m == nil {
		t.Fatal("expected mail notifier")
	}
	if m.cfg.From != "bot@example.com" || m.cfg.Port != 587 {
		t.Fatalf("defaults not applied: %+v", m.cfg)
	}

	var got *gomail.Message
	m.send = func(msg *gomail.Message) error { got = msg; return nil }
	if err := m.Send(context.Background(), "🔴 Target DOWN", "URL: https://a.example"); err != nil {
		t.Fatal(err)
	}
	if got == nil || got.GetHeader("To")[0] != "ops@example.com" || got.GetHeader("Subject")[0] != "🔴 Target DOWN" {
		t.Fatalf("unexpected message headers")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Send(ctx, "x", "y"); err == nil {
		t.Fatalf("want error on cancelled context")
	}
}
