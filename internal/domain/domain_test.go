package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestTarget_PeriodClampsToMinimum(t *testing.T) {
	cases := []struct {
		sec  int
		want time.Duration
	}{
		{0, time.Second},
		{-3, time.Second},
		{1, time.Second},
		{30, 30 * time.Second},
	}
	for _, c := range cases {
		got := Target{IntervalSec: c.sec}.Period()
		if got != c.want {
			t.Fatalf("interval %d: want %v got %v", c.sec, c.want, got)
		}
	}
}

func TestStatus_Available(t *testing.T) {
	if !StatusUp.Available() || !StatusSlow.Available() {
		t.Fatalf("Up and Slow must count as available")
	}
	if StatusDown.Available() {
		t.Fatalf("Down must not count as available")
	}
}

func TestFinite(t *testing.T) {
	if Finite(NoLatency) || Finite(math.Inf(1)) || Finite(math.NaN()) {
		t.Fatalf("sentinel values must not be finite")
	}
	if !Finite(0) || !Finite(123.4) {
		t.Fatalf("measured latencies must be finite")
	}
}

func TestClassOf_FindsWrappedClass(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := fmt.Errorf("check: %w", Wrap(ProbeConnectionError, "https://a.example", base))

	if got := ClassOf(err); got != ProbeConnectionError {
		t.Fatalf("want %s got %q", ProbeConnectionError, got)
	}
	if !errors.Is(err, base) {
		t.Fatalf("underlying error must stay reachable")
	}
	if ClassOf(base) != "" {
		t.Fatalf("plain error must have no class")
	}
	if Wrap(ProbeTimeout, "x", nil) != nil {
		t.Fatalf("wrapping nil must yield nil")
	}
}

func TestEventFor_CopiesTargetAndRecord(t *testing.T) {
	ts := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	tgt := Target{ID: "https://a.example", IntervalSec: 5, Paused: false}
	rec := HealthRecord{TargetID: tgt.ID, Timestamp: ts, Status: StatusSlow, ResponseTimeMS: 5000, RollingAvgMS: 1040}

	ev := EventFor(tgt, rec)
	if ev.TargetID != tgt.ID || ev.Interval != 5 || ev.Status != StatusSlow {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.AvgResponseMS != 1040 || ev.ResponseTimeMS != 5000 || !ev.CheckedAt.Equal(ts) {
		t.Fatalf("unexpected event timings: %+v", ev)
	}
}
