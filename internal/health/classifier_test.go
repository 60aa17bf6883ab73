package health

import (
	"testing"
	"time"

	"github.com/hamed0406/healthwatch/internal/domain"
)

func ok(ms float64) domain.ProbeResult {
	return domain.ProbeResult{TargetID: "https://a.example", Timestamp: time.Now(), ResponseTimeMS: ms, HTTPStatus: 200}
}

func fail(class domain.ErrorClass, msg string) domain.ProbeResult {
	return domain.ProbeResult{TargetID: "https://a.example", Timestamp: time.Now(), ResponseTimeMS: domain.NoLatency, Class: class, Error: msg}
}

func TestClassify_SteadyFastIsUp(t *testing.T) {
	c := NewClassifier(1000)
	w := NewWindow(DefaultWindowSize)
	var rec domain.HealthRecord
	for i := 0; i < 5; i++ {
		rec = c.Classify(ok(100), w)
		if rec.Status != domain.StatusUp {
			t.Fatalf("check %d: want Up got %s", i, rec.Status)
		}
	}
	if rec.RollingAvgMS != 100 {
		t.Fatalf("want rolling avg 100 got %v", rec.RollingAvgMS)
	}
}

func TestClassify_SpikeAveragedIntoSlow(t *testing.T) {
	c := NewClassifier(1000)
	w := NewWindow(DefaultWindowSize)
	for i := 0; i < 4; i++ {
		c.Classify(ok(50), w)
	}
	rec := c.Classify(ok(5000), w)
	if rec.RollingAvgMS != 1040 {
		t.Fatalf("want 1040 got %v", rec.RollingAvgMS)
	}
	if rec.Status != domain.StatusSlow {
		t.Fatalf("want Slow got %s", rec.Status)
	}
}

func TestClassify_ThresholdIsExclusive(t *testing.T) {
	c := NewClassifier(1000)
	w := NewWindow(DefaultWindowSize)
	rec := c.Classify(ok(1000), w)
	if rec.Status != domain.StatusUp {
		t.Fatalf("avg equal to threshold must be Up, got %s", rec.Status)
	}
	rec = c.Classify(ok(1002), w)
	if rec.Status != domain.StatusSlow {
		t.Fatalf("avg 1001 must be Slow, got %s", rec.Status)
	}
}

func TestClassify_SixthSampleDropsOldest(t *testing.T) {
	c := NewClassifier(1000)
	w := NewWindow(DefaultWindowSize)
	c.Classify(ok(5000), w)
	for i := 0; i < 4; i++ {
		c.Classify(ok(100), w)
	}
	// window [5000,100,100,100,100] => 1080
	if w.Avg() != 1080 {
		t.Fatalf("want 1080 got %v", w.Avg())
	}
	rec := c.Classify(ok(100), w)
	if rec.Status != domain.StatusUp || rec.RollingAvgMS != 100 {
		t.Fatalf("oldest sample must leave the basis, got %s avg %v", rec.Status, rec.RollingAvgMS)
	}
}

func TestClassify_FailureIsDownRegardlessOfHistory(t *testing.T) {
	c := NewClassifier(1000)
	w := NewWindow(DefaultWindowSize)
	for i := 0; i < 5; i++ {
		c.Classify(ok(10), w)
	}
	rec := c.Classify(fail(domain.ProbeTimeout, "context deadline exceeded"), w)
	if rec.Status != domain.StatusDown {
		t.Fatalf("want Down got %s", rec.Status)
	}
	if rec.Reason != "ProbeTimeout: context deadline exceeded" {
		t.Fatalf("unexpected reason %q", rec.Reason)
	}
	if rec.ResponseTimeMS != domain.NoLatency {
		t.Fatalf("failed check must carry the no-latency sentinel, got %v", rec.ResponseTimeMS)
	}
	if w.Len() != 5 || w.Avg() != 10 {
		t.Fatalf("failure must not enter the window, got len %d avg %v", w.Len(), w.Avg())
	}
}

func TestClassify_HTTPErrorKeepsStatusCode(t *testing.T) {
	c := NewClassifier(1000)
	w := NewWindow(DefaultWindowSize)
	res := fail(domain.ProbeHTTPError, "503 Service Unavailable")
	res.HTTPStatus = 503
	res.ResponseTimeMS = 42
	rec := c.Classify(res, w)
	if rec.Status != domain.StatusDown || rec.HTTPStatus != 503 || rec.ResponseTimeMS != 42 {
		t.Fatalf("unexpected record %+v", rec)
	}
}
