package domain

import (
	"math"
	"time"
)

// TargetID is the probe URL in its normalized form; it is the registry key.
type TargetID string

// MinInterval is the smallest scheduling interval a target may use.
const MinInterval = 1

type Target struct {
	ID          TargetID  `json:"id"`
	IntervalSec int       `json:"interval"`
	Paused      bool      `json:"paused"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t Target) URL() string { return string(t.ID) }

// Period returns the scheduling interval, clamped to MinInterval.
func (t Target) Period() time.Duration {
	sec := t.IntervalSec
	if sec < MinInterval {
		sec = MinInterval
	}
	return time.Duration(sec) * time.Second
}

type Status string

const (
	StatusUp   Status = "Up"
	StatusSlow Status = "Slow"
	StatusDown Status = "Down"
)

// Available reports whether the status counts toward uptime.
func (s Status) Available() bool { return s == StatusUp || s == StatusSlow }

// NoLatency marks a record whose check never produced a response time.
const NoLatency = -1.0

// Finite reports whether ms is a usable response time.
func Finite(ms float64) bool {
	return ms >= 0 && !math.IsInf(ms, 0) && !math.IsNaN(ms)
}

// ProbeResult is the raw outcome of one check.
type ProbeResult struct {
	TargetID       TargetID   `json:"target_id"`
	Timestamp      time.Time  `json:"timestamp"`
	ResponseTimeMS float64    `json:"response_time_ms"`
	HTTPStatus     int        `json:"http_status,omitempty"`
	Class          ErrorClass `json:"error_class,omitempty"`
	Error          string     `json:"error,omitempty"`
}

func (p ProbeResult) Failed() bool { return p.Class != "" }

// HealthRecord is one classified check. Records for a target are appended
// in non-decreasing Timestamp order and never rewritten.
type HealthRecord struct {
	TargetID       TargetID  `json:"target_id"`
	Timestamp      time.Time `json:"timestamp"`
	Status         Status    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	RollingAvgMS   float64   `json:"rolling_avg_ms"`
	HTTPStatus     int       `json:"http_status,omitempty"`
}

type ReliabilityStats struct {
	UptimePct      float64 `json:"uptime"`
	AvgResponseMS  float64 `json:"avg_response"`
	TotalChecks    int     `json:"total_checks"`
	LastDownPeriod string  `json:"last_down_period"`
	LastSlowPeriod string  `json:"last_slow_period"`
}

type HourlyBucket struct {
	Hour              int     `json:"hour"`
	AvgResponseTimeMS float64 `json:"avg_response_time"`
	SampleCount       int     `json:"count"`
}

type SeriesPoint struct {
	Timestamp         time.Time `json:"timestamp"`
	AvgResponseTimeMS float64   `json:"avg_response_time"`
	SampleCount       int       `json:"sample_count"`
	UptimePct         float64   `json:"uptime_pct"`
}

// Event is pushed to the outbound sink after every completed check and
// whenever a target's configuration changes.
type Event struct {
	TargetID       TargetID  `json:"target_id"`
	Status         Status    `json:"status,omitempty"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	AvgResponseMS  float64   `json:"avg_response_ms"`
	Interval       int       `json:"interval"`
	Paused         bool      `json:"paused"`
	Removed        bool      `json:"removed,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	CheckedAt      time.Time `json:"checked_at,omitempty"`
}

// EventFor builds the check event for rec on target t.
func EventFor(t Target, rec HealthRecord) Event {
	return Event{
		TargetID:       t.ID,
		Status:         rec.Status,
		ResponseTimeMS: rec.ResponseTimeMS,
		AvgResponseMS:  rec.RollingAvgMS,
		Interval:       t.IntervalSec,
		Paused:         t.Paused,
		Reason:         rec.Reason,
		CheckedAt:      rec.Timestamp,
	}
}
