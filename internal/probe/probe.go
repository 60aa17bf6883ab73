package probe

import (
	"context"

	"github.com/hamed0406/healthwatch/internal/domain"
)

// CheckResult is the unified result of a single probe.
//
// StatusCode is 0 when no HTTP response arrived. Class is empty on success
// and carries the failure taxonomy otherwise.
type CheckResult struct {
	Success    bool
	LatencyMS  float64
	Message    string
	StatusCode int
	Class      domain.ErrorClass
}

// Checker performs a single check for a given target URL.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func(ctx context.Context, target string) CheckResult

func (f CheckerFunc) Check(ctx context.Context, target string) CheckResult { return f(ctx, target) }
