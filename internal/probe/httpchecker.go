package probe

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hamed0406/healthwatch/internal/domain"
)

// maxDrain caps how much of a response body is read when timing a check.
const maxDrain = 8 << 20

type HTTPChecker struct {
	Client  *http.Client
	Headers *HeaderTable
}

func NewHTTPChecker(timeout time.Duration, headers *HeaderTable) *HTTPChecker {
	if headers == nil {
		headers = NewHeaderTable(nil)
	}
	return &HTTPChecker{
		Client:  &http.Client{Timeout: timeout},
		Headers: headers,
	}
}

// Check issues one GET and times it until the body has been read.
// Any non-2xx response is a failure. Nothing is retried.
func (h *HTTPChecker) Check(ctx context.Context, target string) CheckResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return CheckResult{Success: false, Message: err.Error(), LatencyMS: domain.NoLatency, Class: domain.ProbeConnectionError}
	}
	for k, vs := range h.Headers.For(req.URL.Hostname()) {
		req.Header[k] = vs
	}

	start := time.Now()
	resp, err := h.Client.Do(req)
	if err != nil {
		return CheckResult{Success: false, Message: err.Error(), LatencyMS: domain.NoLatency, Class: classify(ctx, err)}
	}
	_, drainErr := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	resp.Body.Close()
	latency := float64(time.Since(start).Microseconds()) / 1000

	if drainErr != nil {
		return CheckResult{Success: false, Message: drainErr.Error(), LatencyMS: domain.NoLatency, StatusCode: resp.StatusCode, Class: classify(ctx, drainErr)}
	}

	out := CheckResult{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		Message:    resp.Status,
		LatencyMS:  latency,
		StatusCode: resp.StatusCode,
	}
	if !out.Success {
		out.Class = domain.ProbeHTTPError
	}
	return out
}

func classify(ctx context.Context, err error) domain.ErrorClass {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ProbeTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.ProbeTimeout
	}
	return domain.ProbeConnectionError
}
