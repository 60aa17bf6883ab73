package health

import (
	"fmt"

	"github.com/hamed0406/healthwatch/internal/domain"
)

// DefaultSlowThresholdMS is used when no threshold is configured.
const DefaultSlowThresholdMS = 1000

type Classifier struct {
	SlowThresholdMS float64
}

func NewClassifier(thresholdMS float64) Classifier {
	if thresholdMS <= 0 {
		thresholdMS = DefaultSlowThresholdMS
	}
	return Classifier{SlowThresholdMS: thresholdMS}
}

// Classify turns res into a HealthRecord, updating w with the sample on
// success. A failed check is Down on its own and leaves w untouched, so
// the reported rolling average is the one built from successful checks.
func (c Classifier) Classify(res domain.ProbeResult, w *Window) domain.HealthRecord {
	rec := domain.HealthRecord{
		TargetID:       res.TargetID,
		Timestamp:      res.Timestamp,
		ResponseTimeMS: res.ResponseTimeMS,
		HTTPStatus:     res.HTTPStatus,
	}

	if res.Failed() {
		rec.Status = domain.StatusDown
		rec.Reason = downReason(res)
		if !domain.Finite(rec.ResponseTimeMS) {
			rec.ResponseTimeMS = domain.NoLatency
		}
		rec.RollingAvgMS = w.Avg()
		return rec
	}

	w.Add(res.ResponseTimeMS)
	rec.RollingAvgMS = w.Avg()
	if rec.RollingAvgMS > c.SlowThresholdMS {
		rec.Status = domain.StatusSlow
	} else {
		rec.Status = domain.StatusUp
	}
	return rec
}

func downReason(res domain.ProbeResult) string {
	if res.Error == "" {
		return string(res.Class)
	}
	return fmt.Sprintf("%s: %s", res.Class, res.Error)
}
