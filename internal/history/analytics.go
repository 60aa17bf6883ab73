package history

import (
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hamed0406/healthwatch/internal/domain"
)

// Never is reported for a period that has not occurred in the history.
const Never = "Never"

// Reliability derives uptime and latency statistics from recs.
// Uptime counts Up and Slow as available; the average covers only records
// with a measured response time.
func Reliability(recs []domain.HealthRecord, now time.Time) domain.ReliabilityStats {
	st := domain.ReliabilityStats{
		TotalChecks:    len(recs),
		LastDownPeriod: Never,
		LastSlowPeriod: Never,
	}
	if len(recs) == 0 {
		return st
	}

	var (
		available int
		sum       float64
		finite    int
		lastDown  time.Time
		lastSlow  time.Time
	)
	for _, r := range recs {
		if r.Status.Available() {
			available++
		}
		if domain.Finite(r.ResponseTimeMS) {
			sum += r.ResponseTimeMS
			finite++
		}
		switch r.Status {
		case domain.StatusDown:
			lastDown = r.Timestamp
		case domain.StatusSlow:
			lastSlow = r.Timestamp
		}
	}

	st.UptimePct = round2(100 * float64(available) / float64(len(recs)))
	if finite > 0 {
		st.AvgResponseMS = round2(sum / float64(finite))
	}
	if !lastDown.IsZero() {
		st.LastDownPeriod = humanize.RelTime(lastDown, now, "ago", "from now")
	}
	if !lastSlow.IsZero() {
		st.LastSlowPeriod = humanize.RelTime(lastSlow, now, "ago", "from now")
	}
	return st
}

// HourlyAverages groups recs by hour of day in loc, ignoring the calendar
// date. Hours without a measured response time are omitted.
func HourlyAverages(recs []domain.HealthRecord, loc *time.Location) []domain.HourlyBucket {
	if loc == nil {
		loc = time.Local
	}
	var (
		sums   [24]float64
		counts [24]int
	)
	for _, r := range recs {
		if !domain.Finite(r.ResponseTimeMS) {
			continue
		}
		h := r.Timestamp.In(loc).Hour()
		sums[h] += r.ResponseTimeMS
		counts[h]++
	}

	out := make([]domain.HourlyBucket, 0, 24)
	for h := 0; h < 24; h++ {
		if counts[h] == 0 {
			continue
		}
		out = append(out, domain.HourlyBucket{
			Hour:              h,
			AvgResponseTimeMS: round2(sums[h] / float64(counts[h])),
			SampleCount:       counts[h],
		})
	}
	return out
}

// BestTimes orders hourly buckets from fastest to slowest. Ties keep hour order.
func BestTimes(buckets []domain.HourlyBucket) []domain.HourlyBucket {
	out := append([]domain.HourlyBucket(nil), buckets...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgResponseTimeMS < out[j].AvgResponseTimeMS
	})
	return out
}

// GroupedSeries partitions recs into epoch-aligned buckets of width interval.
// Every record lands in exactly one bucket; empty buckets are not emitted.
func GroupedSeries(recs []domain.HealthRecord, interval time.Duration) []domain.SeriesPoint {
	if interval <= 0 || len(recs) == 0 {
		return nil
	}
	width := interval.Milliseconds()
	if width <= 0 {
		width = 1
	}

	type acc struct {
		sum       float64
		finite    int
		total     int
		available int
	}
	buckets := make(map[int64]*acc)
	for _, r := range recs {
		ms := r.Timestamp.UnixMilli()
		key := floorDiv(ms, width) * width
		a := buckets[key]
		if a == nil {
			a = &acc{}
			buckets[key] = a
		}
		a.total++
		if r.Status.Available() {
			a.available++
		}
		if domain.Finite(r.ResponseTimeMS) {
			a.sum += r.ResponseTimeMS
			a.finite++
		}
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]domain.SeriesPoint, 0, len(keys))
	for _, k := range keys {
		a := buckets[k]
		p := domain.SeriesPoint{
			Timestamp:   time.UnixMilli(k).UTC(),
			SampleCount: a.total,
			UptimePct:   round2(100 * float64(a.available) / float64(a.total)),
		}
		if a.finite > 0 {
			p.AvgResponseTimeMS = round2(a.sum / float64(a.finite))
		}
		out = append(out, p)
	}
	return out
}

// floorDiv rounds toward negative infinity so pre-epoch timestamps bucket correctly.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
