package history

import (
	"testing"
	"time"

	"github.com/hamed0406/healthwatch/internal/domain"
)

func rec(ts time.Time, st domain.Status, ms float64) domain.HealthRecord {
	return domain.HealthRecord{TargetID: "https://a.example", Timestamp: ts, Status: st, ResponseTimeMS: ms}
}

func TestReliability_Empty(t *testing.T) {
	st := Reliability(nil, time.Now())
	if st.TotalChecks != 0 || st.UptimePct != 0 || st.AvgResponseMS != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.LastDownPeriod != Never || st.LastSlowPeriod != Never {
		t.Fatalf("want Never periods, got %+v", st)
	}
}

func TestReliability_CountsSlowAsAvailable(t *testing.T) {
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	recs := []domain.HealthRecord{
		rec(now.Add(-10*time.Minute), domain.StatusUp, 100),
		rec(now.Add(-9*time.Minute), domain.StatusSlow, 1500),
		rec(now.Add(-3*time.Minute), domain.StatusDown, domain.NoLatency),
		rec(now.Add(-2*time.Minute), domain.StatusUp, 200),
	}
	st := Reliability(recs, now)
	if st.TotalChecks != 4 {
		t.Fatalf("want 4 checks got %d", st.TotalChecks)
	}
	if st.UptimePct != 75 {
		t.Fatalf("want uptime 75 got %v", st.UptimePct)
	}
	// sentinel latency is excluded: (100+1500+200)/3
	if st.AvgResponseMS != 600 {
		t.Fatalf("want avg 600 got %v", st.AvgResponseMS)
	}
	if st.LastDownPeriod != "3 minutes ago" {
		t.Fatalf("unexpected down period %q", st.LastDownPeriod)
	}
	if st.LastSlowPeriod != "9 minutes ago" {
		t.Fatalf("unexpected slow period %q", st.LastSlowPeriod)
	}
}

func TestHourlyAverages_GroupsAcrossDaysAndOmitsEmpty(t *testing.T) {
	day1 := time.Date(2025, 8, 18, 9, 15, 0, 0, time.UTC)
	day2 := time.Date(2025, 8, 19, 9, 45, 0, 0, time.UTC)
	evening := time.Date(2025, 8, 18, 21, 0, 0, 0, time.UTC)
	recs := []domain.HealthRecord{
		rec(day1, domain.StatusUp, 100),
		rec(evening, domain.StatusUp, 50),
		rec(day2, domain.StatusUp, 300),
		rec(day2.Add(time.Minute), domain.StatusDown, domain.NoLatency),
	}

	got := HourlyAverages(recs, time.UTC)
	if len(got) != 2 {
		t.Fatalf("want 2 buckets got %+v", got)
	}
	if got[0].Hour != 9 || got[0].AvgResponseTimeMS != 200 || got[0].SampleCount != 2 {
		t.Fatalf("unexpected 9h bucket %+v", got[0])
	}
	if got[1].Hour != 21 || got[1].AvgResponseTimeMS != 50 || got[1].SampleCount != 1 {
		t.Fatalf("unexpected 21h bucket %+v", got[1])
	}
	for _, b := range got {
		if b.SampleCount == 0 {
			t.Fatalf("bucket with zero samples: %+v", b)
		}
	}

	best := BestTimes(got)
	if best[0].Hour != 21 || best[1].Hour != 9 {
		t.Fatalf("best times not ordered by latency: %+v", best)
	}
	if got[0].Hour != 9 {
		t.Fatalf("BestTimes must not reorder its input")
	}
}

func TestHourlyAverages_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	ts := time.Date(2025, 8, 18, 23, 30, 0, 0, time.UTC)
	got := HourlyAverages([]domain.HealthRecord{rec(ts, domain.StatusUp, 10)}, loc)
	if len(got) != 1 || got[0].Hour != 1 {
		t.Fatalf("want hour 1 in UTC+2, got %+v", got)
	}
}

func TestGroupedSeries_EpochAlignedBuckets(t *testing.T) {
	base := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	recs := []domain.HealthRecord{
		rec(base.Add(10*time.Second), domain.StatusUp, 100),
		rec(base.Add(4*time.Minute+59*time.Second), domain.StatusDown, domain.NoLatency),
		rec(base.Add(5*time.Minute), domain.StatusUp, 300),
		rec(base.Add(20*time.Minute), domain.StatusSlow, 1200),
		rec(base.Add(21*time.Minute), domain.StatusUp, 800),
	}

	pts := GroupedSeries(recs, 5*time.Minute)
	if len(pts) != 3 {
		t.Fatalf("want 3 non-empty buckets got %d: %+v", len(pts), pts)
	}

	want := []struct {
		ts     time.Time
		avg    float64
		count  int
		uptime float64
	}{
		{base, 100, 2, 50},
		{base.Add(5 * time.Minute), 300, 1, 100},
		{base.Add(20 * time.Minute), 1000, 2, 100},
	}
	total := 0
	for i, w := range want {
		p := pts[i]
		if !p.Timestamp.Equal(w.ts) || p.AvgResponseTimeMS != w.avg || p.SampleCount != w.count || p.UptimePct != w.uptime {
			t.Fatalf("bucket %d: want %+v got %+v", i, w, p)
		}
		if i > 0 && !pts[i-1].Timestamp.Before(p.Timestamp) {
			t.Fatalf("buckets not ascending")
		}
		total += p.SampleCount
	}
	if total != len(recs) {
		t.Fatalf("sample counts sum to %d, want %d", total, len(recs))
	}
}

func TestGroupedSeries_NoRecordsOrBadInterval(t *testing.T) {
	if pts := GroupedSeries(nil, time.Minute); len(pts) != 0 {
		t.Fatalf("want empty, got %+v", pts)
	}
	r := []domain.HealthRecord{rec(time.Now(), domain.StatusUp, 1)}
	if pts := GroupedSeries(r, 0); len(pts) != 0 {
		t.Fatalf("want empty for zero interval, got %+v", pts)
	}
}

func TestFloorDiv(t *testing.T) {
	cases := []struct{ a, b, want int64 }{
		{10, 5, 2}, {11, 5, 2}, {-1, 5, -1}, {-5, 5, -1}, {-6, 5, -2}, {0, 5, 0},
	}
	for _, c := range cases {
		if got := floorDiv(c.a, c.b); got != c.want {
			t.Fatalf("floorDiv(%d,%d): want %d got %d", c.a, c.b, c.want, got)
		}
	}
}
