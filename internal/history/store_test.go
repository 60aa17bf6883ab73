package history

import (
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/healthwatch/internal/domain"
)

const tid = domain.TargetID("https://a.example")

func TestStore_RecordAndSnapshot(t *testing.T) {
	s := New(Options{})
	base := time.Now()
	for i := 0; i < 3; i++ {
		if err := s.Record(rec(base.Add(time.Duration(i)*time.Second), domain.StatusUp, float64(i))); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	got := s.Snapshot(tid)
	if len(got) != 3 || got[0].ResponseTimeMS != 0 || got[2].ResponseTimeMS != 2 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	got[0].ResponseTimeMS = 99
	if s.Snapshot(tid)[0].ResponseTimeMS != 0 {
		t.Fatalf("snapshot must be a copy")
	}
	if l, ok := s.Latest(tid); !ok || l.ResponseTimeMS != 2 {
		t.Fatalf("unexpected latest %+v", l)
	}
}

func TestStore_RejectsOutOfOrder(t *testing.T) {
	s := New(Options{})
	now := time.Now()
	if err := s.Record(rec(now, domain.StatusUp, 1)); err != nil {
		t.Fatal(err)
	}
	err := s.Record(rec(now.Add(-time.Second), domain.StatusUp, 1))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("want ErrOutOfOrder got %v", err)
	}
	// equal timestamps are allowed (non-decreasing)
	if err := s.Record(rec(now, domain.StatusUp, 2)); err != nil {
		t.Fatalf("equal timestamp rejected: %v", err)
	}
}

func TestStore_CountRetentionTrimsOldest(t *testing.T) {
	s := New(Options{MaxRecords: 3})
	base := time.Now()
	for i := 0; i < 10; i++ {
		_ = s.Record(rec(base.Add(time.Duration(i)*time.Second), domain.StatusUp, float64(i)))
	}
	got := s.Snapshot(tid)
	if len(got) != 3 || s.Len(tid) != 3 {
		t.Fatalf("want 3 records got %d", len(got))
	}
	if got[0].ResponseTimeMS != 7 || got[2].ResponseTimeMS != 9 {
		t.Fatalf("oldest not trimmed: %+v", got)
	}
	if old, _ := s.Oldest(tid); !old.Equal(base.Add(7 * time.Second)) {
		t.Fatalf("unexpected oldest %v", old)
	}
}

func TestStore_AgeRetention(t *testing.T) {
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	s := New(Options{MaxAge: time.Hour, Now: func() time.Time { return now }})
	_ = s.Record(rec(now.Add(-2*time.Hour), domain.StatusUp, 1))
	_ = s.Record(rec(now.Add(-30*time.Minute), domain.StatusUp, 2))
	got := s.Snapshot(tid)
	if len(got) != 1 || got[0].ResponseTimeMS != 2 {
		t.Fatalf("expired record kept: %+v", got)
	}
}

func TestStore_LoadSortsAndSince(t *testing.T) {
	s := New(Options{})
	base := time.Now().Add(-time.Hour)
	s.Load(tid, []domain.HealthRecord{
		rec(base.Add(2*time.Minute), domain.StatusUp, 2),
		rec(base, domain.StatusUp, 0),
		rec(base.Add(time.Minute), domain.StatusDown, domain.NoLatency),
	})
	since := s.Since(tid, base.Add(time.Minute))
	if len(since) != 2 || since[0].Status != domain.StatusDown {
		t.Fatalf("unexpected since result %+v", since)
	}
	if err := s.Record(rec(base.Add(3*time.Minute), domain.StatusUp, 3)); err != nil {
		t.Fatalf("append after load: %v", err)
	}
}

func TestStore_DropAndAnalyticsReads(t *testing.T) {
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	s := New(Options{Location: time.UTC, Now: func() time.Time { return now }})
	_ = s.Record(rec(now.Add(-time.Minute), domain.StatusUp, 100))

	if st := s.Reliability(tid); st.TotalChecks != 1 || st.UptimePct != 100 {
		t.Fatalf("unexpected reliability %+v", st)
	}
	if hb := s.HourlyAverages(tid); len(hb) != 1 || hb[0].Hour != 11 {
		t.Fatalf("unexpected hourly %+v", hb)
	}
	if bt := s.BestTimes(tid); len(bt) != 1 {
		t.Fatalf("unexpected best times %+v", bt)
	}
	if _, err := s.GroupedSeries(tid, 0); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("want ErrInvalidInterval got %v", err)
	}
	pts, err := s.GroupedSeries(tid, 60)
	if err != nil || len(pts) != 1 {
		t.Fatalf("unexpected series %+v err %v", pts, err)
	}

	s.Drop(tid)
	if s.Len(tid) != 0 || s.Snapshot(tid) != nil {
		t.Fatalf("history not dropped")
	}
	if _, ok := s.Oldest(tid); ok {
		t.Fatalf("oldest after drop")
	}
}
