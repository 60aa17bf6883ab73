// Package repotest holds behaviour checks shared by every repo.Store adapter.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/repo"
)

// Run exercises targets and history against s. IDs are unique per call so
// the checks can run against a shared database.
func Run(t *testing.T, s repo.Store) {
	t.Helper()
	ctx := context.Background()
	id := domain.TargetID(fmt.Sprintf("https://example.com/test-%d", time.Now().UTC().UnixNano()))
	created := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("targets", func(t *testing.T) {
		tgt := domain.Target{ID: id, IntervalSec: 5, CreatedAt: created}
		if err := s.SaveTarget(ctx, tgt); err != nil {
			t.Fatalf("SaveTarget: %v", err)
		}
		tgt.IntervalSec = 30
		tgt.Paused = true
		if err := s.SaveTarget(ctx, tgt); err != nil {
			t.Fatalf("SaveTarget upsert: %v", err)
		}

		got := find(t, s, id)
		if got == nil {
			t.Fatalf("saved target not loaded")
		}
		if got.IntervalSec != 30 || !got.Paused || !got.CreatedAt.Equal(created) {
			t.Fatalf("upsert not applied: %+v", *got)
		}

		if err := s.DeleteTarget(ctx, id); err != nil {
			t.Fatalf("DeleteTarget: %v", err)
		}
		if find(t, s, id) != nil {
			t.Fatalf("deleted target still loaded")
		}
		if err := s.DeleteTarget(ctx, id); !errors.Is(err, repo.ErrNotFound) {
			t.Fatalf("want ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("history", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
		recs := []domain.HealthRecord{
			{TargetID: id, Timestamp: base, Status: domain.StatusUp, ResponseTimeMS: 120, RollingAvgMS: 120, HTTPStatus: 200},
			{TargetID: id, Timestamp: base.Add(time.Minute), Status: domain.StatusDown, Reason: "ProbeTimeout: deadline", ResponseTimeMS: domain.NoLatency, RollingAvgMS: 120},
			{TargetID: id, Timestamp: base.Add(2 * time.Minute), Status: domain.StatusSlow, ResponseTimeMS: 2000, RollingAvgMS: 1060, HTTPStatus: 200},
		}
		for _, r := range recs {
			if err := s.SaveCheckResult(ctx, r); err != nil {
				t.Fatalf("SaveCheckResult: %v", err)
			}
		}

		all, err := s.LoadHistory(ctx, id, time.Time{})
		if err != nil {
			t.Fatalf("LoadHistory: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("want 3 records got %d", len(all))
		}
		for i := range recs {
			if !all[i].Timestamp.Equal(recs[i].Timestamp) || all[i].Status != recs[i].Status {
				t.Fatalf("record %d mismatch: want %+v got %+v", i, recs[i], all[i])
			}
		}
		if all[1].Reason != recs[1].Reason || all[1].ResponseTimeMS != domain.NoLatency || all[1].HTTPStatus != 0 {
			t.Fatalf("down record not preserved: %+v", all[1])
		}
		if all[2].RollingAvgMS != 1060 || all[2].HTTPStatus != 200 {
			t.Fatalf("slow record not preserved: %+v", all[2])
		}

		since, err := s.LoadHistory(ctx, id, base.Add(time.Minute))
		if err != nil {
			t.Fatalf("LoadHistory since: %v", err)
		}
		if len(since) != 2 || since[0].Status != domain.StatusDown {
			t.Fatalf("since filter wrong: %+v", since)
		}

		recent, err := s.LoadRecentHistory(ctx, id, time.Time{}, 2)
		if err != nil {
			t.Fatalf("LoadRecentHistory: %v", err)
		}
		if len(recent) != 2 || recent[0].Status != domain.StatusDown || recent[1].Status != domain.StatusSlow {
			t.Fatalf("want newest two oldest first, got %+v", recent)
		}
		recent, _ = s.LoadRecentHistory(ctx, id, base.Add(2*time.Minute), 5)
		if len(recent) != 1 || recent[0].Status != domain.StatusSlow {
			t.Fatalf("limit with since wrong: %+v", recent)
		}

		if err := s.DeleteHistory(ctx, id); err != nil {
			t.Fatalf("DeleteHistory: %v", err)
		}
		left, _ := s.LoadHistory(ctx, id, time.Time{})
		if len(left) != 0 {
			t.Fatalf("history not deleted: %d left", len(left))
		}
	})
}

func find(t *testing.T, s repo.Store, id domain.TargetID) *domain.Target {
	t.Helper()
	ts, err := s.LoadTargets(context.Background())
	if err != nil {
		t.Fatalf("LoadTargets: %v", err)
	}
	for i := range ts {
		if ts[i].ID == id {
			return &ts[i]
		}
	}
	return nil
}
