package history

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/healthwatch/internal/domain"
)

var (
	ErrOutOfOrder      = errors.New("history: record older than last appended")
	ErrInvalidInterval = errors.New("history: interval must be positive")
)

// DefaultMaxRecords bounds each target's history when no limit is configured.
const DefaultMaxRecords = 5000

type Options struct {
	MaxRecords int           // count bound per target; <=0 uses DefaultMaxRecords
	MaxAge     time.Duration // age bound; 0 disables
	Location   *time.Location
	Now        func() time.Time
}

// Store keeps a bounded, append-only HealthRecord log per target.
// Series are independent; writers for different targets never contend.
type Store struct {
	mu     sync.RWMutex
	series map[domain.TargetID]*series

	maxRecords int
	maxAge     time.Duration
	loc        *time.Location
	now        func() time.Time
}

type series struct {
	mu   sync.RWMutex
	recs []domain.HealthRecord
	head int // first live record; recs[:head] are trimmed
}

func New(opts Options) *Store {
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		series:     make(map[domain.TargetID]*series),
		maxRecords: opts.MaxRecords,
		maxAge:     opts.MaxAge,
		loc:        opts.Location,
		now:        opts.Now,
	}
}

func (s *Store) get(id domain.TargetID) *series {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series[id]
}

func (s *Store) getOrCreate(id domain.TargetID) *series {
	if sr := s.get(id); sr != nil {
		return sr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sr := s.series[id]
	if sr == nil {
		sr = &series{}
		s.series[id] = sr
	}
	return sr
}

// Record appends rec, trimming the oldest records once a bound is exceeded.
func (s *Store) Record(rec domain.HealthRecord) error {
	sr := s.getOrCreate(rec.TargetID)
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if n := len(sr.recs); n > sr.head && rec.Timestamp.Before(sr.recs[n-1].Timestamp) {
		return fmt.Errorf("%w: %s at %s", ErrOutOfOrder, rec.TargetID, rec.Timestamp.Format(time.RFC3339Nano))
	}
	sr.recs = append(sr.recs, rec)
	s.trim(sr)
	return nil
}

// Load replaces a target's history, e.g. when seeding from persistence.
func (s *Store) Load(id domain.TargetID, recs []domain.HealthRecord) {
	cp := append([]domain.HealthRecord(nil), recs...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Timestamp.Before(cp[j].Timestamp) })

	sr := s.getOrCreate(id)
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.recs = cp
	sr.head = 0
	s.trim(sr)
}

func (s *Store) trim(sr *series) {
	if over := len(sr.recs) - sr.head - s.maxRecords; over > 0 {
		sr.head += over
	}
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		for sr.head < len(sr.recs) && sr.recs[sr.head].Timestamp.Before(cutoff) {
			sr.head++
		}
	}
	// compact once the dead prefix dominates so append stays amortized O(1)
	if sr.head > 0 && sr.head >= len(sr.recs)/2 {
		live := make([]domain.HealthRecord, len(sr.recs)-sr.head, s.maxRecords+1)
		copy(live, sr.recs[sr.head:])
		sr.recs = live
		sr.head = 0
	}
}

// Snapshot returns a copy of a target's live records, oldest first.
func (s *Store) Snapshot(id domain.TargetID) []domain.HealthRecord {
	sr := s.get(id)
	if sr == nil {
		return nil
	}
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return append([]domain.HealthRecord(nil), sr.recs[sr.head:]...)
}

// Since returns the records at or after t.
func (s *Store) Since(id domain.TargetID, t time.Time) []domain.HealthRecord {
	recs := s.Snapshot(id)
	i := sort.Search(len(recs), func(i int) bool { return !recs[i].Timestamp.Before(t) })
	return recs[i:]
}

// Latest returns the most recent record for id.
func (s *Store) Latest(id domain.TargetID) (domain.HealthRecord, bool) {
	sr := s.get(id)
	if sr == nil {
		return domain.HealthRecord{}, false
	}
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	if len(sr.recs) == sr.head {
		return domain.HealthRecord{}, false
	}
	return sr.recs[len(sr.recs)-1], true
}

// Oldest returns the timestamp of the oldest retained record.
func (s *Store) Oldest(id domain.TargetID) (time.Time, bool) {
	sr := s.get(id)
	if sr == nil {
		return time.Time{}, false
	}
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	if len(sr.recs) == sr.head {
		return time.Time{}, false
	}
	return sr.recs[sr.head].Timestamp, true
}

func (s *Store) Len(id domain.TargetID) int {
	sr := s.get(id)
	if sr == nil {
		return 0
	}
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return len(sr.recs) - sr.head
}

// Drop forgets a target's history.
func (s *Store) Drop(id domain.TargetID) {
	s.mu.Lock()
	delete(s.series, id)
	s.mu.Unlock()
}

func (s *Store) Reliability(id domain.TargetID) domain.ReliabilityStats {
	return Reliability(s.Snapshot(id), s.now())
}

func (s *Store) HourlyAverages(id domain.TargetID) []domain.HourlyBucket {
	return HourlyAverages(s.Snapshot(id), s.loc)
}

func (s *Store) BestTimes(id domain.TargetID) []domain.HourlyBucket {
	return BestTimes(s.HourlyAverages(id))
}

// GroupedSeries honors intervalMinutes literally; fitting it to the data
// age is left to the caller.
func (s *Store) GroupedSeries(id domain.TargetID, intervalMinutes int) ([]domain.SeriesPoint, error) {
	if intervalMinutes <= 0 {
		return nil, ErrInvalidInterval
	}
	return GroupedSeries(s.Snapshot(id), time.Duration(intervalMinutes)*time.Minute), nil
}
