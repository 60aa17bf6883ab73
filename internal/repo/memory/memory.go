package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/repo"
)

var _ repo.Store = (*Store)(nil)

// DefaultMaxRecords caps each target's history when no option is given.
const DefaultMaxRecords = 5000

type Store struct {
	mu      sync.RWMutex
	targets map[domain.TargetID]domain.Target
	history map[domain.TargetID][]domain.HealthRecord

	maxRecords int
	maxAge     time.Duration
}

type Option func(*Store)

// WithMaxRecords keeps at most n records per target; n <= 0 keeps the default.
func WithMaxRecords(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRecords = n
		}
	}
}

// WithMaxAge drops records older than d relative to the newest one.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) { s.maxAge = d }
}

func New(opts ...Option) *Store {
	s := &Store{
		targets:    make(map[domain.TargetID]domain.Target),
		history:    make(map[domain.TargetID][]domain.HealthRecord),
		maxRecords: DefaultMaxRecords,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (m *Store) LoadTargets(ctx context.Context) ([]domain.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Target, 0, len(m.targets))
	for _, t := range m.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) SaveTarget(ctx context.Context, t domain.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.targets[t.ID] = t
	return nil
}

func (m *Store) DeleteTarget(ctx context.Context, id domain.TargetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.targets[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.targets, id)
	return nil
}

func (m *Store) SaveCheckResult(ctx context.Context, rec domain.HealthRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := append(m.history[rec.TargetID], rec)

	drop := max(len(h)-m.maxRecords, 0)
	if m.maxAge > 0 {
		cutoff := rec.Timestamp.Add(-m.maxAge)
		for drop < len(h) && h[drop].Timestamp.Before(cutoff) {
			drop++
		}
	}
	if drop > 0 {
		// append reallocates once the front-sliced capacity runs out
		h = h[drop:]
	}
	m.history[rec.TargetID] = h
	return nil
}

func (m *Store) LoadHistory(ctx context.Context, id domain.TargetID, since time.Time) ([]domain.HealthRecord, error) {
	return m.LoadRecentHistory(ctx, id, since, 0)
}

// LoadRecentHistory returns the newest limit records at or after since,
// oldest first. limit <= 0 returns all of them.
func (m *Store) LoadRecentHistory(ctx context.Context, id domain.TargetID, since time.Time, limit int) ([]domain.HealthRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.HealthRecord
	for _, r := range m.history[id] {
		if since.IsZero() || !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *Store) DeleteHistory(ctx context.Context, id domain.TargetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, id)
	return nil
}

func (m *Store) Close() error { return nil }
