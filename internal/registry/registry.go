package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/repo"
)

var (
	ErrNotFound        = errors.New("target not found")
	ErrInvalidInterval = fmt.Errorf("interval must be at least %d second", domain.MinInterval)
)

// Diff describes what a reload changed.
type Diff struct {
	Added   []domain.Target
	Changed []domain.Target
	Removed []domain.TargetID
}

func (d Diff) Empty() bool { return len(d.Added)+len(d.Changed)+len(d.Removed) == 0 }

// Registry is the in-memory view of configured targets. Reads run
// concurrently; writes go to the store first and are serialized.
type Registry struct {
	store repo.TargetStore

	wmu     sync.Mutex // serializes writers across the store round-trip
	mu      sync.RWMutex
	targets map[domain.TargetID]domain.Target
	now     func() time.Time
}

func New(store repo.TargetStore) *Registry {
	return &Registry{
		store:   store,
		targets: make(map[domain.TargetID]domain.Target),
		now:     time.Now,
	}
}

// Reload replaces the view with the store's contents and reports the difference.
func (r *Registry) Reload(ctx context.Context) (Diff, error) {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	loaded, err := r.store.LoadTargets(ctx)
	if err != nil {
		return Diff{}, fmt.Errorf("load targets: %w", err)
	}
	next := make(map[domain.TargetID]domain.Target, len(loaded))
	for _, t := range loaded {
		if t.IntervalSec < domain.MinInterval {
			t.IntervalSec = domain.MinInterval
		}
		next[t.ID] = t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var d Diff
	for id, t := range next {
		old, ok := r.targets[id]
		switch {
		case !ok:
			d.Added = append(d.Added, t)
		case old.IntervalSec != t.IntervalSec || old.Paused != t.Paused:
			d.Changed = append(d.Changed, t)
		}
	}
	for id := range r.targets {
		if _, ok := next[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}
	r.targets = next
	return d, nil
}

// List returns every target, oldest first.
func (r *Registry) List() []domain.Target {
	r.mu.RLock()
	out := make([]domain.Target, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ListActive returns the targets that should be scheduled.
func (r *Registry) ListActive() []domain.Target {
	all := r.List()
	out := all[:0]
	for _, t := range all {
		if !t.Paused {
			out = append(out, t)
		}
	}
	return out
}

func (r *Registry) Get(id domain.TargetID) (domain.Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[id]
	return t, ok
}

// Upsert stores t and updates the view. CreatedAt is kept from an existing
// entry and defaulted for a new one.
func (r *Registry) Upsert(ctx context.Context, t domain.Target) (domain.Target, error) {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if old, ok := r.Get(t.ID); ok {
		t.CreatedAt = old.CreatedAt
	} else if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now().UTC()
	}
	return r.save(ctx, t)
}

func (r *Registry) save(ctx context.Context, t domain.Target) (domain.Target, error) {
	if t.IntervalSec < domain.MinInterval {
		return domain.Target{}, ErrInvalidInterval
	}
	if err := r.store.SaveTarget(ctx, t); err != nil {
		return domain.Target{}, fmt.Errorf("save target: %w", err)
	}
	r.mu.Lock()
	r.targets[t.ID] = t
	r.mu.Unlock()
	return t, nil
}

// Remove deletes id from the store and the view. A target the store no
// longer knows is still dropped from the view.
func (r *Registry) Remove(ctx context.Context, id domain.TargetID) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	if _, ok := r.Get(id); !ok {
		return ErrNotFound
	}
	if err := r.store.DeleteTarget(ctx, id); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("delete target: %w", err)
	}
	r.mu.Lock()
	delete(r.targets, id)
	r.mu.Unlock()
	return nil
}

func (r *Registry) update(ctx context.Context, id domain.TargetID, fn func(*domain.Target)) (domain.Target, error) {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	t, ok := r.Get(id)
	if !ok {
		return domain.Target{}, ErrNotFound
	}
	fn(&t)
	return r.save(ctx, t)
}

func (r *Registry) SetPaused(ctx context.Context, id domain.TargetID, paused bool) (domain.Target, error) {
	return r.update(ctx, id, func(t *domain.Target) { t.Paused = paused })
}

// TogglePaused flips the paused flag.
func (r *Registry) TogglePaused(ctx context.Context, id domain.TargetID) (domain.Target, error) {
	return r.update(ctx, id, func(t *domain.Target) { t.Paused = !t.Paused })
}

func (r *Registry) SetInterval(ctx context.Context, id domain.TargetID, sec int) (domain.Target, error) {
	return r.update(ctx, id, func(t *domain.Target) { t.IntervalSec = sec })
}
