package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hamed0406/healthwatch/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Ports (interfaces); swap in any DB adapter.

// TargetStore is authoritative for target configuration.
type TargetStore interface {
	LoadTargets(ctx context.Context) ([]domain.Target, error)
	// SaveTarget inserts or replaces the target with the same ID.
	SaveTarget(ctx context.Context, t domain.Target) error
	// DeleteTarget returns ErrNotFound when id is unknown.
	DeleteTarget(ctx context.Context, id domain.TargetID) error
}

// HistoryStore is the append-only log of classified checks.
type HistoryStore interface {
	SaveCheckResult(ctx context.Context, rec domain.HealthRecord) error
	// LoadHistory returns records at or after since (all when zero), oldest first.
	LoadHistory(ctx context.Context, id domain.TargetID, since time.Time) ([]domain.HealthRecord, error)
	// LoadRecentHistory is LoadHistory limited to the newest limit records
	// (all when limit <= 0), still oldest first.
	LoadRecentHistory(ctx context.Context, id domain.TargetID, since time.Time, limit int) ([]domain.HealthRecord, error)
	DeleteHistory(ctx context.Context, id domain.TargetID) error
}

type Store interface {
	TargetStore
	HistoryStore
	Close() error
}
