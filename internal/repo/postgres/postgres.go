package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/repo"
)

var _ repo.Store = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS targets (
  id           TEXT PRIMARY KEY,
  interval_sec INTEGER NOT NULL DEFAULT 5,
  paused       BOOLEAN NOT NULL DEFAULT FALSE,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS health_records (
  id               BIGSERIAL PRIMARY KEY,
  target_id        TEXT NOT NULL,
  ts               TIMESTAMPTZ NOT NULL,
  status           TEXT NOT NULL,
  reason           TEXT NOT NULL DEFAULT '',
  response_time_ms DOUBLE PRECISION NOT NULL,
  rolling_avg_ms   DOUBLE PRECISION NOT NULL,
  http_status      INTEGER NULL
);

CREATE INDEX IF NOT EXISTS idx_health_records_target_ts ON health_records (target_id, ts);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{pool: pool, log: log}, nil
}

// Migrate creates the tables if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info("postgres_schema_ready")
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// ---- TargetStore ----

func (s *Store) LoadTargets(ctx context.Context) ([]domain.Target, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, interval_sec, paused, created_at
		   FROM targets
		  ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var out []domain.Target
	for rows.Next() {
		var (
			id string
			t  domain.Target
		)
		if err := rows.Scan(&id, &t.IntervalSec, &t.Paused, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		t.ID = domain.TargetID(id)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SaveTarget(ctx context.Context, t domain.Target) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO targets (id, interval_sec, paused, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		    SET interval_sec = EXCLUDED.interval_sec,
		        paused       = EXCLUDED.paused`,
		string(t.ID), t.IntervalSec, t.Paused, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert target: %w", err)
	}
	return nil
}

func (s *Store) DeleteTarget(ctx context.Context, id domain.TargetID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM targets WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ---- HistoryStore ----

func (s *Store) SaveCheckResult(ctx context.Context, rec domain.HealthRecord) error {
	var statusPtr *int
	if rec.HTTPStatus != 0 {
		statusPtr = &rec.HTTPStatus
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO health_records
		   (target_id, ts, status, reason, response_time_ms, rolling_avg_ms, http_status)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7)`,
		string(rec.TargetID), rec.Timestamp, string(rec.Status), rec.Reason,
		rec.ResponseTimeMS, rec.RollingAvgMS, statusPtr,
	)
	if err != nil {
		return fmt.Errorf("insert health record: %w", err)
	}
	return nil
}

func (s *Store) LoadHistory(ctx context.Context, id domain.TargetID, since time.Time) ([]domain.HealthRecord, error) {
	return s.LoadRecentHistory(ctx, id, since, 0)
}

func (s *Store) LoadRecentHistory(ctx context.Context, id domain.TargetID, since time.Time, limit int) ([]domain.HealthRecord, error) {
	var lim *int64 // NULL means no limit
	if limit > 0 {
		n := int64(limit)
		lim = &n
	}
	rows, err := s.pool.Query(ctx,
		`SELECT ts, status, reason, response_time_ms, rolling_avg_ms, http_status
		   FROM (SELECT id, ts, status, reason, response_time_ms, rolling_avg_ms, http_status
		           FROM health_records
		          WHERE target_id = $1 AND ts >= $2
		          ORDER BY ts DESC, id DESC
		          LIMIT $3) recent
		  ORDER BY ts, id`,
		string(id), since, lim,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []domain.HealthRecord
	for rows.Next() {
		var (
			rec      = domain.HealthRecord{TargetID: id}
			status   string
			httpCode *int32
		)
		if err := rows.Scan(&rec.Timestamp, &status, &rec.Reason, &rec.ResponseTimeMS, &rec.RollingAvgMS, &httpCode); err != nil {
			return nil, fmt.Errorf("scan health record: %w", err)
		}
		rec.Status = domain.Status(status)
		if httpCode != nil {
			rec.HTTPStatus = int(*httpCode)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) DeleteHistory(ctx context.Context, id domain.TargetID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM health_records WHERE target_id = $1`, string(id)); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}
