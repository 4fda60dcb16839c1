package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/urlmonitor/internal/domain"
	"github.com/hamed0406/urlmonitor/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)
var _ repo.Deleter = (*Store)(nil)

// Schema is applied by EnsureSchema. One row per target id.
const Schema = `
CREATE TABLE IF NOT EXISTS debounce_state (
  target_id      TEXT PRIMARY KEY,
  failures       INTEGER NOT NULL DEFAULT 0,
  notified_down  BOOLEAN NOT NULL DEFAULT FALSE,
  notified_up    BOOLEAN NOT NULL DEFAULT FALSE,
  updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
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

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.States, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT target_id, failures, notified_down, notified_up
		   FROM debounce_state`)
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}
	defer rows.Close()

	out := domain.States{}
	for rows.Next() {
		var (
			id string
			st domain.DebounceState
		)
		if err := rows.Scan(&id, &st.ConsecutiveFailures, &st.AlertedDown, &st.AlertedUp); err != nil {
			return domain.States{}, fmt.Errorf("%w: scan state: %v", repo.ErrCorrupt, err)
		}
		out[domain.TargetID(id)] = st.Normalize(0)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	return out, nil
}

// Save replaces the table contents in one transaction.
func (s *Store) Save(ctx context.Context, states domain.States) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM debounce_state`); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for id, st := range states {
		batch.Queue(
			`INSERT INTO debounce_state (target_id, failures, notified_down, notified_up, updated_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			string(id), st.ConsecutiveFailures, st.AlertedDown, st.AlertedUp, now,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert state: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debug("state_saved", zap.Int("targets", len(states)))
	return nil
}

func (s *Store) Delete(ctx context.Context, id domain.TargetID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM debounce_state WHERE target_id = $1`, string(id))
	if err != nil {
		return false, fmt.Errorf("delete state: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
