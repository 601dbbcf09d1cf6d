package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-portal/internal/model"
)

// PostgresSnapshotStore persists the session snapshot as JSONB, one row per
// owner.
type PostgresSnapshotStore struct {
	pool  *pgxpool.Pool
	owner string
}

// NewPostgresSnapshotStore creates a new PostgresSnapshotStore for owner.
func NewPostgresSnapshotStore(pool *pgxpool.Pool, owner string) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{pool: pool, owner: owner}
}

// ReadSnapshot returns the stored snapshot or nil if there is none.
func (r *PostgresSnapshotStore) ReadSnapshot(ctx context.Context) (*model.SessionSnapshot, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT snapshot FROM session_snapshots WHERE owner = $1`, r.owner,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// WriteSnapshot upserts snap for the owner.
func (r *PostgresSnapshotStore) WriteSnapshot(ctx context.Context, snap *model.SessionSnapshot) error {
	data, state, activeID, err := snapshotColumns(snap)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO session_snapshots (owner, snapshot, state, active_question_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner) DO UPDATE
		 SET snapshot = EXCLUDED.snapshot,
		     state = EXCLUDED.state,
		     active_question_id = EXCLUDED.active_question_id,
		     updated_at = NOW()`,
		r.owner, data, state, activeID,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// ClearSnapshot deletes the owner's row.
func (r *PostgresSnapshotStore) ClearSnapshot(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM session_snapshots WHERE owner = $1`, r.owner); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// snapshotColumns maps snap onto the session_snapshots columns.
// active_question_id is only set while an exam is running.
func snapshotColumns(snap *model.SessionSnapshot) ([]byte, string, *int64, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, "", nil, fmt.Errorf("encode snapshot: %w", err)
	}

	var activeID *int64
	if snap.ExamStarted && !snap.ExamCompleted {
		id := snap.QuestionSetID
		activeID = &id
	}
	return data, string(snap.State), activeID, nil
}
