package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EnqueueMutation appends a pending mutation recording the intended end state
// of an entry. Mutations for the same entry replay in insertion order.
func (s *Store) EnqueueMutation(ctx context.Context, mut *Mutation) (*Mutation, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_mutations (
            remote_id, progress, status, score, rewatch_count,
            local_version, attempts, last_error, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		mut.RemoteID,
		mut.Progress,
		string(mut.Status),
		mut.Score,
		mut.RewatchCount,
		mut.LocalVersion,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue mutation for %d: %w", mut.RemoteID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetMutation(ctx, id)
}

// GetMutation fetches one pending mutation, nil when absent.
func (s *Store) GetMutation(ctx context.Context, id int64) (*Mutation, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+mutationColumns+" FROM pending_mutations WHERE id = ?", id)
	mut, err := scanMutation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mutation %d: %w", id, err)
	}
	return mut, nil
}

// NextMutation returns the oldest pending mutation, nil when the queue is
// empty. Ordering by id keeps per-entry mutations in submission order.
func (s *Store) NextMutation(ctx context.Context) (*Mutation, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+mutationColumns+" FROM pending_mutations ORDER BY id LIMIT 1")
	mut, err := scanMutation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next mutation: %w", err)
	}
	return mut, nil
}

// PendingMutations lists every pending mutation in submission order.
func (s *Store) PendingMutations(ctx context.Context) ([]*Mutation, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+mutationColumns+" FROM pending_mutations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	defer rows.Close()

	var muts []*Mutation
	for rows.Next() {
		mut, err := scanMutation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		muts = append(muts, mut)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return muts, nil
}

// HasPending reports whether an entry has mutations awaiting sync.
func (s *Store) HasPending(ctx context.Context, remoteID int64) (bool, error) {
	var count int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM pending_mutations WHERE remote_id = ?", remoteID)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("count pending for %d: %w", remoteID, err)
	}
	return count > 0, nil
}

// RecordAttempt increments the attempt counter and stores the failure reason.
func (s *Store) RecordAttempt(ctx context.Context, id int64, failure string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		"UPDATE pending_mutations SET attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?",
		nullableString(failure), now, id,
	)
	if err != nil {
		return fmt.Errorf("record attempt %d: %w", id, err)
	}
	return nil
}

// DeleteMutation drops an acknowledged or abandoned mutation.
func (s *Store) DeleteMutation(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM pending_mutations WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete mutation %d: %w", id, err)
	}
	return nil
}
