package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetByRemoteID fetches one entry. It returns nil without error when the
// entry does not exist.
func (s *Store) GetByRemoteID(ctx context.Context, remoteID int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE remote_id = ?", remoteID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", remoteID, err)
	}
	return entry, nil
}

// List returns every cached entry of the given kind ordered by primary title.
func (s *Store) List(ctx context.Context, kind MediaKind) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE media_kind = ? ORDER BY titles_json",
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListByStatus returns entries of the given kind in any of the listed statuses.
func (s *Store) ListByStatus(ctx context.Context, kind MediaKind, statuses ...Status) ([]*Entry, error) {
	if len(statuses) == 0 {
		return s.List(ctx, kind)
	}
	args := make([]any, 0, len(statuses)+1)
	args = append(args, string(kind))
	for _, status := range statuses {
		args = append(args, string(status))
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE media_kind = ? AND status IN ("+makePlaceholders(len(statuses))+") ORDER BY titles_json",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries by status: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// Candidates returns the entries the matcher should consider for automatic
// updates: watching and rewatching always, planned when includePlanned is set.
func (s *Store) Candidates(ctx context.Context, kind MediaKind, includePlanned bool) ([]*Entry, error) {
	statuses := []Status{StatusWatching, StatusRewatching}
	if includePlanned {
		statuses = append(statuses, StatusPlanned)
	}
	return s.ListByStatus(ctx, kind, statuses...)
}

// Upsert inserts or replaces an entry, preserving last_auto_episode across
// refreshes so already-applied episodes are not re-applied.
func (s *Store) Upsert(ctx context.Context, entry *Entry) error {
	titles, err := marshalTitles(entry.Titles)
	if err != nil {
		return fmt.Errorf("marshal titles: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries (
            remote_id, media_kind, titles_json, status, progress, total_units,
            score, rewatch_count, last_auto_episode, pending_sync,
            last_synced_at, local_version, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(remote_id) DO UPDATE SET
            media_kind = excluded.media_kind,
            titles_json = excluded.titles_json,
            status = excluded.status,
            progress = excluded.progress,
            total_units = excluded.total_units,
            score = excluded.score,
            rewatch_count = excluded.rewatch_count,
            last_auto_episode = MAX(entries.last_auto_episode, excluded.last_auto_episode),
            pending_sync = excluded.pending_sync,
            last_synced_at = excluded.last_synced_at,
            local_version = entries.local_version + 1,
            updated_at = excluded.updated_at`,
		entry.RemoteID,
		string(entry.MediaKind),
		titles,
		string(entry.Status),
		entry.Progress,
		entry.TotalUnits,
		entry.Score,
		entry.RewatchCount,
		entry.LastAutoEpisode,
		boolToInt(entry.PendingSync),
		nullableTime(entry.LastSyncedAt),
		entry.LocalVersion,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert entry %d: %w", entry.RemoteID, err)
	}
	return nil
}

// ApplyLocal records a locally decided update: new progress, status, score,
// rewatch count, and the episode marker, flagged as awaiting sync.
func (s *Store) ApplyLocal(ctx context.Context, entry *Entry) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE entries SET
            status = ?, progress = ?, score = ?, rewatch_count = ?,
            last_auto_episode = ?, pending_sync = 1,
            local_version = local_version + 1, updated_at = ?
        WHERE remote_id = ?`,
		string(entry.Status),
		entry.Progress,
		entry.Score,
		entry.RewatchCount,
		entry.LastAutoEpisode,
		now,
		entry.RemoteID,
	)
	if err != nil {
		return fmt.Errorf("apply local update %d: %w", entry.RemoteID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("apply local update %d: entry not found", entry.RemoteID)
	}
	return nil
}

// MarkSynced clears the pending flag and stamps the last successful sync.
func (s *Store) MarkSynced(ctx context.Context, remoteID int64, at time.Time) error {
	stamp := at.UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		"UPDATE entries SET pending_sync = 0, last_synced_at = ?, updated_at = ? WHERE remote_id = ?",
		stamp, stamp, remoteID,
	)
	if err != nil {
		return fmt.Errorf("mark synced %d: %w", remoteID, err)
	}
	return nil
}

// Remove deletes an entry and any pending mutations referring to it.
func (s *Store) Remove(ctx context.Context, remoteID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM pending_mutations WHERE remote_id = ?", remoteID); err != nil {
		return fmt.Errorf("delete pending for %d: %w", remoteID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE remote_id = ?", remoteID); err != nil {
		return fmt.Errorf("delete entry %d: %w", remoteID, err)
	}
	return tx.Commit()
}

// ReplaceAll rebuilds one kind's entries from a fresh remote snapshot.
// Entries still awaiting sync keep their local state; the remote copy wins
// everywhere else, except last_auto_episode which is local-only and survives
// refreshes. It returns the number of stored entries.
func (s *Store) ReplaceAll(ctx context.Context, kind MediaKind, entries []*Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	pending := make(map[int64]struct{})
	var resident []int64
	rows, err := tx.QueryContext(ctx,
		"SELECT remote_id, pending_sync FROM entries WHERE media_kind = ?",
		string(kind),
	)
	if err != nil {
		return 0, fmt.Errorf("query entry ids: %w", err)
	}
	for rows.Next() {
		var id int64
		var flagged int
		if err := rows.Scan(&id, &flagged); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan entry id: %w", err)
		}
		if flagged != 0 {
			pending[id] = struct{}{}
		} else {
			resident = append(resident, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate entry ids: %w", err)
	}

	snapshot := make(map[int64]struct{}, len(entries))
	for _, entry := range entries {
		snapshot[entry.RemoteID] = struct{}{}
	}

	// Only at-rest rows the remote no longer lists are dropped. Rows still
	// in the snapshot are upserted below so last_auto_episode survives even
	// when the remote copy moved backwards.
	for _, id := range resident {
		if _, keep := snapshot[id]; keep {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE remote_id = ?", id); err != nil {
			return 0, fmt.Errorf("delete entry %d: %w", id, err)
		}
	}

	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339Nano)
	stored := 0
	for _, entry := range entries {
		if _, holdBack := pending[entry.RemoteID]; holdBack {
			continue
		}
		titles, err := marshalTitles(entry.Titles)
		if err != nil {
			return 0, fmt.Errorf("marshal titles: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (
                remote_id, media_kind, titles_json, status, progress, total_units,
                score, rewatch_count, last_auto_episode, pending_sync,
                last_synced_at, local_version, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, 0, ?)
            ON CONFLICT(remote_id) DO UPDATE SET
                media_kind = excluded.media_kind,
                titles_json = excluded.titles_json,
                status = excluded.status,
                progress = excluded.progress,
                total_units = excluded.total_units,
                score = excluded.score,
                rewatch_count = excluded.rewatch_count,
                last_auto_episode = MAX(entries.last_auto_episode, excluded.last_auto_episode),
                last_synced_at = excluded.last_synced_at,
                updated_at = excluded.updated_at`,
			entry.RemoteID,
			string(entry.MediaKind),
			titles,
			string(entry.Status),
			entry.Progress,
			entry.TotalUnits,
			entry.Score,
			entry.RewatchCount,
			entry.LastAutoEpisode,
			stamp,
			stamp,
		); err != nil {
			return 0, fmt.Errorf("store entry %d: %w", entry.RemoteID, err)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	return stored, nil
}

// Clear removes every entry and pending mutation.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM pending_mutations"); err != nil {
		return fmt.Errorf("clear pending mutations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return tx.Commit()
}

// Stats summarizes the cache for status displays.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByStatus: make(map[Status]int)}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM entries GROUP BY status")
	if err != nil {
		return stats, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[Status(status)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate status counts: %w", err)
	}

	row := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM pending_mutations")
	if err := row.Scan(&stats.Pending); err != nil {
		return stats, fmt.Errorf("scan pending count: %w", err)
	}

	var lastSynced sql.NullString
	row = s.db.QueryRowContext(ctx, "SELECT MAX(last_synced_at) FROM entries")
	if err := row.Scan(&lastSynced); err != nil {
		return stats, fmt.Errorf("scan last synced: %w", err)
	}
	if lastSynced.Valid {
		if synced, err := parseTimeString(lastSynced.String); err == nil {
			stats.LastSynced = &synced
		}
	}
	return stats, nil
}

func collectEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
