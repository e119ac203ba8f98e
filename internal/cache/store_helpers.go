package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const entryColumns = "remote_id, media_kind, titles_json, status, progress, total_units, score, rewatch_count, last_auto_episode, pending_sync, last_synced_at, local_version, updated_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		remoteID      int64
		mediaKind     string
		titlesJSON    sql.NullString
		statusStr     string
		progress      int
		totalUnits    int
		score         int
		rewatchCount  int
		lastAuto      int
		pendingSync   sql.NullInt64
		lastSyncedRaw sql.NullString
		localVersion  int64
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&remoteID,
		&mediaKind,
		&titlesJSON,
		&statusStr,
		&progress,
		&totalUnits,
		&score,
		&rewatchCount,
		&lastAuto,
		&pendingSync,
		&lastSyncedRaw,
		&localVersion,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		RemoteID:        remoteID,
		MediaKind:       MediaKind(mediaKind),
		Status:          Status(statusStr),
		Progress:        progress,
		TotalUnits:      totalUnits,
		Score:           score,
		RewatchCount:    rewatchCount,
		LastAutoEpisode: lastAuto,
		LocalVersion:    localVersion,
	}
	if pendingSync.Valid {
		entry.PendingSync = pendingSync.Int64 != 0
	}
	if titlesJSON.Valid && titlesJSON.String != "" {
		if err := json.Unmarshal([]byte(titlesJSON.String), &entry.Titles); err != nil {
			return nil, err
		}
	}
	if lastSyncedRaw.Valid {
		if synced, err := parseTimeString(lastSyncedRaw.String); err == nil {
			entry.LastSyncedAt = &synced
		}
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

const mutationColumns = "id, remote_id, progress, status, score, rewatch_count, local_version, attempts, last_error, created_at, updated_at"

func scanMutation(scanner interface{ Scan(dest ...any) error }) (*Mutation, error) {
	var (
		id           int64
		remoteID     int64
		progress     int
		statusStr    string
		score        int
		rewatchCount int
		localVersion int64
		attempts     int
		lastError    sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&remoteID,
		&progress,
		&statusStr,
		&score,
		&rewatchCount,
		&localVersion,
		&attempts,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	mut := &Mutation{
		ID:           id,
		RemoteID:     remoteID,
		Progress:     progress,
		Status:       Status(statusStr),
		Score:        score,
		RewatchCount: rewatchCount,
		LocalVersion: localVersion,
		Attempts:     attempts,
		LastError:    lastError.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		mut.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		mut.UpdatedAt = updated
	}
	return mut, nil
}

func marshalTitles(titles []string) (string, error) {
	if len(titles) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(titles)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
