package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// SQLiteRepository implements Repository using SQLite.
//
// It stores attribute maps as JSON text in the state_history table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts a new state history row.
func (r *SQLiteRepository) Record(ctx context.Context, entry Entry) error {
	if entry.EntityID == "" {
		return ErrEntityIDRequired
	}

	attrsJSON, err := json.Marshal(entry.Attributes)
	if err != nil {
		return fmt.Errorf("marshalling attributes: %w", err)
	}

	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO state_history
		 (entity_id, state, attributes, context_id, context_parent_id, last_changed, last_updated, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EntityID,
		entry.State,
		string(attrsJSON),
		entry.ContextID,
		entry.ContextParentID,
		entry.LastChanged.UTC().Format(time.RFC3339Nano),
		entry.LastUpdated.UTC().Format(time.RFC3339Nano),
		recordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}

	return nil
}

// History returns recent entries for an entity, ordered newest first.
// limit defaults to 50 and is clamped to 500.
func (r *SQLiteRepository) History(ctx context.Context, entityID string, limit int) ([]Entry, error) {
	if entityID == "" {
		return nil, ErrEntityIDRequired
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity_id, state, attributes, context_id, context_parent_id,
		        last_changed, last_updated, recorded_at
		 FROM state_history
		 WHERE entity_id = ?
		 ORDER BY last_updated DESC, id DESC
		 LIMIT ?`,
		entityID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var attrsJSON string
		var lastChanged, lastUpdated, recordedAt string
		var parentID sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.EntityID,
			&entry.State,
			&attrsJSON,
			&entry.ContextID,
			&parentID,
			&lastChanged,
			&lastUpdated,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}

		if attrsJSON != "" && attrsJSON != "null" {
			if err := json.Unmarshal([]byte(attrsJSON), &entry.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshalling attributes: %w", err)
			}
		}
		entry.ContextParentID = parentID.String

		if entry.LastChanged, err = parseTimestamp(lastChanged); err != nil {
			return nil, err
		}
		if entry.LastUpdated, err = parseTimestamp(lastUpdated); err != nil {
			return nil, err
		}
		if entry.RecordedAt, err = parseTimestamp(recordedAt); err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}

	return entries, nil
}

// Prune deletes entries recorded before now minus retention.
func (r *SQLiteRepository) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM state_history WHERE recorded_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// parseTimestamp parses a timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	timestamp, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp: %w", err)
	}
	return timestamp, nil
}
