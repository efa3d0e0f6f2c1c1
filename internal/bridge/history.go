package bridge

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

	// historyTimeLayout is fixed width so recorded_at sorts as text.
	historyTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// HistoryRecord is one attribute change as stored in attribute_history.
type HistoryRecord struct {
	ID         int64           `json:"id"`
	Endpoint   uint16          `json:"endpoint"`
	EntityID   string          `json:"entity_id"`
	Capability string          `json:"capability"`
	Cluster    string          `json:"cluster"`
	Attribute  string          `json:"attribute"`
	Value      json.RawMessage `json:"value"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// AttributeHistoryRepository stores the attribute changes the bridge
// applied.
//
// Implementations must be thread-safe and use UTC timestamps.
type AttributeHistoryRepository interface {
	// Record inserts a batch of changes atomically.
	Record(ctx context.Context, records []HistoryRecord) error

	// List returns an endpoint's most recent changes, newest first.
	// limit is clamped to [1, 500]; zero means 50.
	List(ctx context.Context, endpoint uint16, limit int) ([]HistoryRecord, error)

	// Prune deletes changes recorded before cutoff and returns the count.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLiteAttributeHistoryRepository implements AttributeHistoryRepository.
type SQLiteAttributeHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteAttributeHistoryRepository creates a repository on an open,
// migrated database.
func NewSQLiteAttributeHistoryRepository(db *sql.DB) *SQLiteAttributeHistoryRepository {
	return &SQLiteAttributeHistoryRepository{db: db}
}

// Record implements AttributeHistoryRepository.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - records: Changes to persist; a zero RecordedAt is stamped with now
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteAttributeHistoryRepository) Record(ctx context.Context, records []HistoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO attribute_history (endpoint, entity_id, capability, cluster, attribute, value, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing history insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		at := rec.RecordedAt
		if at.IsZero() {
			at = now
		}
		var value any
		if rec.Value != nil {
			value = string(rec.Value)
		}
		if _, err := stmt.ExecContext(ctx,
			rec.Endpoint, rec.EntityID, rec.Capability, rec.Cluster, rec.Attribute,
			value, at.UTC().Format(historyTimeLayout),
		); err != nil {
			return fmt.Errorf("inserting attribute history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing attribute history: %w", err)
	}
	return nil
}

// List implements AttributeHistoryRepository.
func (r *SQLiteAttributeHistoryRepository) List(ctx context.Context, endpoint uint16, limit int) ([]HistoryRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, endpoint, entity_id, capability, cluster, attribute, value, recorded_at
		 FROM attribute_history
		 WHERE endpoint = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		endpoint, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attribute history: %w", err)
	}
	defer rows.Close()

	records := make([]HistoryRecord, 0, limit)
	for rows.Next() {
		var rec HistoryRecord
		var value sql.NullString
		var recordedAt string
		if err := rows.Scan(&rec.ID, &rec.Endpoint, &rec.EntityID, &rec.Capability,
			&rec.Cluster, &rec.Attribute, &value, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning attribute history: %w", err)
		}
		if value.Valid {
			rec.Value = json.RawMessage(value.String)
		} else {
			rec.Value = json.RawMessage("null")
		}
		if rec.RecordedAt, err = parseTimestamp(recordedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attribute history: %w", err)
	}
	return records, nil
}

// Prune implements AttributeHistoryRepository.
func (r *SQLiteAttributeHistoryRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM attribute_history WHERE recorded_at < ?",
		cutoff.UTC().Format(historyTimeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting attribute history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
