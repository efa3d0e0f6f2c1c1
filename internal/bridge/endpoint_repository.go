package bridge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Endpoint numbers 0 (root node) and 1 (aggregator) belong to the bridge
// node itself; bridged devices start at 2.
const (
	FirstEndpointNumber = 2
	LastEndpointNumber  = 0xFFFE
)

// EndpointRecord is the persisted identity of a bridged entity.
type EndpointRecord struct {
	EntityID     string    `json:"entity_id"`
	Number       uint16    `json:"number"`
	Capabilities []string  `json:"capabilities"`
	CreatedAt    time.Time `json:"created_at"`
	LastSeen     time.Time `json:"last_seen"`
}

// EndpointRepository assigns endpoint numbers that survive restarts.
//
// Implementations must be thread-safe.
type EndpointRepository interface {
	// Assign returns the entity's endpoint number, allocating the next
	// free one on first sight. Capabilities and last_seen are refreshed.
	Assign(ctx context.Context, entityID string, capabilities []string) (uint16, error)

	// List returns every known endpoint ordered by number.
	List(ctx context.Context) ([]EndpointRecord, error)
}

// SQLiteEndpointRepository implements EndpointRepository on the endpoints
// table.
type SQLiteEndpointRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteEndpointRepository creates a repository on an open, migrated
// database.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteEndpointRepository: Repository instance ready for use
func NewSQLiteEndpointRepository(db *sql.DB) *SQLiteEndpointRepository {
	return &SQLiteEndpointRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Assign implements EndpointRepository.
//
// A new entity gets one more than the highest number ever assigned, so a
// number freed by a removed entity is never handed to a different one.
//
// Returns:
//   - uint16: the endpoint number
//   - error: ErrEndpointsExhausted past LastEndpointNumber, or the
//     underlying database error
func (r *SQLiteEndpointRepository) Assign(ctx context.Context, entityID string, capabilities []string) (uint16, error) {
	if entityID == "" {
		return 0, fmt.Errorf("entity id is required")
	}
	if capabilities == nil {
		capabilities = []string{}
	}
	capsJSON, err := json.Marshal(capabilities)
	if err != nil {
		return 0, fmt.Errorf("marshalling capabilities: %w", err)
	}
	now := r.now().Format(time.RFC3339)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var number int64
	err = tx.QueryRowContext(ctx,
		"SELECT number FROM endpoints WHERE entity_id = ?", entityID,
	).Scan(&number)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		var highest sql.NullInt64
		if err := tx.QueryRowContext(ctx, "SELECT MAX(number) FROM endpoints").Scan(&highest); err != nil {
			return 0, fmt.Errorf("reading highest endpoint number: %w", err)
		}
		number = FirstEndpointNumber
		if highest.Valid {
			number = highest.Int64 + 1
		}
		if number > LastEndpointNumber {
			return 0, ErrEndpointsExhausted
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO endpoints (entity_id, number, capabilities, created_at, last_seen)
			 VALUES (?, ?, ?, ?, ?)`,
			entityID, number, string(capsJSON), now, now,
		); err != nil {
			return 0, fmt.Errorf("inserting endpoint: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("querying endpoint: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			"UPDATE endpoints SET capabilities = ?, last_seen = ? WHERE entity_id = ?",
			string(capsJSON), now, entityID,
		); err != nil {
			return 0, fmt.Errorf("updating endpoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing endpoint: %w", err)
	}
	return uint16(number), nil //nolint:gosec // Bounded by LastEndpointNumber
}

// List implements EndpointRepository.
func (r *SQLiteEndpointRepository) List(ctx context.Context) ([]EndpointRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT entity_id, number, capabilities, created_at, last_seen FROM endpoints ORDER BY number",
	)
	if err != nil {
		return nil, fmt.Errorf("querying endpoints: %w", err)
	}
	defer rows.Close()

	var records []EndpointRecord
	for rows.Next() {
		var rec EndpointRecord
		var capsJSON, createdAt, lastSeen string
		if err := rows.Scan(&rec.EntityID, &rec.Number, &capsJSON, &createdAt, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning endpoint: %w", err)
		}
		if err := json.Unmarshal([]byte(capsJSON), &rec.Capabilities); err != nil {
			return nil, fmt.Errorf("unmarshalling capabilities: %w", err)
		}
		if rec.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		if rec.LastSeen, err = parseTimestamp(lastSeen); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating endpoints: %w", err)
	}
	return records, nil
}

// parseTimestamp parses an RFC 3339 timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
	}
	return ts, nil
}
