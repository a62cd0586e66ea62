package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"keymint/internal/license"
)

// advisoryLockID serializes whole-store updates across connections. One lock
// per database is enough: the store is read and rewritten as a unit.
const advisoryLockID = 0x6B65796D696E74 // "keymint"

const schema = `
CREATE TABLE IF NOT EXISTS licenses (
	position      BIGINT PRIMARY KEY,
	key           TEXT NOT NULL UNIQUE,
	customer_name TEXT NOT NULL,
	expires_at    TEXT NOT NULL,
	max_devices   INT NOT NULL DEFAULT 0,
	devices       JSONB NOT NULL DEFAULT '[]'
)`

// PostgresStore persists the record list in a licenses table. Update takes a
// transaction-scoped advisory lock so the load-inspect-save cycle is one
// critical section even across processes.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on an existing database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgresStore opens a pgx-backed database handle for dsn, verifies
// connectivity, and ensures the schema exists.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure licenses schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// LoadAll reads every record in insertion order.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]license.Record, error) {
	return s.loadAll(ctx, s.db)
}

// Update runs fn inside a transaction holding the store's advisory lock and
// rewrites the table when fn reports a change.
func (s *PostgresStore) Update(ctx context.Context, fn license.UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin store transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockID); err != nil {
		return fmt.Errorf("failed to acquire store lock: %w", err)
	}

	records, err := s.loadAll(ctx, tx)
	if err != nil {
		return err
	}

	updated, dirty, err := fn(records)
	if err != nil {
		return err
	}
	if !dirty {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM licenses`); err != nil {
		return fmt.Errorf("failed to clear licenses: %w", err)
	}
	for i, rec := range updated {
		devices, err := json.Marshal(rec.NormalizedDevices())
		if err != nil {
			return fmt.Errorf("failed to encode devices for %s: %w", rec.Key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO licenses (position, key, customer_name, expires_at, max_devices, devices)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			int64(i), rec.Key, rec.CustomerName, rec.ExpiresAt, rec.MaxDevices, devices,
		); err != nil {
			return fmt.Errorf("failed to insert license %s: %w", rec.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit store update: %w", err)
	}
	return nil
}

// querier covers both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) loadAll(ctx context.Context, q querier) ([]license.Record, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT key, customer_name, expires_at, max_devices, devices FROM licenses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load licenses: %w", err)
	}
	defer rows.Close()

	records := []license.Record{}
	for rows.Next() {
		var rec license.Record
		var devices []byte
		if err := rows.Scan(&rec.Key, &rec.CustomerName, &rec.ExpiresAt, &rec.MaxDevices, &devices); err != nil {
			return nil, fmt.Errorf("failed to scan license row: %w", err)
		}
		if len(devices) > 0 {
			if err := json.Unmarshal(devices, &rec.Devices); err != nil {
				return nil, fmt.Errorf("devices column for %s is corrupt: %w", rec.Key, err)
			}
		}
		if rec.Devices == nil {
			rec.Devices = []string{}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate license rows: %w", err)
	}
	return records, nil
}
