// Package store persists the Temporal Tariff Store (C1), Document Store
// (C2), Verified Assertion Cache (C8) and Review Queue (C11) to SQLite via
// database/sql, behind a narrow interface rather than an ORM — matching
// the teacher's direct-SQL persistence style. Supersession is performed
// under a single SERIALIZABLE transaction so that closing a prior
// TariffMeasure/VerifiedAssertion row and inserting its
// replacement is atomic.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"tariffstack/internal/logging"
)

// Store wraps the shared *sql.DB handle. It is acquired once at startup and
// released on shutdown (§5): no component opens its own connection.
type Store struct {
	db        *sql.DB
	vectorExt bool // sqlite-vec vec0 table available, set by EnableVectorIndex
}

// Open opens (or creates) the SQLite database at dsn and applies schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite3 %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // SQLite: serialize writers, matches SERIALIZABLE supersession discipline

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logging.Store("opened store at %s", dsn)
	return &Store{db: db}, nil
}

// OpenDB wraps an already-open *sql.DB, for tests that want an in-memory
// database (dsn ":memory:") or a fake driver.
func OpenDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a SERIALIZABLE transaction, committing on success
// and rolling back on error or panic. Used for every SCD-2 closure so that
// the close-prior/insert-new pair is atomic (§5).
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *string) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return nullString(*t)
}
