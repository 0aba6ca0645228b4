// Package sqlite implements storage.Backend on a SQLite file using the pure
// Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/illarion/lockvault/internal/storage"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	bucket BLOB NOT NULL,
	k      BLOB NOT NULL,
	v      BLOB NOT NULL,
	PRIMARY KEY (bucket, k)
) WITHOUT ROWID`

// Storage is a SQLite-backed key/value store
type Storage struct {
	db   *sql.DB
	path string
}

var _ storage.Backend = (*Storage)(nil)

// Open opens (or creates) a SQLite database at the given path with WAL
// journaling and a single connection, so writers are serialized.
func Open(path string) (*Storage, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Storage{db: db, path: path}, nil
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.path
}

// Compact rebuilds the database file, dropping pages freed by closed
// accounts
func (s *Storage) Compact() error {
	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// View runs fn in a transaction that is always rolled back
func (s *Storage) View(ctx context.Context, fn func(storage.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqlTx{ctx: ctx, tx: tx})
}

// Update runs fn in a transaction committed only when fn succeeds
func (s *Storage) Update(ctx context.Context, fn func(storage.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&sqlTx{ctx: ctx, tx: tx, writable: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type sqlTx struct {
	ctx      context.Context
	tx       *sql.Tx
	writable bool
}

func (t *sqlTx) Writable() bool {
	return t.writable
}

func (t *sqlTx) Get(bucket, key []byte) ([]byte, error) {
	var v []byte
	err := t.tx.QueryRowContext(t.ctx, `SELECT v FROM kv WHERE bucket = ? AND k = ?`, bucket, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

func (t *sqlTx) Put(bucket, key, value []byte) error {
	if !t.writable {
		return storage.ErrTxNotWritable
	}
	if value == nil {
		value = []byte{}
	}
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO kv (bucket, k, v) VALUES (?, ?, ?)
		 ON CONFLICT (bucket, k) DO UPDATE SET v = excluded.v`,
		bucket, key, value)
	return err
}

func (t *sqlTx) Delete(bucket, key []byte) error {
	if !t.writable {
		return storage.ErrTxNotWritable
	}
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM kv WHERE bucket = ? AND k = ?`, bucket, key)
	return err
}

func (t *sqlTx) ForEach(bucket []byte, fn func(k, v []byte) error) error {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT k, v FROM kv WHERE bucket = ? ORDER BY k`, bucket)
	if err != nil {
		return err
	}

	// Drain before calling fn so callbacks may issue their own queries
	type pair struct{ k, v []byte }
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.k, &p.v); err != nil {
			rows.Close()
			return err
		}
		pairs = append(pairs, p)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range pairs {
		if err := fn(p.k, p.v); err != nil {
			return err
		}
	}
	return nil
}
