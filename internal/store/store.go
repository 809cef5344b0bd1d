// Package store persists study sessions, runtime logs and crash-recovery
// markers in a single local SQLite file.
//
// The store holds no open connection between operations. Each call acquires
// a connection, runs one transaction that commits on success and rolls back
// on any error, and releases the connection before returning, so a crash
// between calls leaves the file at its last committed state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	dirPerm  os.FileMode = 0o700
	filePerm os.FileMode = 0o600
)

// timeLayout is fixed width so that text order in SQLite equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a handle on the database file. It is safe to reuse across
// operations but is meant for a single writing process.
type Store struct {
	path string
	db   *sql.DB
}

// Open initializes the store at path: it creates the parent directory and the
// file with owner-only permissions when missing, then creates the schema if it
// is not already there. Calling Open on an initialized store changes nothing.
// All failures wrap ErrInit.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, initErr("open", errors.New("empty database path"))
	}
	if err := prepareFile(path); err != nil {
		return nil, initErr("prepare database file", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, initErr("open database", err)
	}

	// Connections are released after every operation instead of idling in
	// the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	s := &Store{path: path, db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, initErr("initialize schema", err)
	}
	return s, nil
}

func prepareFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, filePerm)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// OpenFile only applies the mode on creation.
	return os.Chmod(path, filePerm)
}

func (s *Store) init(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var version int
		if err := tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if version > currentSchemaVersion {
			return fmt.Errorf("schema version %d is newer than supported version %d", version, currentSchemaVersion)
		}
		if version == currentSchemaVersion {
			return nil
		}
		for _, stmt := range schemaDDL {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	})
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// SchemaVersion returns the version recorded in the database header.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	})
	if err != nil {
		return 0, readErr("schema version", err)
	}
	return version, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// withConn acquires a connection for the duration of fn and releases it on
// every exit path.
func (s *Store) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// withTx runs fn in a transaction on a scoped connection. The transaction is
// committed when fn returns nil and rolled back when it returns an error or
// panics.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withConn(ctx, func(conn *sql.Conn) (err error) {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p)
			}
			if err != nil {
				if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
					err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
				}
				return
			}
			if cErr := tx.Commit(); cErr != nil {
				err = fmt.Errorf("commit: %w", cErr)
			}
		}()
		return fn(tx)
	})
}

// newID returns a time-ordered UUIDv7, falling back to v4.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
