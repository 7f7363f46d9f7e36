// Package sqlite implements the persistence contracts on a SQLite database
// using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	timestampLayout = "2006-01-02T15:04:05"
	dateLayout      = "2006-01-02"
	clockLayout     = "15:04:05"
)

// Storage owns the database handle and implements every repository
// interface. Writes are serialised behind a mutex; reads run concurrently
// and observe a consistent snapshot per call.
type Storage struct {
	db  *sql.DB
	mu  sync.Mutex
	loc *time.Location
	now func() time.Time
}

// Open connects to the database identified by dsn and configures the
// connection for single-writer use.
func Open(dsn string) (*Storage, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:scheduler.db?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	return &Storage{db: db, loc: time.Local, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithLocation overrides the wall-clock location used when decoding stored
// timestamps. Intended for tests.
func (s *Storage) WithLocation(loc *time.Location) *Storage {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// WithClock overrides the time source used for created/updated stamps.
// Intended for tests.
func (s *Storage) WithClock(now func() time.Time) *Storage {
	if now != nil {
		s.now = now
	}
	return s
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}

// write serialises a mutating transaction behind the storage mutex.
func (s *Storage) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withTx(ctx, fn)
}

func (s *Storage) formatTime(t time.Time) string {
	return t.Format(timestampLayout)
}

func (s *Storage) parseTime(value string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, value, s.loc)
}

func (s *Storage) formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func (s *Storage) parseDate(value string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, s.loc)
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func (s *Storage) nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: s.formatTime(*t), Valid: true}
}

func (s *Storage) scanNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := s.parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func scanNullInt64(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}
