// Package state persists story history and save slots in SQLite.
//
// A moment is a snapshot of the story variables taken when a passage is
// shown. Moments form a bounded history; save slots hold named copies of a
// moment that survive history pruning.
package state

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Defaults for the history and save limits.
const (
	DefaultMaxStates = 40
	DefaultMaxSlots  = 8
)

// ErrNotFound is returned when a moment or save slot does not exist.
var ErrNotFound = errors.New("not found")

// ErrSlotRange is returned for a save slot outside [0, max slots).
var ErrSlotRange = errors.New("save slot out of range")

// timeLayout is the stored form of timestamps.
const timeLayout = time.RFC3339Nano

// SQLiteStore stores history moments and save slots.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	maxStates int
	maxSlots  int
	logger    *slog.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithMaxStates bounds the number of history moments kept.
func WithMaxStates(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxStates = n
		}
	}
}

// WithMaxSlots bounds the number of save slots.
func WithMaxSlots(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxSlots = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLiteStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(opts ...Option) *SQLiteStore {
	s := &SQLiteStore{
		maxStates: DefaultMaxStates,
		maxSlots:  DefaultMaxSlots,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("state store opened", "path", path)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// MaxStates returns the history bound.
func (s *SQLiteStore) MaxStates() int {
	return s.maxStates
}

// MaxSlots returns the number of save slots.
func (s *SQLiteStore) MaxSlots() int {
	return s.maxSlots
}

func (s *SQLiteStore) ready() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

func encodeVars(vars map[string]any) (string, error) {
	if vars == nil {
		return "{}", nil
	}
	data, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("failed to encode variables: %w", err)
	}
	return string(data), nil
}

// decodeVars keeps numbers as json.Number so integers survive the round trip.
func decodeVars(data string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	vars := make(map[string]any)
	if err := dec.Decode(&vars); err != nil {
		return nil, fmt.Errorf("failed to decode variables: %w", err)
	}
	return vars, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
