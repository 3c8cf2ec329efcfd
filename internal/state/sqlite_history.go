package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Moment is a snapshot of the story variables at a passage.
type Moment struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	Passage   string         `json:"passage"`
	Variables map[string]any `json:"variables"`
	CreatedAt time.Time      `json:"created_at"`
}

// RecordMoment appends a moment to the history and prunes the oldest
// moments beyond the history bound.
func (s *SQLiteStore) RecordMoment(passage string, vars map[string]any) (*Moment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	data, err := encodeVars(vars)
	if err != nil {
		return nil, err
	}

	m := &Moment{
		ID:        generateID(),
		Passage:   passage,
		Variables: vars,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`INSERT INTO moments (id, passage, variables, created_at) VALUES (?, ?, ?, ?)`,
		m.ID, m.Passage, data, m.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record moment: %w", err)
	}
	if m.Seq, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read moment sequence: %w", err)
	}

	pruned, err := tx.Exec(
		`DELETE FROM moments WHERE seq NOT IN (SELECT seq FROM moments ORDER BY seq DESC LIMIT ?)`,
		s.maxStates,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to prune history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit moment: %w", err)
	}

	if n, _ := pruned.RowsAffected(); n > 0 {
		s.logger.Debug("history pruned", "removed", n, "max_states", s.maxStates)
	}
	return m, nil
}

// History returns the recorded moments, oldest first.
func (s *SQLiteStore) History() ([]*Moment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT seq, id, passage, variables, created_at FROM moments ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var moments []*Moment
	for rows.Next() {
		m, err := scanMoment(rows)
		if err != nil {
			return nil, err
		}
		moments = append(moments, m)
	}
	return moments, rows.Err()
}

// LatestMoment returns the most recent moment, or ErrNotFound.
func (s *SQLiteStore) LatestMoment() (*Moment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	row := s.db.QueryRow(`SELECT seq, id, passage, variables, created_at FROM moments ORDER BY seq DESC LIMIT 1`)
	m, err := scanMoment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history is empty: %w", ErrNotFound)
	}
	return m, err
}

// ClearHistory removes every moment. Save slots are kept.
func (s *SQLiteStore) ClearHistory() error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM moments`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMoment(row scanner) (*Moment, error) {
	var (
		m         Moment
		vars      string
		createdAt string
	)
	if err := row.Scan(&m.Seq, &m.ID, &m.Passage, &vars, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan moment: %w", err)
	}

	decoded, err := decodeVars(vars)
	if err != nil {
		return nil, err
	}
	m.Variables = decoded
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}
