package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Save is a story snapshot stored in a numbered slot.
type Save struct {
	Slot      int            `json:"slot"`
	Title     string         `json:"title,omitempty"`
	Passage   string         `json:"passage"`
	Variables map[string]any `json:"variables"`
	SavedAt   time.Time      `json:"saved_at"`
}

func (s *SQLiteStore) checkSlot(slot int) error {
	if slot < 0 || slot >= s.maxSlots {
		return fmt.Errorf("%w: %d (slots 0-%d)", ErrSlotRange, slot, s.maxSlots-1)
	}
	return nil
}

// SaveSlot writes a snapshot into slot, replacing any previous save.
func (s *SQLiteStore) SaveSlot(slot int, title, passage string, vars map[string]any) (*Save, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}

	data, err := encodeVars(vars)
	if err != nil {
		return nil, err
	}

	save := &Save{
		Slot:      slot,
		Title:     title,
		Passage:   passage,
		Variables: vars,
		SavedAt:   time.Now().UTC(),
	}

	_, err = s.db.Exec(`
		INSERT INTO saves (slot, title, passage, variables, saved_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET
			title = excluded.title,
			passage = excluded.passage,
			variables = excluded.variables,
			saved_at = excluded.saved_at`,
		save.Slot, save.Title, save.Passage, data, save.SavedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save slot %d: %w", slot, err)
	}

	s.logger.Debug("slot saved", "slot", slot, "passage", passage)
	return save, nil
}

// LoadSlot reads the save in slot, or ErrNotFound when it is empty.
func (s *SQLiteStore) LoadSlot(slot int) (*Save, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}

	row := s.db.QueryRow(`SELECT slot, title, passage, variables, saved_at FROM saves WHERE slot = ?`, slot)
	save, err := scanSave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("slot %d is empty: %w", slot, ErrNotFound)
	}
	return save, err
}

// Slots returns every occupied save slot, ordered by slot number.
func (s *SQLiteStore) Slots() ([]*Save, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT slot, title, passage, variables, saved_at FROM saves ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("failed to query saves: %w", err)
	}
	defer rows.Close()

	var saves []*Save
	for rows.Next() {
		save, err := scanSave(rows)
		if err != nil {
			return nil, err
		}
		saves = append(saves, save)
	}
	return saves, rows.Err()
}

// DeleteSlot empties slot. Deleting an empty slot is not an error.
func (s *SQLiteStore) DeleteSlot(slot int) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.checkSlot(slot); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM saves WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("failed to delete slot %d: %w", slot, err)
	}
	return nil
}

func scanSave(row scanner) (*Save, error) {
	var (
		save    Save
		vars    string
		savedAt string
	)
	if err := row.Scan(&save.Slot, &save.Title, &save.Passage, &vars, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan save: %w", err)
	}

	decoded, err := decodeVars(vars)
	if err != nil {
		return nil, err
	}
	save.Variables = decoded
	save.SavedAt = parseTime(savedAt)
	return &save, nil
}
