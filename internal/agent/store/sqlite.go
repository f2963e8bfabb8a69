package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldops/shiftsync/internal/agent/models"
	"github.com/fieldops/shiftsync/internal/dbx"
)

// SQLiteRepository implements Repository over a dbx.DBTX (*sql.DB or
// *sql.Tx). The active shift lives in a single-slot row; completed shifts
// are appended to shift_history in end order.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ActiveShift loads the current shift document, or nil when none is active.
func (r *SQLiteRepository) ActiveShift(ctx context.Context) (*models.Shift, error) {
	row := r.db.QueryRowContext(ctx, `SELECT doc FROM active_shift WHERE slot=1`)

	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load active shift: %w", err)
	}

	var shift models.Shift
	if err := json.Unmarshal(doc, &shift); err != nil {
		return nil, fmt.Errorf("failed to decode active shift: %w", err)
	}
	return &shift, nil
}

// SaveActiveShift writes the whole shift document into the single slot,
// replacing whatever was there.
func (r *SQLiteRepository) SaveActiveShift(ctx context.Context, shift *models.Shift) error {
	doc, err := json.Marshal(shift)
	if err != nil {
		return fmt.Errorf("failed to encode active shift: %w", err)
	}

	query := `INSERT INTO active_shift (slot, doc) VALUES (1, ?)
		ON CONFLICT(slot) DO UPDATE SET doc = excluded.doc`
	if _, err := r.db.ExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("failed to save active shift: %w", err)
	}
	return nil
}

// ClearActiveShift empties the slot. Clearing an already-empty slot is fine.
func (r *SQLiteRepository) ClearActiveShift(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM active_shift WHERE slot=1`); err != nil {
		return fmt.Errorf("failed to clear active shift: %w", err)
	}
	return nil
}

// AppendHistory archives a finalized shift. The shift must already carry an
// end timestamp.
func (r *SQLiteRepository) AppendHistory(ctx context.Context, shift *models.Shift) error {
	if shift.EndedAt == nil {
		return errors.New("cannot archive a shift without an end timestamp")
	}

	doc, err := json.Marshal(shift)
	if err != nil {
		return fmt.Errorf("failed to encode shift: %w", err)
	}

	query := `INSERT INTO shift_history (shift_id, doc, ended_at) VALUES (?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, shift.ID, doc, shift.EndedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to append shift history: %w", err)
	}
	return nil
}

// History lists archived shifts in completion order.
func (r *SQLiteRepository) History(ctx context.Context) ([]models.Shift, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT doc FROM shift_history ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to select shift history: %w", err)
	}
	defer rows.Close()

	var result []models.Shift
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var shift models.Shift
		if err := json.Unmarshal(doc, &shift); err != nil {
			return nil, fmt.Errorf("failed to decode shift: %w", err)
		}
		result = append(result, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
