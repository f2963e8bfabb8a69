package shifts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldops/shiftsync/internal/common"
	"github.com/fieldops/shiftsync/internal/dbx"
	"github.com/fieldops/shiftsync/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or
// *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateShift inserts a shift record. A retry of an already-accepted
// shift-start (same id) is a no-op; CodeIssuedAt keeps its original value.
func (r *PostgresRepository) CreateShift(ctx context.Context, shift *models.Shift) error {
	query := `
		INSERT INTO shifts (id, pair_code, staff_name, site_name, started_at, code_issued_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := r.db.ExecContext(ctx, query,
		shift.ID, shift.PairCode, shift.StaffName, shift.SiteName, shift.StartedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetShiftByPairCode looks up a shift by its normalized pair code. Returns
// common.ErrNotFound for unknown codes.
func (r *PostgresRepository) GetShiftByPairCode(ctx context.Context, pairCode string) (*models.Shift, error) {
	query := `
		SELECT id, pair_code, staff_name, site_name, started_at, ended_at, code_issued_at
		FROM shifts WHERE pair_code = $1;
	`
	row := r.db.QueryRowContext(ctx, query, pairCode)

	s := &models.Shift{}
	var endedAt sql.NullTime
	err := row.Scan(&s.ID, &s.PairCode, &s.StaffName, &s.SiteName, &s.StartedAt, &endedAt, &s.CodeIssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return s, nil
}

// EndShift stamps the end time of the shift identified by pairCode. Only the
// first shift-end wins; retries and duplicates leave the stored value alone.
func (r *PostgresRepository) EndShift(ctx context.Context, pairCode string, endTime time.Time) error {
	query := `UPDATE shifts SET ended_at = $2 WHERE pair_code = $1 AND ended_at IS NULL;`
	_, err := r.db.ExecContext(ctx, query, pairCode, endTime)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// AddLocation stores one location event, deduplicated by event id.
func (r *PostgresRepository) AddLocation(ctx context.Context, loc *models.Location) error {
	query := `
		INSERT INTO shift_locations (event_id, shift_id, latitude, longitude, accuracy, captured_at, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING;
	`
	_, err := r.db.ExecContext(ctx, query,
		loc.EventID, loc.ShiftID, loc.Latitude, loc.Longitude, loc.Accuracy, loc.CapturedAt, loc.Address)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// AddPhoto stores one photo-metadata event, deduplicated by photo id.
func (r *PostgresRepository) AddPhoto(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO shift_photos (id, event_id, shift_id, storage_key, captured_at, latitude, longitude, accuracy, address, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := r.db.ExecContext(ctx, query,
		photo.ID, photo.EventID, photo.ShiftID, photo.StorageKey, photo.CapturedAt,
		photo.Latitude, photo.Longitude, photo.Accuracy, photo.Address, photo.Note)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// AddNote stores one note event, deduplicated by note id.
func (r *PostgresRepository) AddNote(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO shift_notes (id, event_id, shift_id, body, created_at, latitude, longitude, accuracy, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := r.db.ExecContext(ctx, query,
		note.ID, note.EventID, note.ShiftID, note.Body, note.CreatedAt,
		note.Latitude, note.Longitude, note.Accuracy, note.Address)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListLocations returns a shift's locations in capture order.
func (r *PostgresRepository) ListLocations(ctx context.Context, shiftID string) ([]models.Location, error) {
	query := `
		SELECT event_id, shift_id, latitude, longitude, accuracy, captured_at, address
		FROM shift_locations WHERE shift_id = $1 ORDER BY captured_at;
	`
	rows, err := r.db.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.EventID, &l.ShiftID, &l.Latitude, &l.Longitude, &l.Accuracy, &l.CapturedAt, &l.Address); err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListPhotos returns a shift's photos in capture order.
func (r *PostgresRepository) ListPhotos(ctx context.Context, shiftID string) ([]models.Photo, error) {
	query := `
		SELECT id, event_id, shift_id, storage_key, captured_at, latitude, longitude, accuracy, address, note
		FROM shift_photos WHERE shift_id = $1 ORDER BY captured_at;
	`
	rows, err := r.db.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.EventID, &p.ShiftID, &p.StorageKey, &p.CapturedAt,
			&p.Latitude, &p.Longitude, &p.Accuracy, &p.Address, &p.Note); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListNotes returns a shift's notes in creation order.
func (r *PostgresRepository) ListNotes(ctx context.Context, shiftID string) ([]models.Note, error) {
	query := `
		SELECT id, event_id, shift_id, body, created_at, latitude, longitude, accuracy, address
		FROM shift_notes WHERE shift_id = $1 ORDER BY created_at;
	`
	rows, err := r.db.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.EventID, &n.ShiftID, &n.Body, &n.CreatedAt,
			&n.Latitude, &n.Longitude, &n.Accuracy, &n.Address); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
