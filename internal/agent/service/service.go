// Package service exposes the sole mutation surface for shift state. Every
// screen and timer on the device funnels through one ShiftService, so the
// current-shift document has a single serialization point instead of racing
// on raw storage reads.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/shiftsync/internal/agent/models"
	"github.com/fieldops/shiftsync/internal/agent/outbox"
	"github.com/fieldops/shiftsync/internal/agent/store"
	"github.com/fieldops/shiftsync/internal/api"
	"github.com/fieldops/shiftsync/internal/common"
	"github.com/fieldops/shiftsync/internal/dbx"
	"github.com/fieldops/shiftsync/internal/logging"
	"github.com/fieldops/shiftsync/internal/paircode"
)

// ShiftService owns the active-shift document and the outbox. Each mutating
// operation updates both inside one SQLite transaction, so the local state
// never silently runs ahead of the queue. After a successful commit the
// dispatcher is nudged (best effort, non-blocking).
type ShiftService struct {
	db     *sql.DB
	logger logging.Logger

	// notify pokes the dispatcher after a commit. Never blocks.
	notify func()

	// now is a seam for tests.
	now func() time.Time

	mu sync.Mutex
}

// NewShiftService builds a service over the agent database. notify may be
// nil when no dispatcher is attached (tests, maintenance tools).
func NewShiftService(db *sql.DB, logger logging.Logger, notify func()) *ShiftService {
	if notify == nil {
		notify = func() {}
	}
	return &ShiftService{
		db:     db,
		logger: logger.With("component", "shift_service"),
		notify: notify,
		now:    time.Now,
	}
}

// ActiveShift returns the current shift, or nil when none is active.
func (s *ShiftService) ActiveShift(ctx context.Context) (*models.Shift, error) {
	return store.NewSQLiteRepository(s.db).ActiveShift(ctx)
}

// History returns completed shifts in completion order.
func (s *ShiftService) History(ctx context.Context) ([]models.Shift, error) {
	return store.NewSQLiteRepository(s.db).History(ctx)
}

// QueueStats reports the outbox counters for status surfaces.
func (s *ShiftService) QueueStats(ctx context.Context) (models.QueueStats, error) {
	return outbox.NewSQLiteQueue(s.db).Stats(ctx)
}

// RequeueFailed resets permanently failed outbox items and nudges the
// dispatcher. Maintenance operation; see the queue contract.
func (s *ShiftService) RequeueFailed(ctx context.Context) (int, error) {
	n, err := outbox.NewSQLiteQueue(s.db).RequeueFailed(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.notify()
	}
	return n, nil
}

// StartShift creates a new active shift with a fresh pair code, persists it
// and enqueues the shift-start event. Fails with ErrShiftAlreadyActive when
// a shift is already running.
func (s *ShiftService) StartShift(ctx context.Context, staffName, siteName string, initial *models.LocationPoint) (*models.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := paircode.Generate()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	shift := &models.Shift{
		ID:        uuid.NewString(),
		StaffName: staffName,
		SiteName:  siteName,
		PairCode:  code,
		StartedAt: now,
		Active:    true,
	}
	if initial != nil {
		shift.Locations = append(shift.Locations, *initial)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := store.NewSQLiteRepository(tx)
		current, err := repo.ActiveShift(ctx)
		if err != nil {
			return err
		}
		if current != nil {
			return common.ErrShiftAlreadyActive
		}
		if err := repo.SaveActiveShift(ctx, shift); err != nil {
			return err
		}

		payload := api.SyncShiftRequest{
			PairCode:  shift.PairCode,
			ShiftID:   shift.ID,
			StaffName: shift.StaffName,
			SiteName:  shift.SiteName,
			StartTime: shift.StartedAt,
		}
		return enqueue(ctx, tx, models.SyncKindShiftStart, now, &payload.EventID, payload)
	})
	if err != nil {
		s.logger.Error(ctx, "failed to start shift", "error", err)
		return nil, fmt.Errorf("failed to start shift: %w", err)
	}

	s.logger.Info(ctx, "shift started", "shift", shift.ID, "pair_code", shift.PairCode)
	s.notify()
	return shift, nil
}

// AddLocation appends a GPS fix to the active shift and enqueues a location
// event. Returns nil, nil when no shift is active (a late timer tick after
// shift end is expected, not an error).
func (s *ShiftService) AddLocation(ctx context.Context, point models.LocationPoint) (*models.Shift, error) {
	return s.appendToActive(ctx, "location", func(shift *models.Shift, tx dbx.DBTX, now time.Time) error {
		if n := len(shift.Locations); n > 0 && point.CapturedAt.Before(shift.Locations[n-1].CapturedAt) {
			return fmt.Errorf("location timestamp %s precedes last recorded point", point.CapturedAt)
		}
		shift.Locations = append(shift.Locations, point)

		payload := api.SyncLocationRequest{
			PairCode: shift.PairCode,
			LocationFix: api.LocationFix{
				Latitude:  point.Latitude,
				Longitude: point.Longitude,
				Accuracy:  point.Accuracy,
				Timestamp: point.CapturedAt,
				Address:   point.Address,
			},
		}
		return enqueue(ctx, tx, models.SyncKindLocation, now, &payload.EventID, payload)
	})
}

// AddPhoto attaches an evidence photo to the active shift and enqueues the
// upload. Returns nil, nil when no shift is active.
func (s *ShiftService) AddPhoto(ctx context.Context, photo models.Photo) (*models.Shift, error) {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	return s.appendToActive(ctx, "photo", func(shift *models.Shift, tx dbx.DBTX, now time.Time) error {
		shift.Photos = append(shift.Photos, photo)

		payload := models.PhotoUpload{PairCode: shift.PairCode, Photo: photo}
		return enqueue(ctx, tx, models.SyncKindPhoto, now, nil, payload)
	})
}

// AddNote attaches a free-text note to the active shift and enqueues a note
// event. Returns nil, nil when no shift is active.
func (s *ShiftService) AddNote(ctx context.Context, note models.Note) (*models.Shift, error) {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	return s.appendToActive(ctx, "note", func(shift *models.Shift, tx dbx.DBTX, now time.Time) error {
		shift.Notes = append(shift.Notes, note)

		payload := api.SyncNoteRequest{
			PairCode:  shift.PairCode,
			NoteID:    note.ID,
			Text:      note.Text,
			Timestamp: note.CreatedAt,
		}
		if loc := note.Location; loc != nil {
			payload.Location = &api.LocationFix{
				Latitude:  loc.Latitude,
				Longitude: loc.Longitude,
				Accuracy:  loc.Accuracy,
				Timestamp: loc.CapturedAt,
				Address:   loc.Address,
			}
		}
		return enqueue(ctx, tx, models.SyncKindNote, now, &payload.EventID, payload)
	})
}

// EndShift finalizes the active shift: sets the end timestamp, clears the
// active slot, archives the shift into history and enqueues the shift-end
// event. Returns nil, nil when no shift is active.
func (s *ShiftService) EndShift(ctx context.Context) (*models.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ended *models.Shift
	now := s.now().UTC()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := store.NewSQLiteRepository(tx)
		shift, err := repo.ActiveShift(ctx)
		if err != nil {
			return err
		}
		if shift == nil {
			return nil
		}

		shift.EndedAt = &now
		shift.Active = false

		if err := repo.AppendHistory(ctx, shift); err != nil {
			return err
		}
		if err := repo.ClearActiveShift(ctx); err != nil {
			return err
		}

		payload := api.SyncShiftEndRequest{PairCode: shift.PairCode, EndTime: now}
		if err := enqueue(ctx, tx, models.SyncKindShiftEnd, now, &payload.EventID, payload); err != nil {
			return err
		}

		ended = shift
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "failed to end shift", "error", err)
		return nil, fmt.Errorf("failed to end shift: %w", err)
	}
	if ended == nil {
		return nil, nil
	}

	s.logger.Info(ctx, "shift ended", "shift", ended.ID)
	s.notify()
	return ended, nil
}

// appendToActive runs the shared read-modify-write cycle for append
// operations: load the active shift, let mutate change it and enqueue its
// event, write the document back. All inside one transaction.
func (s *ShiftService) appendToActive(ctx context.Context, what string, mutate func(shift *models.Shift, tx dbx.DBTX, now time.Time) error) (*models.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *models.Shift
	now := s.now().UTC()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := store.NewSQLiteRepository(tx)
		shift, err := repo.ActiveShift(ctx)
		if err != nil {
			return err
		}
		if shift == nil {
			return nil
		}

		if err := mutate(shift, tx, now); err != nil {
			return err
		}
		if err := repo.SaveActiveShift(ctx, shift); err != nil {
			return err
		}

		result = shift
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "failed to add "+what, "error", err)
		return nil, fmt.Errorf("failed to add %s: %w", what, err)
	}
	if result == nil {
		return nil, nil
	}

	s.notify()
	return result, nil
}

// enqueue appends one sync item inside the caller's transaction. The item id
// is generated here and, when eventID is non-nil, written into the payload
// before marshalling so the server can deduplicate retries.
func enqueue(ctx context.Context, tx dbx.DBTX, kind models.SyncKind, now time.Time, eventID *string, payload any) error {
	id := uuid.NewString()
	if eventID != nil {
		*eventID = id
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}

	item := &models.SyncItem{
		ID:        id,
		Kind:      kind,
		Payload:   body,
		CreatedAt: now,
	}
	return outbox.NewSQLiteQueue(tx).Enqueue(ctx, item)
}
