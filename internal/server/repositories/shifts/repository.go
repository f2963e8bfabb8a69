// Package shifts provides PostgreSQL-backed persistence for the sync
// endpoint: accepted shift, location, photo and note events.
package shifts

import (
	"context"
	"time"

	"github.com/fieldops/shiftsync/internal/server/models"
)

// Repository is the storage contract of the sync service. All ingest
// operations are idempotent with respect to their natural key: re-inserting
// an already-accepted event succeeds without changing anything.
type Repository interface {
	CreateShift(ctx context.Context, shift *models.Shift) error
	GetShiftByPairCode(ctx context.Context, pairCode string) (*models.Shift, error)
	EndShift(ctx context.Context, pairCode string, endTime time.Time) error

	AddLocation(ctx context.Context, loc *models.Location) error
	AddPhoto(ctx context.Context, photo *models.Photo) error
	AddNote(ctx context.Context, note *models.Note) error

	ListLocations(ctx context.Context, shiftID string) ([]models.Location, error)
	ListPhotos(ctx context.Context, shiftID string) ([]models.Photo, error)
	ListNotes(ctx context.Context, shiftID string) ([]models.Note, error)
}
