// Package store is the local event store: durable reads and writes of the
// current-shift document and the shift history, kept as whole-document JSON
// blobs the way the on-device storage treats them.
package store

import (
	"context"

	"github.com/fieldops/shiftsync/internal/agent/models"
)

// Repository persists the device's view of shift state.
//
// ActiveShift returns nil, nil when no shift is active: absence is a valid,
// expected state, not an error.
type Repository interface {
	ActiveShift(ctx context.Context) (*models.Shift, error)
	SaveActiveShift(ctx context.Context, shift *models.Shift) error
	ClearActiveShift(ctx context.Context) error
	AppendHistory(ctx context.Context, shift *models.Shift) error
	History(ctx context.Context) ([]models.Shift, error)
}
