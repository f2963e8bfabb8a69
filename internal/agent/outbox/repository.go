// Package outbox is the sync queue: a durable, creation-ordered list of
// pending outbound events. The queue never drops data on its own; only an
// explicit Remove, triggered by confirmed delivery, deletes an item. Items
// that exhaust the retry ceiling stay visible as failed for diagnostics.
package outbox

import (
	"context"

	"github.com/fieldops/shiftsync/internal/agent/models"
)

// Queue is the outbox contract used by the shift service (writer) and the
// sync dispatcher (drainer).
type Queue interface {
	// Enqueue appends a new item with zero attempts.
	Enqueue(ctx context.Context, item *models.SyncItem) error

	// List returns all items, pending and failed, in creation order.
	List(ctx context.Context) ([]models.SyncItem, error)

	// Remove deletes one item by id. Idempotent: removing a missing id is
	// not an error.
	Remove(ctx context.Context, id string) error

	// RecordAttempt increments the attempt count and stamps the last
	// attempt time for one item.
	RecordAttempt(ctx context.Context, id string) error

	// RetryableItems returns items with attempts strictly below the retry
	// ceiling, in creation order.
	RetryableItems(ctx context.Context) ([]models.SyncItem, error)

	// Stats counts total, pending and permanently failed items.
	Stats(ctx context.Context) (models.QueueStats, error)

	// RequeueFailed resets the attempt count of permanently failed items
	// so the dispatcher picks them up again. Returns how many items were
	// requeued.
	RequeueFailed(ctx context.Context) (int, error)
}
