// Package dispatch drives delivery of queued sync items to the remote
// endpoint and applies the retry policy. Delivery is at-least-once: a lost
// success response leaves the item queued for another pass, and the server
// deduplicates by the item's id.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fieldops/shiftsync/internal/agent/models"
	"github.com/fieldops/shiftsync/internal/agent/outbox"
	"github.com/fieldops/shiftsync/internal/api"
	"github.com/fieldops/shiftsync/internal/common"
	"github.com/fieldops/shiftsync/internal/logging"
	"github.com/fieldops/shiftsync/internal/netx"
)

// kindPaths maps a sync item kind to its endpoint path. Photo items do not
// appear here: they go through the two-step upload instead.
var kindPaths = map[models.SyncKind]string{
	models.SyncKindShiftStart: "/api/sync/shift",
	models.SyncKindLocation:   "/api/sync/location",
	models.SyncKindNote:       "/api/sync/note",
	models.SyncKindShiftEnd:   "/api/sync/shift-end",
}

// Dispatcher drains the sync queue against the remote API. Exactly one
// drain runs at a time; extra triggers while one is in flight are dropped,
// the next tick will pick up whatever is left.
type Dispatcher struct {
	queue   outbox.Queue
	client  *resty.Client
	logger  logging.Logger
	timeout time.Duration

	// Seams for tests: reading the photo file and PUTting it to the
	// presigned URL.
	readFile func(name string) ([]byte, error)
	upload   func(ctx context.Context, url string, body []byte, contentType string) error

	draining sync.Mutex
	nudge    chan struct{}
}

// New returns a Dispatcher delivering to the API at baseURL. Each attempt is
// bounded by common.DefaultSyncTimeout.
func New(queue outbox.Queue, baseURL string, logger logging.Logger) *Dispatcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Dispatcher{
		queue:    queue,
		client:   client,
		logger:   logger.With("component", "dispatcher"),
		timeout:  common.DefaultSyncTimeout,
		readFile: os.ReadFile,
		upload:   netx.UploadToPresignedURL,
		nudge:    make(chan struct{}, 1),
	}
}

// SetTimeout overrides the per-attempt delivery timeout.
func (d *Dispatcher) SetTimeout(t time.Duration) {
	d.timeout = t
}

// Nudge requests a drain without blocking. Used after every enqueue.
func (d *Dispatcher) Nudge() {
	select {
	case d.nudge <- struct{}{}:
	default:
	}
}

// Run drains on every nudge and on a fixed interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.nudge:
		case <-ticker.C:
		}
		d.Drain(ctx)
	}
}

// Drain attempts delivery of all retryable items in creation order. One
// item's failure never blocks the rest of the batch. An empty queue is a
// no-op, not an error. Returns how many items were delivered.
func (d *Dispatcher) Drain(ctx context.Context) int {
	if !d.draining.TryLock() {
		return 0
	}
	defer d.draining.Unlock()

	items, err := d.queue.RetryableItems(ctx)
	if err != nil {
		d.logger.Error(ctx, "failed to load retryable items", "error", err)
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	delivered := 0
	for i := range items {
		item := &items[i]
		if err := d.deliver(ctx, item); err != nil {
			d.logger.Warn(ctx, "delivery failed",
				"item", item.ID, "kind", item.Kind, "attempts", item.Attempts+1, "error", err)
			if err := d.queue.RecordAttempt(ctx, item.ID); err != nil {
				d.logger.Error(ctx, "failed to record attempt", "item", item.ID, "error", err)
			}
			continue
		}
		if err := d.queue.Remove(ctx, item.ID); err != nil {
			// The item will be retried and the server will dedupe it.
			d.logger.Error(ctx, "failed to remove delivered item", "item", item.ID, "error", err)
			continue
		}
		delivered++
	}

	d.logger.Info(ctx, "drain pass finished", "items", len(items), "delivered", delivered)
	return delivered
}

// deliver performs one bounded delivery attempt. A timeout is a failure like
// any other: the caller records the attempt and the item stays queued.
func (d *Dispatcher) deliver(ctx context.Context, item *models.SyncItem) error {
	rctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if item.Kind == models.SyncKindPhoto {
		return d.deliverPhoto(rctx, item)
	}

	path, ok := kindPaths[item.Kind]
	if !ok {
		return fmt.Errorf("unknown sync kind %q", item.Kind)
	}
	return d.post(rctx, path, item.Payload, nil)
}

// deliverPhoto runs the sequential-dependent upload path: fetch a presigned
// URL, PUT the image bytes, then post the metadata. Any leg failing fails
// the whole attempt; the next pass restarts from the first leg.
func (d *Dispatcher) deliverPhoto(ctx context.Context, item *models.SyncItem) error {
	var pu models.PhotoUpload
	if err := json.Unmarshal(item.Payload, &pu); err != nil {
		return fmt.Errorf("failed to decode photo payload: %w", err)
	}

	img, err := d.readFile(pu.Photo.LocalURI)
	if err != nil {
		return fmt.Errorf("failed to read photo file: %w", err)
	}

	var target api.UploadURLResponse
	req := api.UploadURLRequest{PairCode: pu.PairCode, PhotoID: pu.Photo.ID}
	if err := d.post(ctx, "/api/upload-url", req, &target); err != nil {
		return fmt.Errorf("failed to obtain upload url: %w", err)
	}

	if err := d.upload(ctx, target.URL, img, "image/jpeg"); err != nil {
		return fmt.Errorf("failed to upload photo: %w", err)
	}

	meta := api.SyncPhotoRequest{
		EventID:    item.ID,
		PairCode:   pu.PairCode,
		PhotoID:    pu.Photo.ID,
		StorageKey: target.Key,
		Timestamp:  pu.Photo.CapturedAt,
		Note:       pu.Photo.Note,
	}
	if loc := pu.Photo.Location; loc != nil {
		meta.Location = &api.LocationFix{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Accuracy:  loc.Accuracy,
			Timestamp: loc.CapturedAt,
			Address:   loc.Address,
		}
	}
	if err := d.post(ctx, "/api/sync/photo-metadata", meta, nil); err != nil {
		return fmt.Errorf("failed to post photo metadata: %w", err)
	}
	return nil
}

// post sends body as JSON and fails on transport errors and non-2xx
// responses alike.
func (d *Dispatcher) post(ctx context.Context, path string, body any, result any) error {
	req := d.client.R().SetContext(ctx).SetBody(body)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Post(path)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("endpoint returned %s: %s", resp.Status(), resp.String())
	}
	return nil
}
