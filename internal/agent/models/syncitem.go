package models

import "time"

// SyncKind tags a sync-queue item with the event type it carries. The tag
// selects the remote endpoint the dispatcher posts to.
type SyncKind string

const (
	SyncKindShiftStart SyncKind = "shift-start"
	SyncKindLocation   SyncKind = "location"
	SyncKindPhoto      SyncKind = "photo"
	SyncKindNote       SyncKind = "note"
	SyncKindShiftEnd   SyncKind = "shift-end"
)

// SyncItem is the outbox unit of work. The queue owns items exclusively:
// all mutation goes through dispatch outcomes (success removes the item,
// failure increments Attempts). Payload is opaque JSON, interpreted only by
// the dispatcher according to Kind. The ID doubles as the idempotency key
// sent to the server.
type SyncItem struct {
	ID            string     `json:"id"`
	Kind          SyncKind   `json:"kind"`
	Payload       []byte     `json:"payload"`
	Attempts      int        `json:"attempts"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
}

// PhotoUpload is the payload of a SyncKindPhoto item. LocalURI names the
// image file still sitting on the device; the dispatcher streams it through
// the presigned-URL path before posting metadata.
type PhotoUpload struct {
	PairCode string `json:"pairCode"`
	Photo    Photo  `json:"photo"`
}

// QueueStats summarizes the outbox for status surfaces. Pending items have
// delivery attempts left; failed ones exhausted the retry ceiling and wait
// for manual requeueing.
type QueueStats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}
