// Package models defines the server-side row types persisted by the shift
// repositories.
package models

import "time"

// Shift is the server's record of one reported shift. CodeIssuedAt anchors
// the 24-hour pair-code expiry window; it is set when the shift-start event
// is first accepted, regardless of later retries.
type Shift struct {
	ID           string
	PairCode     string
	StaffName    string
	SiteName     string
	StartedAt    time.Time
	EndedAt      *time.Time
	CodeIssuedAt time.Time
}

// Location is one accepted location event. EventID is the client-generated
// idempotency key; a duplicate submission is dropped on conflict.
type Location struct {
	EventID    string
	ShiftID    string
	Latitude   float64
	Longitude  float64
	Accuracy   *float64
	CapturedAt time.Time
	Address    string
}

// Photo is one accepted photo-metadata event. StorageKey points at the
// uploaded binary in object storage; viewers get a presigned GET URL.
type Photo struct {
	ID         string
	EventID    string
	ShiftID    string
	StorageKey string
	CapturedAt time.Time
	Latitude   *float64
	Longitude  *float64
	Accuracy   *float64
	Address    string
	Note       string
}

// Note is one accepted note event.
type Note struct {
	ID        string
	EventID   string
	ShiftID   string
	Body      string
	CreatedAt time.Time
	Latitude  *float64
	Longitude *float64
	Accuracy  *float64
	Address   string
}
