// Package api defines the JSON wire types of the sync API, shared by the
// agent (producer), the server (consumer) and the viewer (reader).
//
// Every mutating request carries EventID, a client-generated UUID assigned
// when the event enters the sync queue. The server treats it as an
// idempotency key: re-submitting the same event is a successful no-op, which
// turns the queue's at-least-once delivery into exactly-once effects.
package api

import "time"

// LocationFix is one GPS fix as it travels over the wire.
type LocationFix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Address   string    `json:"address,omitempty"`
}

// SyncShiftRequest is the body of POST /api/sync/shift.
type SyncShiftRequest struct {
	EventID   string    `json:"eventId"`
	PairCode  string    `json:"pairCode"`
	ShiftID   string    `json:"shiftId"`
	StaffName string    `json:"staffName"`
	SiteName  string    `json:"siteName"`
	StartTime time.Time `json:"startTime"`
}

// SyncLocationRequest is the body of POST /api/sync/location.
type SyncLocationRequest struct {
	EventID  string `json:"eventId"`
	PairCode string `json:"pairCode"`
	LocationFix
}

// UploadURLRequest is the body of POST /api/upload-url, the first leg of the
// two-step photo upload.
type UploadURLRequest struct {
	PairCode string `json:"pairCode"`
	PhotoID  string `json:"photoId"`
}

// UploadURLResponse returns the presigned PUT target and the storage key the
// agent must echo back in the photo-metadata call.
type UploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// SyncPhotoRequest is the body of POST /api/sync/photo-metadata, the final
// leg of the two-step upload. StorageKey references the uploaded binary.
type SyncPhotoRequest struct {
	EventID    string       `json:"eventId"`
	PairCode   string       `json:"pairCode"`
	PhotoID    string       `json:"photoId"`
	StorageKey string       `json:"storageKey"`
	Timestamp  time.Time    `json:"timestamp"`
	Location   *LocationFix `json:"location,omitempty"`
	Note       string       `json:"note,omitempty"`
}

// SyncNoteRequest is the body of POST /api/sync/note.
type SyncNoteRequest struct {
	EventID   string       `json:"eventId"`
	PairCode  string       `json:"pairCode"`
	NoteID    string       `json:"noteId"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
	Location  *LocationFix `json:"location,omitempty"`
}

// SyncShiftEndRequest is the body of POST /api/sync/shift-end.
type SyncShiftEndRequest struct {
	EventID  string    `json:"eventId"`
	PairCode string    `json:"pairCode"`
	EndTime  time.Time `json:"endTime"`
}

// PhotoState is one photo in the aggregated viewer response. URL is a
// presigned GET link valid for a short window.
type PhotoState struct {
	PhotoID   string       `json:"photoId"`
	URL       string       `json:"url"`
	Timestamp time.Time    `json:"timestamp"`
	Location  *LocationFix `json:"location,omitempty"`
	Note      string       `json:"note,omitempty"`
}

// NoteState is one note in the aggregated viewer response.
type NoteState struct {
	NoteID    string       `json:"noteId"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
	Location  *LocationFix `json:"location,omitempty"`
}

// ShiftStateResponse is the body of GET /api/sync/shift/{pairCode}:
// shift metadata plus all accumulated locations, photos and notes, ordered
// by their own capture timestamps.
type ShiftStateResponse struct {
	ShiftID   string        `json:"shiftId"`
	PairCode  string        `json:"pairCode"`
	StaffName string        `json:"staffName"`
	SiteName  string        `json:"siteName"`
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty"`
	Active    bool          `json:"active"`
	Locations []LocationFix `json:"locations"`
	Photos    []PhotoState  `json:"photos"`
	Notes     []NoteState   `json:"notes"`
}
