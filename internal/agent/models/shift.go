// Package models defines the agent-side domain types: the shift document
// persisted by the local event store and the items carried by the sync queue.
package models

import "time"

// LocationPoint is one GPS fix captured during a shift. Points are appended
// in non-decreasing CapturedAt order and never mutated afterwards.
type LocationPoint struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
	Address    string    `json:"address,omitempty"`
}

// Photo is one evidence photo owned by exactly one shift. LocalURI points at
// the on-device file; RemoteURL is filled in once the upload completes. The
// ID stays stable across that transition.
type Photo struct {
	ID         string         `json:"id"`
	LocalURI   string         `json:"localUri,omitempty"`
	RemoteURL  string         `json:"remoteUrl,omitempty"`
	CapturedAt time.Time      `json:"capturedAt"`
	Location   *LocationPoint `json:"location,omitempty"`
	Note       string         `json:"note,omitempty"`
}

// Note is a free-text annotation, optionally geotagged.
type Note struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"createdAt"`
	Location  *LocationPoint `json:"location,omitempty"`
}

// Shift is one continuous on-duty period for one staff member at one site.
// The whole document is stored as a single JSON blob; at most one shift is
// active per device at a time. PairCode is assigned at start and immutable
// for the shift's lifetime.
type Shift struct {
	ID        string          `json:"id"`
	StaffName string          `json:"staffName"`
	SiteName  string          `json:"siteName"`
	PairCode  string          `json:"pairCode"`
	StartedAt time.Time       `json:"startedAt"`
	EndedAt   *time.Time      `json:"endedAt,omitempty"`
	Active    bool            `json:"active"`
	Locations []LocationPoint `json:"locations"`
	Photos    []Photo         `json:"photos"`
	Notes     []Note          `json:"notes"`
}
