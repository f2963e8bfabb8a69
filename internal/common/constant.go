// Package common contains shared constants and sentinel errors used across
// ShiftSync components.
package common

import "time"

const (
	// RetryCeiling is the maximum number of delivery attempts for one
	// sync-queue item. An item at or beyond the ceiling is permanently
	// failed: still stored and visible in stats, but never dispatched.
	RetryCeiling = 5

	// PairCodeLength is the length of a normalized pair code.
	PairCodeLength = 6

	// PairCodeTTL is how long a pair code resolves after issuance,
	// enforced server-side regardless of shift completion.
	PairCodeTTL = 24 * time.Hour

	// DefaultSyncTimeout bounds one delivery attempt of a queued item.
	DefaultSyncTimeout = 15 * time.Second

	// InlineSyncTimeout bounds latency-sensitive inline calls such as the
	// viewer's state fetch.
	InlineSyncTimeout = 3 * time.Second
)
