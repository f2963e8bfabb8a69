// Package common defines shared constants and sentinel errors used across
// agent and server layers of ShiftSync. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Shift lifecycle errors.
	ErrNoActiveShift      = errors.New("no active shift")
	ErrShiftAlreadyActive = errors.New("shift already active")

	// Pair-code errors. An expired code is reported to viewers the same
	// way as an unknown one, but the server distinguishes them internally.
	ErrInvalidPairCode = errors.New("invalid pair code")
	ErrPairCodeExpired = errors.New("pair code expired")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")
)
