// Package paircode generates and normalizes the short codes that correlate
// a reporting device with its viewers. A pair code is the only lookup key a
// viewer has; it carries no authentication and expires server-side.
package paircode

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/fieldops/shiftsync/internal/common"
)

// alphabet omits 0/O and 1/I so codes survive being read out loud or
// retyped from a photo of a screen.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generate returns a new normalized pair code of common.PairCodeLength
// characters, sourced from crypto/rand.
func Generate() (string, error) {
	b := make([]byte, common.PairCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate pair code: %w", err)
	}
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b), nil
}

// Normalize strips hyphens and uppercases. The same rule is applied at
// generation time and on every lookup, so "ab-12-3d" and "AB123D" resolve
// to the same shift.
func Normalize(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}

// Validate normalizes code and checks its shape: exact length, uppercase
// letters and digits only. Lookups accept the full alphanumeric range even
// though freshly generated codes use the restricted alphabet. Returns the
// normalized code or common.ErrInvalidPairCode.
func Validate(code string) (string, error) {
	n := Normalize(code)
	if len(n) != common.PairCodeLength {
		return "", common.ErrInvalidPairCode
	}
	for _, c := range n {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", common.ErrInvalidPairCode
		}
	}
	return n, nil
}
