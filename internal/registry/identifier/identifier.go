// Package identifier derives and validates the two-letter, four-digit codes
// that name clients and agents.
//
// An identifier for sequence index n is built from a rolling two-letter prefix
// and a zero-padded ordinal:
//
//	first  = base(class) + n/26
//	second = 'A' + n%26
//	suffix = n+1, four digits
//
// Clients use base 'A' (AA0001, AB0002, ...), agents base 'B' (BA0001, BB0002, ...).
// Because the letters and the suffix are both functions of n, two identifiers
// of the same class are equal only if their indexes are, and identifiers of
// different classes never collide.
//
// The generator is pure. Uniqueness depends on callers never handing it the
// same index twice; the store's per-class sequence guarantees that.
package identifier

import (
	"errors"
	"fmt"
	"regexp"

	"bothub/internal/registry/models"
)

// ErrCapacityExceeded is returned when the first letter would pass 'Z'.
// Clients hold 676 identifiers (AA..ZZ), agents 650 (BA..ZZ).
var ErrCapacityExceeded = errors.New("identifier capacity exceeded")

var formatPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{4}$`)

func baseLetter(class models.EntityClass) (byte, bool) {
	switch class {
	case models.EntityClient:
		return 'A', true
	case models.EntityAgent:
		return 'B', true
	default:
		return 0, false
	}
}

// Capacity returns the number of identifiers available to a class.
func Capacity(class models.EntityClass) int {
	base, ok := baseLetter(class)
	if !ok {
		return 0
	}
	return int('Z'-base+1) * 26
}

// Next returns the identifier for the zero-based sequence index n.
func Next(class models.EntityClass, n int) (string, error) {
	base, ok := baseLetter(class)
	if !ok {
		return "", fmt.Errorf("unknown entity class %q", class)
	}
	if n < 0 || n >= Capacity(class) {
		return "", fmt.Errorf("%s index %d: %w", class, n, ErrCapacityExceeded)
	}
	first := base + byte(n/26)
	second := 'A' + byte(n%26)
	return fmt.Sprintf("%c%c%04d", first, second, n+1), nil
}

// IsValidFormat reports whether s is exactly two uppercase ASCII letters
// followed by four ASCII digits.
func IsValidFormat(s string) bool {
	return formatPattern.MatchString(s)
}
