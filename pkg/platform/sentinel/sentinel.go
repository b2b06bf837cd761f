// Package sentinel holds the infrastructure facts stores report. Services
// translate them into coded domain errors; input validation never uses them.
package sentinel

import "errors"

var (
	// ErrNotFound means the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUsed means a unique value such as an email or phone is taken.
	ErrAlreadyUsed = errors.New("already used")
)
