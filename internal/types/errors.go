// internal/types/errors.go
package types

import "errors"

var (
	// ErrNotFound is returned by stores for missing rows.
	ErrNotFound = errors.New("not found")

	// ErrTurnOrder rejects a turn whose number is not exactly one
	// greater than the session's last recorded turn. This signals a
	// caller bug; turns are never silently reordered.
	ErrTurnOrder = errors.New("turn number out of order")

	// ErrSessionClosed rejects turns submitted after a session reached
	// a terminal status.
	ErrSessionClosed = errors.New("session closed")
)
