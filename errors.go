package bones

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories spec's error-handling
// design names: a stable, machine-checkable code independent of the
// human-readable message wrapped around it.
type Kind string

const (
	KindTornWrite         Kind = "TORN_WRITE"
	KindHashMismatch      Kind = "HASH_MISMATCH"
	KindUnknownParent     Kind = "UNKNOWN_PARENT"
	KindUnknownEventType  Kind = "UNKNOWN_EVENT_TYPE"
	KindUnknownFields     Kind = "UNKNOWN_FIELDS"
	KindVersionTooNew     Kind = "VERSION_TOO_NEW"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindLockContention    Kind = "LOCK_CONTENTION"
	KindCorruptManifest   Kind = "CORRUPT_MANIFEST"
	KindCursorStale       Kind = "CURSOR_STALE"
	KindSecretGuard       Kind = "SECRET_GUARD"
	KindMissingAgent      Kind = "MISSING_AGENT"
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidIntent     Kind = "INVALID_INTENT"
)

// Error is the structured error every exported bones function returns
// for a recognized failure. ItemID and EventHash are filled in where
// known; Err carries the underlying cause for %w unwrapping.
type Error struct {
	Kind      Kind
	Message   string
	ItemID    string
	EventHash string
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.ItemID != "" && e.EventHash != "":
		return fmt.Sprintf("%s: %s (item=%s, event=%s)", e.Kind, e.Message, e.ItemID, e.EventHash)
	case e.ItemID != "":
		return fmt.Sprintf("%s: %s (item=%s)", e.Kind, e.Message, e.ItemID)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is reports whether err is a *Error of kind k, unwrapping as needed.
func Is(err error, k Kind) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == k
	}
	return false
}

func IsMissingAgent(err error) bool      { return Is(err, KindMissingAgent) }
func IsLockContention(err error) bool    { return Is(err, KindLockContention) }
func IsSecretGuard(err error) bool       { return Is(err, KindSecretGuard) }
func IsNotFound(err error) bool          { return Is(err, KindNotFound) }
func IsInvalidIntent(err error) bool     { return Is(err, KindInvalidIntent) }
func IsVersionTooNew(err error) bool     { return Is(err, KindVersionTooNew) }
func IsInvalidTransition(err error) bool { return Is(err, KindInvalidTransition) }
