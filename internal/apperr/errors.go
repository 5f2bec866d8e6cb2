// Package apperr defines the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrInvalidName       = errors.New("invalid collection name")
	ErrNoLink            = errors.New("no link under cursor")
	ErrIO                = errors.New("i/o failure")
	ErrCounterBusy       = errors.New("auto id counter busy")
	ErrTemplate          = errors.New("template error")
	ErrIndexDisabled     = errors.New("index disabled")
	ErrOutsideCollection = errors.New("path outside every collection")
)

// Message returns a short text suitable for showing to the user.
// Wrapped context is kept, so callers should wrap with the failing subject.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNoLink):
		return "No URI/file under cursor"
	default:
		return err.Error()
	}
}
