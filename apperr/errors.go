// Package apperr defines the error kinds shared across the application.
// Callers match them with errors.Is after any amount of fmt.Errorf wrapping.
package apperr

import "errors"

var (
	// ErrInvalidConfig marks configuration problems detected at startup:
	// a missing or empty images folder, num_classes < 1, a negative
	// max_history, an unknown sort order. Fatal before the server binds.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNothingToUndo is returned when undo is requested with an empty
	// history. It is a user-visible notice, never a failure.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrStorageUnavailable wraps datastore read/write failures. The
	// in-memory navigation state is left untouched so the user can retry.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrRatingOutOfRange is returned for a rating outside 1..num_classes.
	ErrRatingOutOfRange = errors.New("rating out of range")
)
