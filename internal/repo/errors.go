package repo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an index is out of range for the
	// freshly loaded collection.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrVariantMismatch is returned when an update targets a record of the
	// other events.json variant; the tag never changes after creation.
	ErrVariantMismatch = errors.New("record variant cannot change")
	// ErrCorrupt is returned by mutations on a collection file that exists
	// but cannot be decoded, so it is never silently replaced.
	ErrCorrupt = errors.New("collection file is corrupt")
)

// StorageError reports a failed filesystem operation.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func notFound(c string, index, n int) error {
	return fmt.Errorf("%w: %s index %d (have %d)", ErrNotFound, c, index, n)
}
