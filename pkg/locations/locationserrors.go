package locations

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a request that cannot be served as given: a missing
	// id or a query string that does not parse.
	ErrValidation = errors.New("invalid localizacao")
	// ErrNotFound marks a missing id or composite key.
	ErrNotFound = errors.New("localizacao not found")
)

// StorageError wraps a failure of the store or the index. It is surfaced
// to the caller as is; nothing retries it.
type StorageError struct {
	Op      string // "create", "save", "get", ...
	Backend string // "store" or "index"
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// wrapStorage leaves not-found and validation errors untouched so callers
// can still match them with errors.Is.
func wrapStorage(backend, op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		return err
	}
	return &StorageError{Op: op, Backend: backend, Err: err}
}
