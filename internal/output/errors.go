package output

import (
	"errors"
	"fmt"
)

// ErrNoMetadata is returned by ReadMetadata when no run metadata exists.
var ErrNoMetadata = errors.New("no run metadata found")

// PersistenceError reports a failed write to the output directory.
// The crawl treats it as fatal.
type PersistenceError struct {
	// Op is the operation, e.g. "write page" or "mkdir".
	Op string

	// Path is the file or directory involved.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
