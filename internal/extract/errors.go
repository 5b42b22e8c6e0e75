package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument is returned for a body with no markup at all.
	ErrEmptyDocument = errors.New("empty document")

	// ErrBinaryContent is returned for a body that is not text.
	ErrBinaryContent = errors.New("binary content")
)

// ExtractionError reports a page whose markup could not be turned into a Page.
type ExtractionError struct {
	// URL is the page URL.
	URL string

	// Err is the underlying failure.
	Err error
}

// Error implements error.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}
