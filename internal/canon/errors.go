package canon

import "errors"

var (
	// ErrMalformedURL is returned when the input cannot be parsed as a URL.
	// Callers skip the single link; it never stops a crawl.
	ErrMalformedURL = errors.New("malformed URL")

	// ErrUnsupportedScheme is returned for resolved URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)
