package model

// URLStatus is the terminal state of a visited URL.
type URLStatus string

const (
	// StatusPersisted means the page was fetched, accepted and written.
	StatusPersisted URLStatus = "persisted"

	// StatusFilteredOut means the page was fetched but rejected by the language filter.
	StatusFilteredOut URLStatus = "filtered_out"

	// StatusFailed means robots.txt disallowed the URL or fetching or
	// extraction failed.
	StatusFailed URLStatus = "failed"

	// StatusRedirected means the URL redirected to another canonical URL,
	// which carries the page identity.
	StatusRedirected URLStatus = "redirected"

	// StatusDocument means a URL expected to be a page answered with a
	// non-HTML document and was cataloged instead.
	StatusDocument URLStatus = "document"
)

// IsValid reports whether s is a known status.
func (s URLStatus) IsValid() bool {
	switch s {
	case StatusPersisted, StatusFilteredOut, StatusFailed, StatusRedirected, StatusDocument:
		return true
	default:
		return false
	}
}

// Visit is the visited-set record of one canonical URL.
type Visit struct {
	// Status is the terminal state.
	Status URLStatus `json:"status"`

	// Reason explains failures and redirects.
	Reason string `json:"reason,omitempty"`
}
