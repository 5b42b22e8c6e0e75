package model

import (
	"slices"
	"time"
)

// DocumentEntry is a document discovered through a link and cataloged from
// HEAD response metadata. Document bodies are never downloaded.
type DocumentEntry struct {
	// URL is the canonical document URL.
	URL string `json:"url"`

	// Title is the anchor text of the first sighting, or the file name.
	Title string `json:"title"`

	// SizeBytes is the HEAD Content-Length. Nil when the server did not send one
	// or the HEAD request failed.
	SizeBytes *int64 `json:"size_bytes"`

	// ContentType is the HEAD Content-Type, if any.
	ContentType string `json:"content_type,omitempty"`

	// LastModified is the HEAD Last-Modified header, verbatim.
	LastModified string `json:"last_modified,omitempty"`

	// ParentPageURL is the page on which the document was first seen.
	ParentPageURL string `json:"parent_page_url"`

	// Parents lists every page known to link to the document, first sighting first.
	Parents []string `json:"parents"`

	// DiscoveredAt is when the document was first seen.
	DiscoveredAt time.Time `json:"discovered_at"`

	// MetadataUnavailable is set when the HEAD request failed.
	MetadataUnavailable bool `json:"metadata_unavailable,omitempty"`

	// MetadataError describes why metadata is unavailable.
	MetadataError string `json:"metadata_error,omitempty"`
}

// AddParent records parent as a linking page. It reports whether parent was new.
func (d *DocumentEntry) AddParent(parent string) bool {
	if parent == "" || slices.Contains(d.Parents, parent) {
		return false
	}
	d.Parents = append(d.Parents, parent)
	return true
}

// Size returns SizeBytes, or 0 when unknown.
func (d *DocumentEntry) Size() int64 {
	if d.SizeBytes == nil {
		return 0
	}
	return *d.SizeBytes
}
