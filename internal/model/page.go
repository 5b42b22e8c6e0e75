package model

import (
	"strings"
	"time"
)

// LinkType classifies an outbound link.
type LinkType string

const (
	// LinkInternal points at a page on the crawled site's registered domain.
	LinkInternal LinkType = "internal"

	// LinkExternal points at another site.
	LinkExternal LinkType = "external"

	// LinkDocument points at a document matched by file extension.
	LinkDocument LinkType = "document"
)

// Page represents one crawled, language-accepted HTML page.
// A Page is created once per URL and never modified after it is persisted.
type Page struct {
	// URL is the canonical URL of the page.
	URL string `json:"url"`

	// Title is the <title> text, falling back to the first h1 and then the URL.
	Title string `json:"title"`

	// ContentText is the cleaned body text with boilerplate removed.
	// Blocks are separated by blank lines; whitespace inside a block is collapsed.
	ContentText string `json:"content_text"`

	// Headings is the heading hierarchy of the cleaned content, in document order.
	Headings []Heading `json:"headings"`

	// OutboundLinks holds every hyperlink found anywhere in the original
	// markup, in document order. Duplicates are kept.
	OutboundLinks []Link `json:"outbound_links"`

	// MetadataHints holds best-effort hints such as department, date and
	// document_type. Keys are absent when no hint was found.
	MetadataHints map[string]string `json:"metadata_hints"`

	// WordCount is the number of whitespace-separated tokens in ContentText.
	WordCount int `json:"word_count"`

	// Language is the detected or declared base language, e.g. "en".
	Language string `json:"language,omitempty"`

	// Depth is the link distance from the seed.
	Depth int `json:"depth"`

	// DiscoveredFrom is the canonical URL of the page that linked here.
	// Empty for the seed.
	DiscoveredFrom string `json:"discovered_from,omitempty"`

	// StatusCode is the HTTP status of the final response.
	StatusCode int `json:"status_code"`

	// FetchedAt is when the page was fetched.
	FetchedAt time.Time `json:"fetched_at"`
}

// Heading is one h1-h6 element.
type Heading struct {
	// Level is 1 for h1 through 6 for h6.
	Level int `json:"level"`

	// Text is the whitespace-collapsed heading text.
	Text string `json:"text"`
}

// Link is one classified hyperlink.
type Link struct {
	// URL is the canonical target URL.
	URL string `json:"url"`

	// Type is the link classification.
	Type LinkType `json:"type"`

	// Text is the whitespace-collapsed anchor text.
	Text string `json:"text,omitempty"`
}

// LinksOfType returns the page's outbound links of the given type, in order.
func (p *Page) LinksOfType(t LinkType) []Link {
	var links []Link
	for _, l := range p.OutboundLinks {
		if l.Type == t {
			links = append(links, l)
		}
	}
	return links
}

// CountWords returns the number of whitespace-separated tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
