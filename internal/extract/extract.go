package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitecrawl/internal/canon"
	"github.com/nao1215/sitecrawl/internal/model"
)

// DefaultDocumentExtensions are the file extensions that mark a link as a document.
var DefaultDocumentExtensions = []string{"pdf", "doc", "docx", "xls", "xlsx"}

// sniffLen is how much of a body is checked for binary content.
const sniffLen = 512

// Extractor turns HTML into a model.Page. It holds no per-page state and
// is safe for concurrent use.
type Extractor struct {
	// scope decides whether a link is internal.
	scope canon.Scope

	// extensions is the lowercase document extension allowlist, without dots.
	extensions map[string]struct{}

	// dropSelectors are removed from the cleaned tree in addition to the
	// built-in boilerplate selectors.
	dropSelectors []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDocumentExtensions replaces the document extension allowlist.
// Leading dots and case are ignored.
func WithDocumentExtensions(exts []string) Option {
	return func(e *Extractor) {
		e.extensions = extensionSet(exts)
	}
}

// WithDropSelectors adds CSS selectors to remove during cleaning.
func WithDropSelectors(selectors []string) Option {
	return func(e *Extractor) {
		e.dropSelectors = append(e.dropSelectors, selectors...)
	}
}

// New creates an Extractor for the site described by scope.
func New(scope canon.Scope, opts ...Option) *Extractor {
	e := &Extractor{
		scope:      scope,
		extensions: extensionSet(DefaultDocumentExtensions),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses rawHTML for the page whose canonical URL is pageURL.
// fetchedURL is the URL the body was served from, before canonicalization;
// relative links resolve against it so that "/dept/" and "/dept" differ.
// An empty fetchedURL means pageURL.
//
// The returned Page carries URL, Title, ContentText, Headings,
// OutboundLinks, MetadataHints and WordCount. Crawl bookkeeping fields
// (depth, language, status, fetch time) are left for the caller.
func (e *Extractor) Extract(rawHTML []byte, pageURL, fetchedURL string) (*model.Page, error) {
	if len(bytes.TrimSpace(rawHTML)) == 0 {
		return nil, &ExtractionError{URL: pageURL, Err: ErrEmptyDocument}
	}
	if bytes.IndexByte(rawHTML[:min(len(rawHTML), sniffLen)], 0) >= 0 {
		return nil, &ExtractionError{URL: pageURL, Err: ErrBinaryContent}
	}

	original, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}
	cleaned, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}

	if fetchedURL == "" {
		fetchedURL = pageURL
	}
	links := e.links(original, fetchedURL)

	root := e.clean(cleaned)
	blocks := textBlocks(root)
	content := strings.Join(blocks, "\n\n")

	page := &model.Page{
		URL:           pageURL,
		Title:         title(original, pageURL),
		ContentText:   content,
		Headings:      headings(root),
		OutboundLinks: links,
		MetadataHints: metadataHints(original, pageURL, content),
		WordCount:     model.CountWords(content),
	}
	return page, nil
}

// title returns the <title> text, the first h1, or the URL.
func title(doc *goquery.Document, pageURL string) string {
	if t := collapse(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if h := collapse(doc.Find("h1").First().Text()); h != "" {
		return h
	}
	return pageURL
}

// collapse trims s and collapses every run of whitespace to one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			set[ext] = struct{}{}
		}
	}
	return set
}
