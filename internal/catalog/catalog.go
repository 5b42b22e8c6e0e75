// Package catalog records documents (PDFs, spreadsheets, ...) linked from
// crawled pages. A document is described by a HEAD request only; its body
// is never downloaded.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/sitecrawl/internal/fetcher"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/politeness"
)

// Reasons recorded when a document's metadata could not be read.
const (
	ReasonDisallowed  = "robots.txt disallowed"
	ReasonInterrupted = "interrupted before HEAD request"
	ReasonMalformed   = "malformed URL"
)

// HeadFetcher issues HEAD requests.
type HeadFetcher interface {
	FetchHead(ctx context.Context, rawURL string) (*fetcher.HeadResponse, error)
}

// Gate is the politeness gate a HEAD request must pass.
type Gate interface {
	AllowAndWait(ctx context.Context, u *url.URL) (politeness.Decision, error)
}

// Cataloger keeps one DocumentEntry per canonical document URL, in
// discovery order. It is safe for concurrent use. Recording the same
// (document, parent) pair twice changes nothing, so a page re-processed
// after a resume never duplicates catalog data.
type Cataloger struct {
	head   HeadFetcher
	gate   Gate
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*model.DocumentEntry
	order   []string

	// pending holds entries whose HEAD request has not finished, with a
	// channel closed when it does. They are left out of Entries so a
	// checkpoint never records them half-filled.
	pending map[string]chan struct{}
}

// Option configures a Cataloger.
type Option func(*Cataloger)

// WithGate makes HEAD requests wait at gate. Without one they are sent immediately.
func WithGate(gate Gate) Option {
	return func(c *Cataloger) {
		c.gate = gate
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cataloger) {
		c.logger = logger
	}
}

// New creates a Cataloger that reads document metadata with head.
func New(head HeadFetcher, opts ...Option) *Cataloger {
	c := &Cataloger{
		head:    head,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
		entries: make(map[string]*model.DocumentEntry),
		pending: make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordDocument records a sighting of docURL (canonical) linked from the
// page parent with anchor text title. The first sighting creates the entry
// and issues a HEAD request; later sightings only add parent. It returns
// true when the entry was created.
//
// A later sighting of an entry whose HEAD request is still running returns
// once that request has finished, so a parent recorded here is part of the
// next Entries call.
//
// HEAD failures are recorded on the entry, never returned: a document whose
// metadata is unavailable is still catalogued.
func (c *Cataloger) RecordDocument(ctx context.Context, docURL, title, parent string) bool {
	entry, created, pending := c.sight(docURL, title, parent, true)
	if !created {
		if pending != nil {
			<-pending
		}
		return false
	}

	meta := c.lookup(ctx, docURL)

	c.mu.Lock()
	defer c.mu.Unlock()
	if done, ok := c.pending[docURL]; ok {
		close(done)
		delete(c.pending, docURL)
	}
	entry.SizeBytes = meta.SizeBytes
	entry.ContentType = meta.ContentType
	entry.LastModified = meta.LastModified
	entry.MetadataUnavailable = meta.MetadataUnavailable
	entry.MetadataError = meta.MetadataError
	return true
}

// RecordFetched catalogs a URL that was fetched as a page but answered with
// a document content type. The GET response headers stand in for HEAD.
func (c *Cataloger) RecordFetched(docURL, title, parent string, sizeBytes *int64, contentType, lastModified string) bool {
	entry, created, pending := c.sight(docURL, title, parent, false)
	if !created {
		if pending != nil {
			<-pending
		}
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry.SizeBytes = sizeBytes
	entry.ContentType = contentType
	entry.LastModified = lastModified
	return true
}

// sight returns the entry for docURL, creating it if needed. A created
// entry is marked pending when head is true. For an existing entry still
// pending it also returns the channel closed when its HEAD request is done.
func (c *Cataloger) sight(docURL, title, parent string, head bool) (*model.DocumentEntry, bool, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[docURL]; ok {
		e.AddParent(parent)
		return e, false, c.pending[docURL]
	}

	e := &model.DocumentEntry{
		URL:           docURL,
		Title:         documentTitle(docURL, title),
		ParentPageURL: parent,
		Parents:       []string{},
		DiscoveredAt:  c.now(),
	}
	e.AddParent(parent)
	c.entries[docURL] = e
	c.order = append(c.order, docURL)
	if head {
		c.pending[docURL] = make(chan struct{})
	}
	return e, true, nil
}

// lookup gathers metadata for a new document.
func (c *Cataloger) lookup(ctx context.Context, docURL string) model.DocumentEntry {
	var meta model.DocumentEntry
	unavailable := func(reason string) model.DocumentEntry {
		meta.MetadataUnavailable = true
		meta.MetadataError = reason
		return meta
	}

	u, err := url.Parse(docURL)
	if err != nil {
		return unavailable(ReasonMalformed)
	}

	if c.gate != nil {
		decision, err := c.gate.AllowAndWait(ctx, u)
		if err != nil {
			return unavailable(ReasonInterrupted)
		}
		if decision == politeness.Disallowed {
			return unavailable(ReasonDisallowed)
		}
	}

	resp, err := c.head.FetchHead(context.WithoutCancel(ctx), docURL)
	if err != nil {
		c.logger.Warn("document metadata unavailable", "url", docURL, "error", err)
		var fe *fetcher.FetchError
		if errors.As(err, &fe) && fe.Err != nil {
			return unavailable(fe.Err.Error())
		}
		return unavailable(err.Error())
	}

	meta.SizeBytes = resp.SizeBytes
	meta.ContentType = resp.ContentType
	meta.LastModified = resp.LastModified
	return meta
}

// Entries returns copies of all complete entries in discovery order.
func (c *Cataloger) Entries() []model.DocumentEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.DocumentEntry, 0, len(c.order))
	for _, u := range c.order {
		if _, ok := c.pending[u]; ok {
			continue
		}
		e := *c.entries[u]
		e.Parents = append([]string(nil), e.Parents...)
		out = append(out, e)
	}
	return out
}

// Len returns the number of complete entries.
func (c *Cataloger) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order) - len(c.pending)
}

// Restore replaces the catalog with entries from a checkpoint.
func (c *Cataloger) Restore(entries []model.DocumentEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*model.DocumentEntry, len(entries))
	c.pending = make(map[string]chan struct{})
	c.order = c.order[:0]
	for i := range entries {
		e := entries[i]
		if _, dup := c.entries[e.URL]; dup {
			continue
		}
		if e.Parents == nil {
			e.Parents = []string{}
		}
		c.entries[e.URL] = &e
		c.order = append(c.order, e.URL)
	}
}

// documentTitle returns the anchor text, or else the last path segment.
func documentTitle(docURL, anchor string) string {
	if anchor = strings.TrimSpace(anchor); anchor != "" {
		return anchor
	}
	u, err := url.Parse(docURL)
	if err != nil {
		return docURL
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return docURL
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return base
}
