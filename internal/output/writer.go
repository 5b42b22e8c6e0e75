package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/sitecrawl/internal/atomicfile"
	"github.com/nao1215/sitecrawl/internal/canon"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/report"
)

// File and directory names under the output directory.
const (
	PagesDir     = "pages"
	DocumentsDir = "documents"
	CatalogName  = "catalog.json"
	GraphName    = "site_graph.json"
	MetadataName = "site_metadata.json"
	ReportName   = "crawl_report.md"
)

// Catalog is the documents/catalog.json file.
type Catalog struct {
	GeneratedAt    time.Time `json:"generated_at"`
	TotalDocuments int       `json:"total_documents"`
	TotalSizeBytes int64     `json:"total_size_bytes"`

	// ByCategory is filled in by downstream categorization. The crawler
	// always writes it empty.
	ByCategory map[string][]string `json:"by_category"`

	Documents []model.DocumentEntry `json:"documents"`
}

// SiteGraph is the site_graph.json file.
type SiteGraph struct {
	GeneratedAt time.Time    `json:"generated_at"`
	TotalEdges  int          `json:"total_edges"`
	Edges       []model.Edge `json:"edges"`
}

// Writer writes crawl results under one output directory.
// It is safe for concurrent use as long as callers do not write the same
// aggregate file from two goroutines at once.
type Writer struct {
	dir string
	now func() time.Time
}

// Option configures a Writer.
type Option func(*Writer)

// WithClock sets the clock used for generated_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		w.now = now
	}
}

// New creates a Writer for dir. Call EnsureDirs before writing.
func New(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir: dir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// EnsureDirs creates the output directory and its subdirectories.
func (w *Writer) EnsureDirs() error {
	for _, dir := range []string{w.dir, filepath.Join(w.dir, PagesDir), filepath.Join(w.dir, DocumentsDir)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return &PersistenceError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	return nil
}

// PagePath returns the file a page with the given canonical URL is written to.
func (w *Writer) PagePath(canonicalURL string) string {
	return filepath.Join(w.dir, PagesDir, canon.Hash(canonicalURL)+".json")
}

// WritePage writes one page. Writing the same URL again replaces the file.
func (w *Writer) WritePage(p *model.Page) error {
	if p == nil || p.URL == "" {
		return &PersistenceError{Op: "write page", Path: filepath.Join(w.dir, PagesDir), Err: errors.New("page has no URL")}
	}
	path := w.PagePath(p.URL)
	if err := atomicfile.WriteJSON(path, p); err != nil {
		return &PersistenceError{Op: "write page", Path: path, Err: err}
	}
	return nil
}

// ReadPage reads a previously written page.
func (w *Writer) ReadPage(canonicalURL string) (*model.Page, error) {
	data, err := os.ReadFile(w.PagePath(canonicalURL))
	if err != nil {
		return nil, err
	}
	var p model.Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode page %s: %w", canonicalURL, err)
	}
	return &p, nil
}

// WriteCatalog replaces documents/catalog.json.
func (w *Writer) WriteCatalog(entries []model.DocumentEntry) error {
	c := Catalog{
		GeneratedAt:    w.now().UTC(),
		TotalDocuments: len(entries),
		ByCategory:     map[string][]string{},
		Documents:      entries,
	}
	if c.Documents == nil {
		c.Documents = []model.DocumentEntry{}
	}
	for i := range entries {
		c.TotalSizeBytes += entries[i].Size()
	}

	path := filepath.Join(w.dir, DocumentsDir, CatalogName)
	if err := atomicfile.WriteJSON(path, c); err != nil {
		return &PersistenceError{Op: "write catalog", Path: path, Err: err}
	}
	return nil
}

// WriteGraph replaces site_graph.json.
func (w *Writer) WriteGraph(edges []model.Edge) error {
	g := SiteGraph{
		GeneratedAt: w.now().UTC(),
		TotalEdges:  len(edges),
		Edges:       edges,
	}
	if g.Edges == nil {
		g.Edges = []model.Edge{}
	}

	path := filepath.Join(w.dir, GraphName)
	if err := atomicfile.WriteJSON(path, g); err != nil {
		return &PersistenceError{Op: "write graph", Path: path, Err: err}
	}
	return nil
}

// WriteMetadata replaces site_metadata.json.
func (w *Writer) WriteMetadata(meta *model.RunMetadata) error {
	path := filepath.Join(w.dir, MetadataName)
	if err := atomicfile.WriteJSON(path, meta); err != nil {
		return &PersistenceError{Op: "write metadata", Path: path, Err: err}
	}
	return nil
}

// WriteReport renders the summary as Markdown and replaces crawl_report.md.
func (w *Writer) WriteReport(s *report.Summary) error {
	path := filepath.Join(w.dir, ReportName)

	var buf bytes.Buffer
	if _, err := report.NewMarkdownWriter(&buf).Write(s); err != nil {
		return &PersistenceError{Op: "render report", Path: path, Err: err}
	}
	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &PersistenceError{Op: "write report", Path: path, Err: err}
	}
	return nil
}

// Reset removes everything this package writes, leaving unrelated files alone.
func (w *Writer) Reset() error {
	targets := []string{
		filepath.Join(w.dir, PagesDir),
		filepath.Join(w.dir, DocumentsDir),
		filepath.Join(w.dir, GraphName),
		filepath.Join(w.dir, MetadataName),
		filepath.Join(w.dir, ReportName),
	}
	for _, path := range targets {
		if err := os.RemoveAll(path); err != nil {
			return &PersistenceError{Op: "remove", Path: path, Err: err}
		}
	}
	return nil
}

// ReadMetadata reads site_metadata.json from an output directory.
func ReadMetadata(dir string) (*model.RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataName)) //nolint:gosec // path is under the configured output directory
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoMetadata
	}
	if err != nil {
		return nil, err
	}
	var meta model.RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", MetadataName, err)
	}
	return &meta, nil
}
