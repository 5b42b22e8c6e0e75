package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecrawl/internal/canon"
	"github.com/nao1215/sitecrawl/internal/model"
)

// FileName is the index file name inside the output directory.
const FileName = "index.db"

// Index is a SQLite mirror of crawl results.
type Index struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Index behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the index in dir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dir string, opts Options) (*Index, error) {
	dbPath := filepath.Join(dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("index not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check index path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	idx := &Index{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := idx.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return idx, nil
}

// Remove deletes the index in dir along with its WAL files.
// A missing index is not an error.
func Remove(dir string) error {
	base := filepath.Join(dir, FileName)
	for _, path := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove index: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (idx *Index) Path() string {
	return idx.dbPath
}

// Close closes the database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// createTables creates the schema if it doesn't exist.
func (idx *Index) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		status TEXT NOT NULL,
		pages_written INTEGER DEFAULT 0,
		documents_catalogued INTEGER DEFAULT 0,
		failures INTEGER DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		run_id TEXT NOT NULL,
		title TEXT,
		language TEXT,
		depth INTEGER,
		word_count INTEGER,
		status_code INTEGER,
		discovered_from TEXT,
		fetched_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_pages_language ON pages(language);

	CREATE TABLE IF NOT EXISTS documents (
		url TEXT PRIMARY KEY,
		title TEXT,
		size_bytes INTEGER,
		content_type TEXT,
		last_modified TEXT,
		parent_page_url TEXT,
		discovered_at TEXT,
		metadata_unavailable INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS document_parents (
		document_url TEXT NOT NULL,
		page_url TEXT NOT NULL,
		PRIMARY KEY (document_url, page_url)
	);

	-- seq is the link's position on the source page; duplicates are kept
	CREATE TABLE IF NOT EXISTS edges (
		from_url TEXT NOT NULL,
		seq INTEGER NOT NULL,
		to_url TEXT NOT NULL,
		type TEXT NOT NULL,
		PRIMARY KEY (from_url, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_url);

	CREATE TABLE IF NOT EXISTS url_status (
		url TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		reason TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_url_status_status ON url_status(status);
	`

	_, err := idx.db.ExecContext(context.Background(), schema)
	return err
}

// UpsertRun records or updates a run.
func (idx *Index) UpsertRun(ctx context.Context, meta *model.RunMetadata) error {
	query := `
	INSERT INTO runs (run_id, base_url, started_at, finished_at, status, pages_written, documents_catalogued, failures)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		finished_at = excluded.finished_at,
		status = excluded.status,
		pages_written = excluded.pages_written,
		documents_catalogued = excluded.documents_catalogued,
		failures = excluded.failures,
		updated_at = CURRENT_TIMESTAMP
	`

	var finished sql.NullString
	if meta.FinishedAt != nil {
		finished = sql.NullString{String: formatTime(*meta.FinishedAt), Valid: true}
	}

	_, err := idx.db.ExecContext(ctx, query,
		meta.RunID,
		meta.BaseURL,
		formatTime(meta.StartedAt),
		finished,
		string(meta.Status),
		meta.Counts.PagesWritten,
		meta.Counts.DocumentsCatalogued,
		meta.Counts.Failures,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert run: %w", err)
	}
	return nil
}

// RunRecord is a stored run.
type RunRecord struct {
	RunID      string
	BaseURL    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     model.RunStatus
	Pages      int
	Documents  int
	Failures   int
}

// GetRun retrieves a run by ID. It returns nil when the run is unknown.
func (idx *Index) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	query := `
	SELECT run_id, base_url, started_at, finished_at, status, pages_written, documents_catalogued, failures
	FROM runs
	WHERE run_id = ?
	`

	var r RunRecord
	var started string
	var finished sql.NullString
	var status string
	err := idx.db.QueryRowContext(ctx, query, runID).Scan(
		&r.RunID, &r.BaseURL, &started, &finished, &status, &r.Pages, &r.Documents, &r.Failures,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	r.StartedAt = parseTimestamp(started)
	if finished.Valid {
		t := parseTimestamp(finished.String)
		r.FinishedAt = &t
	}
	r.Status = model.RunStatus(status)
	return &r, nil
}

// RecordPage stores a persisted page, its outbound edges and its status
// in one transaction.
func (idx *Index) RecordPage(ctx context.Context, runID string, p *model.Page) (err error) {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	pageQuery := `
	INSERT INTO pages (url, hash, run_id, title, language, depth, word_count, status_code, discovered_from, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		run_id = excluded.run_id,
		title = excluded.title,
		language = excluded.language,
		depth = excluded.depth,
		word_count = excluded.word_count,
		status_code = excluded.status_code,
		discovered_from = excluded.discovered_from,
		fetched_at = excluded.fetched_at
	`
	if _, err = tx.ExecContext(ctx, pageQuery,
		p.URL,
		canon.Hash(p.URL),
		runID,
		p.Title,
		p.Language,
		p.Depth,
		p.WordCount,
		p.StatusCode,
		p.DiscoveredFrom,
		formatTime(p.FetchedAt),
	); err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}

	// A shorter link list on a refetch must not leave stale edges behind.
	if _, err = tx.ExecContext(ctx, "DELETE FROM edges WHERE from_url = ?", p.URL); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}
	for i, l := range p.OutboundLinks {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO edges (from_url, seq, to_url, type) VALUES (?, ?, ?, ?)",
			p.URL, i, l.URL, string(l.Type),
		); err != nil {
			return fmt.Errorf("failed to insert edge: %w", err)
		}
	}

	if err = upsertStatus(ctx, tx, p.URL, model.Visit{Status: model.StatusPersisted}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page: %w", err)
	}
	return nil
}

// RecordStatus stores the terminal status of a URL.
func (idx *Index) RecordStatus(ctx context.Context, url string, v model.Visit) error {
	return upsertStatus(ctx, idx.db, url, v)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertStatus(ctx context.Context, ex execer, url string, v model.Visit) error {
	query := `
	INSERT INTO url_status (url, status, reason)
	VALUES (?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		status = excluded.status,
		reason = excluded.reason,
		updated_at = CURRENT_TIMESTAMP
	`
	if _, err := ex.ExecContext(ctx, query, url, string(v.Status), v.Reason); err != nil {
		return fmt.Errorf("failed to upsert status: %w", err)
	}
	return nil
}

// RecordDocuments upserts catalog entries and their linking pages.
func (idx *Index) RecordDocuments(ctx context.Context, entries []model.DocumentEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	docQuery := `
	INSERT INTO documents (url, title, size_bytes, content_type, last_modified, parent_page_url, discovered_at, metadata_unavailable)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		title = excluded.title,
		size_bytes = excluded.size_bytes,
		content_type = excluded.content_type,
		last_modified = excluded.last_modified,
		metadata_unavailable = excluded.metadata_unavailable
	`
	for i := range entries {
		d := &entries[i]

		var size sql.NullInt64
		if d.SizeBytes != nil {
			size = sql.NullInt64{Int64: *d.SizeBytes, Valid: true}
		}
		if _, err = tx.ExecContext(ctx, docQuery,
			d.URL,
			d.Title,
			size,
			d.ContentType,
			d.LastModified,
			d.ParentPageURL,
			formatTime(d.DiscoveredAt),
			d.MetadataUnavailable,
		); err != nil {
			return fmt.Errorf("failed to upsert document: %w", err)
		}

		for _, parent := range d.Parents {
			if _, err = tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO document_parents (document_url, page_url) VALUES (?, ?)",
				d.URL, parent,
			); err != nil {
				return fmt.Errorf("failed to insert document parent: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit documents: %w", err)
	}
	return nil
}

// PageRecord is a stored page row.
type PageRecord struct {
	URL            string
	Hash           string
	RunID          string
	Title          string
	Language       string
	Depth          int
	WordCount      int
	StatusCode     int
	DiscoveredFrom string
	FetchedAt      time.Time
}

// GetPage retrieves a page by canonical URL. It returns nil when the page is unknown.
func (idx *Index) GetPage(ctx context.Context, url string) (*PageRecord, error) {
	query := `
	SELECT url, hash, run_id, title, language, depth, word_count, status_code, discovered_from, fetched_at
	FROM pages
	WHERE url = ?
	`

	var r PageRecord
	var fetched string
	err := idx.db.QueryRowContext(ctx, query, url).Scan(
		&r.URL, &r.Hash, &r.RunID, &r.Title, &r.Language,
		&r.Depth, &r.WordCount, &r.StatusCode, &r.DiscoveredFrom, &fetched,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	r.FetchedAt = parseTimestamp(fetched)
	return &r, nil
}

// EdgesFrom returns the outbound edges of a page in link order.
func (idx *Index) EdgesFrom(ctx context.Context, from string) ([]model.Edge, error) {
	rows, err := idx.db.QueryContext(ctx,
		"SELECT from_url, to_url, type FROM edges WHERE from_url = ? ORDER BY seq", from)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []model.Edge
	for rows.Next() {
		var e model.Edge
		var typ string
		if err := rows.Scan(&e.From, &e.To, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.Type = model.LinkType(typ)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// DocumentParents returns every page known to link to a document.
func (idx *Index) DocumentParents(ctx context.Context, documentURL string) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx,
		"SELECT page_url FROM document_parents WHERE document_url = ? ORDER BY page_url", documentURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query document parents: %w", err)
	}
	defer rows.Close()

	var parents []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan document parent: %w", err)
		}
		parents = append(parents, p)
	}
	return parents, rows.Err()
}

// GetDocument retrieves a catalog entry without its parent list.
// It returns nil when the document is unknown.
func (idx *Index) GetDocument(ctx context.Context, url string) (*model.DocumentEntry, error) {
	query := `
	SELECT url, title, size_bytes, content_type, last_modified, parent_page_url, discovered_at, metadata_unavailable
	FROM documents
	WHERE url = ?
	`

	var d model.DocumentEntry
	var size sql.NullInt64
	var discovered string
	err := idx.db.QueryRowContext(ctx, query, url).Scan(
		&d.URL, &d.Title, &size, &d.ContentType, &d.LastModified,
		&d.ParentPageURL, &discovered, &d.MetadataUnavailable,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if size.Valid {
		d.SizeBytes = &size.Int64
	}
	d.DiscoveredAt = parseTimestamp(discovered)
	return &d, nil
}

// StatusCounts returns the number of URLs per terminal status.
func (idx *Index) StatusCounts(ctx context.Context) (map[model.URLStatus]int, error) {
	rows, err := idx.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM url_status GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.URLStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[model.URLStatus(status)] = n
	}
	return counts, rows.Err()
}

// CountPages returns the number of stored pages.
func (idx *Index) CountPages(ctx context.Context) (int, error) {
	var n int
	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pages").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}

// formatTime stores timestamps as RFC 3339 text in UTC.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp tries each format in turn and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
