package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecrawl/internal/canon"
	"github.com/nao1215/sitecrawl/internal/catalog"
	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/extract"
	"github.com/nao1215/sitecrawl/internal/fetcher"
	"github.com/nao1215/sitecrawl/internal/graph"
	"github.com/nao1215/sitecrawl/internal/langfilter"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/output"
	"github.com/nao1215/sitecrawl/internal/pipeline"
	"github.com/nao1215/sitecrawl/internal/politeness"
	"github.com/nao1215/sitecrawl/internal/state"
)

// defaultPollInterval is how long an idle worker sleeps while every queued
// URL is on a busy host, or while other workers may still add links.
const defaultPollInterval = 50 * time.Millisecond

// Engine crawls the site of one seed URL.
// An Engine runs once; create a new one for every Run.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	// client is the base HTTP client; nil means the fetcher's own transport.
	client *http.Client

	now          func() time.Time
	pollInterval time.Duration

	// seed is the canonical seed URL and scope its site.
	seed  string
	scope canon.Scope

	gate      *politeness.Gate
	fetcher   *fetcher.Fetcher
	extractor *extract.Extractor
	filter    *langfilter.Filter
	catalog   *catalog.Cataloger
	out       *output.Writer
	store     *state.Store
	index     *database.Index
	patterns  patterns
	steps     *pipeline.Pipeline[*job]

	// onCheckpoint is called after every checkpoint is saved.
	onCheckpoint func(*state.Checkpoint)

	// mu guards everything below.
	mu              sync.Mutex
	state           *state.CrawlState
	graph           *graph.Builder
	busy            map[string]int
	runID           string
	startedAt       time.Time
	lastCheckpoint  *time.Time
	pagesWritten    int
	sinceCheckpoint int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHTTPClient sets the base HTTP client for pages, HEAD requests and
// robots.txt.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.client = client
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine for cfg. cfg is validated and must not be modified
// afterwards.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seedURL, err := canon.Parse(cfg.SeedURL, "")
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}

	e := &Engine{
		cfg:          cfg,
		logger:       slog.Default(),
		now:          time.Now,
		pollInterval: defaultPollInterval,
		seed:         seedURL.String(),
		scope:        canon.NewScope(seedURL),
		busy:         make(map[string]int),
		patterns:     patterns{ignore: cfg.IgnorePatterns, follow: cfg.FollowPatterns},
	}
	for _, opt := range opts {
		opt(e)
	}

	fetchOpts := []fetcher.Option{
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithHeaders(cfg.RequestHeaders()),
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithMaxRetries(cfg.MaxRetries),
		fetcher.WithBackoffBase(cfg.RetryBaseDelay),
		fetcher.WithMaxRedirects(cfg.MaxRedirects),
		fetcher.WithMaxBodySize(cfg.EffectiveMaxBodySize()),
		fetcher.WithLogger(e.logger),
	}
	if e.client != nil {
		fetchOpts = append(fetchOpts, fetcher.WithHTTPClient(e.client))
	}
	e.fetcher = fetcher.New(fetchOpts...)

	e.gate = politeness.NewGate(
		politeness.WithHTTPClient(e.fetcher.Client()),
		politeness.WithUserAgent(cfg.UserAgent),
		politeness.WithDelay(cfg.Delay),
		politeness.WithRespectRobots(cfg.RespectRobots),
		politeness.WithLogger(e.logger),
	)

	e.extractor = extract.New(e.scope,
		extract.WithDocumentExtensions(cfg.DocumentExtensions),
		extract.WithDropSelectors(cfg.DropSelectors),
	)

	e.filter, err = langfilter.New(cfg.TargetLanguage, cfg.SkipNonPrimaryLanguage)
	if err != nil {
		return nil, err
	}

	e.catalog = catalog.New(e.fetcher, catalog.WithGate(e.gate), catalog.WithLogger(e.logger))
	e.out = output.New(cfg.OutputDir, output.WithClock(e.now))
	e.store = state.NewStore(cfg.OutputDir)
	e.steps = e.newPipeline()

	return e, nil
}

// Seed returns the canonical seed URL.
func (e *Engine) Seed() string {
	return e.seed
}

// Run crawls until the frontier is empty, the page limit is reached or ctx
// is cancelled. Cancellation is not an error: the run is checkpointed and
// its metadata reports it as interrupted.
//
// A returned error means the run was aborted: the output directory or the
// checkpoint could not be written, or an existing checkpoint is unreadable
// or belongs to another seed. The last good checkpoint stays in place.
func (e *Engine) Run(ctx context.Context) (*model.RunMetadata, error) {
	if err := e.out.EnsureDirs(); err != nil {
		return nil, err
	}
	if e.cfg.Fresh {
		if err := e.reset(); err != nil {
			return nil, err
		}
	}

	resumed, err := e.restore()
	if err != nil {
		return nil, err
	}

	if e.cfg.IndexDB {
		idx, err := database.Open(e.cfg.OutputDir, database.DefaultOptions())
		if err != nil {
			return nil, &output.PersistenceError{Op: "open index", Path: filepath.Join(e.cfg.OutputDir, database.FileName), Err: err}
		}
		e.index = idx
		defer func() {
			if err := idx.Close(); err != nil {
				e.logger.Warn("failed to close index", "error", err)
			}
		}()
	}

	e.logger.Info("starting crawl",
		"seed", e.seed,
		"run_id", e.runID,
		"resumed", resumed,
		"frontier", e.state.FrontierLen(),
		"visited", e.state.VisitedLen(),
		"edges", e.graph.Len(),
		"workers", e.cfg.Workers,
	)
	if e.cfg.SkipNonPrimaryLanguage {
		e.logger.Info("filtering pages by language", "language", e.filter.Target())
	}
	e.logger.Debug("page pipeline", "steps", e.steps.StepNames())

	if _, err := e.checkpoint(model.RunRunning); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for range e.cfg.Workers {
		g.Go(func() error {
			return e.work(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("crawl aborted", "error", err)
		return nil, err
	}

	return e.finish(e.finalStatus())
}

// work processes frontier entries until there are none left or the crawl stops.
func (e *Engine) work(ctx context.Context) error {
	for {
		entry, ok := e.next(ctx)
		if !ok {
			return nil
		}
		if err := e.process(ctx, entry); err != nil {
			return err
		}
	}
}

// next dequeues the first entry whose host has no fetch in progress.
// It returns false once the crawl is stopping or nothing is left to do.
func (e *Engine) next(ctx context.Context) (state.Entry, bool) {
	for {
		e.mu.Lock()
		if ctx.Err() != nil || e.limitReached() {
			e.mu.Unlock()
			return state.Entry{}, false
		}
		entry, ok := e.state.Next(e.hostBusy)
		if ok {
			e.busy[canon.Host(entry.URL)]++
			e.mu.Unlock()
			return entry, true
		}
		done := e.state.Done()
		e.mu.Unlock()

		if done {
			return state.Entry{}, false
		}

		timer := time.NewTimer(e.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return state.Entry{}, false
		case <-timer.C:
		}
	}
}

// hostBusy reports whether entry's host has a fetch in progress. Callers hold mu.
func (e *Engine) hostBusy(entry state.Entry) bool {
	return e.busy[canon.Host(entry.URL)] > 0
}

// limitReached reports whether the page limit is reached. Callers hold mu.
func (e *Engine) limitReached() bool {
	return e.cfg.MaxPages > 0 && e.pagesWritten >= e.cfg.MaxPages
}

// process runs one entry through the page pipeline.
func (e *Engine) process(ctx context.Context, entry state.Entry) error {
	host := canon.Host(entry.URL)
	defer func() {
		e.mu.Lock()
		e.busy[host]--
		if e.busy[host] <= 0 {
			delete(e.busy, host)
		}
		e.mu.Unlock()
	}()

	j := &job{entry: entry, pageURL: entry.URL}
	if err := e.steps.Execute(ctx, j, "url", entry.URL); err != nil {
		return err
	}
	if !j.settled {
		return nil
	}

	e.indexStatus(ctx, j)
	return e.maybeCheckpoint()
}

// finalStatus decides how the run ended.
func (e *Engine) finalStatus() model.RunStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.state.Done():
		return model.RunCompleted
	case e.limitReached():
		return model.RunPageLimit
	default:
		return model.RunInterrupted
	}
}
