package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/graph"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/output"
	"github.com/nao1215/sitecrawl/internal/report"
	"github.com/nao1215/sitecrawl/internal/state"
)

// restore loads the checkpoint, or starts a new run when there is none.
// It reports whether a previous run was resumed.
func (e *Engine) restore() (bool, error) {
	cp, err := e.store.Load()
	if errors.Is(err, state.ErrNoCheckpoint) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.runID = uuid.NewString()
		e.startedAt = e.now().UTC()
		e.state = state.New(e.cfg.MaxDepth)
		e.graph = graph.New()
		e.state.Enqueue(state.Entry{URL: e.seed})
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := cp.CheckSeed(e.seed); err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.runID = cp.RunID
	e.startedAt = cp.StartedAt
	e.state = state.Restore(e.cfg.MaxDepth, cp.Frontier, cp.Visited)
	e.graph = graph.New()
	e.graph.Restore(cp.Edges)
	e.catalog.Restore(cp.Documents)
	e.pagesWritten = e.state.Counts().PagesWritten
	updated := cp.UpdatedAt
	e.lastCheckpoint = &updated

	e.logger.Info("resuming crawl",
		"run_id", e.runID,
		"checkpoint", e.store.Path(),
		"updated_at", cp.UpdatedAt,
	)
	return true, nil
}

// reset removes everything a previous run left in the output directory.
func (e *Engine) reset() error {
	if err := e.store.Remove(); err != nil {
		return &output.PersistenceError{Op: "remove checkpoint", Path: e.store.Path(), Err: err}
	}
	if err := e.out.Reset(); err != nil {
		return err
	}
	if err := database.Remove(e.cfg.OutputDir); err != nil {
		return &output.PersistenceError{Op: "remove index", Path: e.cfg.OutputDir, Err: err}
	}
	e.logger.Info("starting fresh crawl", "output_dir", e.cfg.OutputDir)
	return e.out.EnsureDirs()
}

// checkpoint saves the crawl state and rewrites the graph, the catalog and
// the run metadata from it. The checkpoint is written first: outputs never
// describe more than a resumed run would know about.
func (e *Engine) checkpoint(status model.RunStatus) (*model.RunMetadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp := e.state.Snapshot(e.runID, e.seed, e.startedAt)
	cp.Edges = e.graph.Edges()
	cp.Documents = e.catalog.Entries()
	cp.Counts.DocumentsCatalogued = len(cp.Documents)
	cp.Counts.Edges = len(cp.Edges)

	if err := e.store.Save(cp); err != nil {
		return nil, &output.PersistenceError{Op: "write checkpoint", Path: e.store.Path(), Err: err}
	}
	saved := cp.UpdatedAt
	e.lastCheckpoint = &saved
	e.sinceCheckpoint = 0

	meta := e.metadataLocked(status, cp)
	if err := e.out.WriteGraph(cp.Edges); err != nil {
		return nil, err
	}
	if err := e.out.WriteCatalog(cp.Documents); err != nil {
		return nil, err
	}
	if err := e.out.WriteMetadata(meta); err != nil {
		return nil, err
	}

	if e.onCheckpoint != nil {
		e.onCheckpoint(cp)
	}
	e.logger.Debug("checkpoint saved",
		"status", status,
		"visited", cp.Counts.Visited,
		"frontier", cp.Counts.FrontierRemaining,
		"in_flight", e.state.InFlightLen(),
	)
	return meta, nil
}

// maybeCheckpoint counts one settled URL and checkpoints every
// CheckpointInterval URLs.
func (e *Engine) maybeCheckpoint() error {
	e.mu.Lock()
	e.sinceCheckpoint++
	due := e.sinceCheckpoint >= e.cfg.CheckpointInterval
	e.mu.Unlock()

	if !due {
		return nil
	}
	_, err := e.checkpoint(model.RunRunning)
	return err
}

// finish writes the final checkpoint and the crawl report.
func (e *Engine) finish(status model.RunStatus) (*model.RunMetadata, error) {
	meta, err := e.checkpoint(status)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	stats := e.graph.Stats()
	e.mu.Unlock()
	if err := e.out.WriteReport(report.NewSummary(*meta, e.catalog.Entries(), stats)); err != nil {
		return nil, err
	}
	e.syncIndex(meta)

	e.logger.Info("crawl finished",
		"status", meta.Status,
		"pages", meta.Counts.PagesWritten,
		"documents", meta.Counts.DocumentsCatalogued,
		"filtered", meta.Counts.FilteredOut,
		"failures", meta.Counts.Failures,
		"frontier", meta.Counts.FrontierRemaining,
	)
	return meta, nil
}

// metadataLocked builds the run metadata for cp. Callers hold mu.
func (e *Engine) metadataLocked(status model.RunStatus, cp *state.Checkpoint) *model.RunMetadata {
	meta := &model.RunMetadata{
		RunID:            e.runID,
		BaseURL:          e.seed,
		StartedAt:        e.startedAt,
		LastCheckpointAt: e.lastCheckpoint,
		Status:           status,
		Config:           e.runConfig(),
		Counts:           cp.Counts,
		Failures:         e.state.Failures(),
	}
	if status != model.RunRunning {
		finished := e.now().UTC()
		meta.FinishedAt = &finished
	}
	return meta
}

func (e *Engine) runConfig() model.RunConfig {
	c := e.cfg
	return model.RunConfig{
		SeedURL:                c.SeedURL,
		MaxDepth:               c.MaxDepth,
		DelaySeconds:           c.Delay.Seconds(),
		SkipNonPrimaryLanguage: c.SkipNonPrimaryLanguage,
		TargetLanguage:         c.TargetLanguage,
		UserAgent:              c.UserAgent,
		OutputDir:              c.OutputDir,
		CheckpointInterval:     c.CheckpointInterval,
		TimeoutSeconds:         c.Timeout.Seconds(),
		MaxRetries:             c.MaxRetries,
		MaxRedirects:           c.MaxRedirects,
		MaxPages:               c.MaxPages,
		Workers:                c.Workers,
		RespectRobots:          c.RespectRobots,
		DocumentExtensions:     c.DocumentExtensions,
	}
}

// indexStatus mirrors the terminal statuses of a job into the index.
// Persisted pages are indexed by the persist step.
func (e *Engine) indexStatus(ctx context.Context, j *job) {
	if e.index == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	urls := []string{j.entry.URL}
	if j.pageURL != j.entry.URL {
		urls = append(urls, j.pageURL)
	}

	visits := make(map[string]model.Visit, len(urls))
	e.mu.Lock()
	for _, u := range urls {
		if v, ok := e.state.Visit(u); ok && v.Status != model.StatusPersisted {
			visits[u] = v
		}
	}
	e.mu.Unlock()

	for u, v := range visits {
		if err := e.index.RecordStatus(ctx, u, v); err != nil {
			e.logger.Warn("failed to index status", "url", u, "error", err)
		}
	}
}

// syncIndex records the final catalog and run row.
func (e *Engine) syncIndex(meta *model.RunMetadata) {
	if e.index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.index.RecordDocuments(ctx, e.catalog.Entries()); err != nil {
		e.logger.Warn("failed to index documents", "error", err)
	}
	if err := e.index.UpsertRun(ctx, meta); err != nil {
		e.logger.Warn("failed to index run", "error", err)
	}
}
