package crawler

import (
	"context"
	"errors"
	"net/url"

	"github.com/nao1215/sitecrawl/internal/canon"
	"github.com/nao1215/sitecrawl/internal/fetcher"
	"github.com/nao1215/sitecrawl/internal/langfilter"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/nao1215/sitecrawl/internal/pipeline"
	"github.com/nao1215/sitecrawl/internal/politeness"
	"github.com/nao1215/sitecrawl/internal/state"
)

// Failure reasons recorded in the visited set.
const (
	reasonMalformed          = "malformed URL"
	reasonOffsite            = "offsite redirect"
	reasonRedirectDisallowed = "redirect target disallowed by robots.txt"
)

// job is one frontier entry on its way through the page pipeline.
type job struct {
	entry state.Entry

	// pageURL is the page identity: the entry URL, or the redirect target.
	pageURL string

	resp *fetcher.PageResponse
	page *model.Page
	lang langfilter.Decision

	// settled is set once a URL of the job got a terminal status.
	settled bool
}

// newPipeline assembles the page pipeline.
func (e *Engine) newPipeline() *pipeline.Pipeline[*job] {
	p := pipeline.New(pipeline.WithLogger[*job](e.logger))
	p.AddSteps(
		pipeline.NewStep("politeness", e.admit),
		pipeline.NewStep("fetch", e.fetch),
		pipeline.NewStep("redirect", e.followRedirect),
		pipeline.NewStep("document", e.catalogResponse),
		pipeline.NewStep("extract", e.extract),
		pipeline.NewStep("language", e.decideLanguage),
		pipeline.NewStep("documents", e.catalogLinks),
		pipeline.NewStep("persist", e.persist),
	)
	return p
}

// admit waits at the politeness gate. A URL interrupted while waiting goes
// back to the front of the frontier.
func (e *Engine) admit(ctx context.Context, j *job) error {
	u, err := url.Parse(j.entry.URL)
	if err != nil {
		e.fail(j, j.entry.URL, reasonMalformed)
		return pipeline.ErrStop
	}

	decision, err := e.gate.AllowAndWait(ctx, u)
	if err != nil {
		e.mu.Lock()
		e.state.Requeue(j.entry.URL)
		e.mu.Unlock()
		return pipeline.ErrStop
	}
	if decision == politeness.Disallowed {
		e.fail(j, j.entry.URL, politeness.ErrDisallowed.Error())
		return pipeline.ErrStop
	}
	return nil
}

// fetch downloads the page. Once started, a fetch is not cancelled by
// shutdown; it is bounded by the request timeout and retry policy.
func (e *Engine) fetch(ctx context.Context, j *job) error {
	resp, err := e.fetcher.FetchPage(context.WithoutCancel(ctx), j.entry.URL)
	if err != nil {
		e.fail(j, j.entry.URL, failureReason(err))
		return pipeline.ErrStop
	}
	j.resp = resp
	return nil
}

// followRedirect makes the final URL the page identity. The requested URL
// is marked redirected so it is never fetched again. A target robots.txt
// forbids is not kept.
func (e *Engine) followRedirect(ctx context.Context, j *job) error {
	final, err := canon.Canonicalize(j.resp.FinalURL, "")
	if err != nil || final == j.entry.URL {
		return nil
	}

	if target, err := url.Parse(final); err == nil && e.scope.Contains(target) {
		if allowed, err := e.gate.Allowed(ctx, target); err == nil && !allowed {
			e.fail(j, j.entry.URL, reasonRedirectDisallowed)
			return pipeline.ErrStop
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.scope.ContainsString(final) {
		e.failLocked(j, j.entry.URL, reasonOffsite)
		return pipeline.ErrStop
	}
	e.markLocked(j, j.entry.URL, model.StatusRedirected, "redirected to "+final)

	// Another page already owns the target.
	if !e.state.Claim(state.Entry{URL: final, Depth: j.entry.Depth, Parent: j.entry.Parent}) {
		return pipeline.ErrStop
	}
	j.pageURL = final
	return nil
}

// catalogResponse catalogs a URL that answered with a non-HTML body.
func (e *Engine) catalogResponse(_ context.Context, j *job) error {
	if j.resp.IsHTML() {
		return nil
	}

	var size *int64
	if n := j.resp.ContentLength; n >= 0 {
		size = &n
	}
	e.catalog.RecordFetched(j.pageURL, "", j.entry.Parent, size, j.resp.ContentType, j.resp.LastModified)
	e.mark(j, j.pageURL, model.StatusDocument, "")
	return pipeline.ErrStop
}

// extract builds the Page from the body.
func (e *Engine) extract(_ context.Context, j *job) error {
	page, err := e.extractor.Extract(j.resp.Body, j.pageURL, j.resp.FinalURL)
	if err != nil {
		e.fail(j, j.pageURL, err.Error())
		return pipeline.ErrStop
	}

	page.Depth = j.entry.Depth
	page.DiscoveredFrom = j.entry.Parent
	page.StatusCode = j.resp.StatusCode
	page.FetchedAt = e.now().UTC()
	j.page = page
	return nil
}

// decideLanguage applies the language filter. A rejected page is not
// persisted, but its links are still followed.
func (e *Engine) decideLanguage(_ context.Context, j *job) error {
	j.lang = e.filter.Decide(langfilter.Input{
		RawHTML:         j.resp.Body,
		ContentLanguage: j.resp.ContentLanguage,
		Text:            j.page.ContentText,
		URL:             j.pageURL,
	})
	j.page.Language = j.lang.Language

	if j.lang.Accepted {
		return nil
	}
	e.logger.Debug("page filtered by language",
		"url", j.pageURL,
		"language", j.lang.Language,
		"source", j.lang.Source,
	)
	e.commit(j, model.StatusFilteredOut)
	return pipeline.ErrStop
}

// catalogLinks records every document the page links to. HEAD requests
// still waiting at the gate when shutdown starts are skipped and the
// document is catalogued without metadata.
func (e *Engine) catalogLinks(ctx context.Context, j *job) error {
	for _, l := range j.page.LinksOfType(model.LinkDocument) {
		e.catalog.RecordDocument(ctx, l.URL, l.Text, j.pageURL)
	}
	return nil
}

// persist writes the page file and then commits it. A write failure is
// fatal for the run.
func (e *Engine) persist(ctx context.Context, j *job) error {
	if err := e.out.WritePage(j.page); err != nil {
		return err
	}
	e.commit(j, model.StatusPersisted)

	if e.index != nil {
		if err := e.index.RecordPage(context.WithoutCancel(ctx), e.runID, j.page); err != nil {
			e.logger.Warn("failed to index page", "url", j.pageURL, "error", err)
		}
	}
	return nil
}

// commit records a fetched page's edges, its visited mark and the links it
// adds to the frontier in one critical section.
func (e *Engine) commit(j *job, status model.URLStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.graph.AddPage(j.pageURL, j.page.OutboundLinks)
	e.markLocked(j, j.pageURL, status, "")
	if status == model.StatusPersisted {
		e.pagesWritten++
	}

	depth := j.entry.Depth + 1
	for _, l := range j.page.LinksOfType(model.LinkInternal) {
		if !e.patterns.allow(l.URL) {
			continue
		}
		e.state.Enqueue(state.Entry{URL: l.URL, Depth: depth, Parent: j.pageURL})
	}
}

func (e *Engine) mark(j *job, u string, status model.URLStatus, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.markLocked(j, u, status, reason)
}

func (e *Engine) markLocked(j *job, u string, status model.URLStatus, reason string) {
	e.state.MarkVisited(u, status, reason)
	j.settled = true
}

func (e *Engine) fail(j *job, u, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failLocked(j, u, reason)
}

func (e *Engine) failLocked(j *job, u, reason string) {
	e.logger.Warn("url failed", "url", u, "error", reason)
	e.markLocked(j, u, model.StatusFailed, reason)
}

// failureReason turns a fetch error into the reason kept in the visited set.
func failureReason(err error) string {
	var fe *fetcher.FetchError
	if errors.As(err, &fe) && fe.Err != nil {
		return fe.Err.Error()
	}
	return err.Error()
}
