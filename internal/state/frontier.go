package state

import (
	"cmp"
	"slices"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Entry is one frontier URL.
type Entry struct {
	// URL is the canonical URL.
	URL string `json:"url"`

	// Depth is the link distance from the seed.
	Depth int `json:"depth"`

	// Parent is the canonical URL of the page that linked here. Empty for the seed.
	Parent string `json:"parent,omitempty"`
}

// CrawlState is the frontier, the in-flight set and the visited set.
type CrawlState struct {
	maxDepth int

	// queue holds frontier entries in first-discovered order.
	queue  []Entry
	queued map[string]struct{}

	inFlight map[string]Entry
	visited  map[string]model.Visit
}

// New returns an empty CrawlState that rejects entries deeper than maxDepth.
func New(maxDepth int) *CrawlState {
	return &CrawlState{
		maxDepth: maxDepth,
		queued:   make(map[string]struct{}),
		inFlight: make(map[string]Entry),
		visited:  make(map[string]model.Visit),
	}
}

// Enqueue appends e to the frontier. It returns false, leaving the state
// unchanged, when e is too deep or its URL is already visited, queued or
// being fetched.
func (s *CrawlState) Enqueue(e Entry) bool {
	if e.URL == "" || e.Depth < 0 || e.Depth > s.maxDepth || s.Known(e.URL) {
		return false
	}
	s.queue = append(s.queue, e)
	s.queued[e.URL] = struct{}{}
	return true
}

// Known reports whether url is visited, queued or in flight.
func (s *CrawlState) Known(url string) bool {
	if _, ok := s.visited[url]; ok {
		return true
	}
	if _, ok := s.queued[url]; ok {
		return true
	}
	_, ok := s.inFlight[url]
	return ok
}

// Next dequeues the first entry for which skip returns false and marks it
// in flight. skip may be nil. ok is false when no entry qualifies.
func (s *CrawlState) Next(skip func(Entry) bool) (Entry, bool) {
	for i, e := range s.queue {
		if skip != nil && skip(e) {
			continue
		}
		s.queue = slices.Delete(s.queue, i, i+1)
		delete(s.queued, e.URL)
		s.inFlight[e.URL] = e
		return e, true
	}
	return Entry{}, false
}

// Claim marks e in flight outside of Next, e.g. for the target of a
// redirect. A queued entry for the same URL is taken out of the queue.
// It returns false when the URL is already visited or in flight.
func (s *CrawlState) Claim(e Entry) bool {
	if _, ok := s.visited[e.URL]; ok {
		return false
	}
	if _, ok := s.inFlight[e.URL]; ok {
		return false
	}
	if _, ok := s.queued[e.URL]; ok {
		delete(s.queued, e.URL)
		s.queue = slices.DeleteFunc(s.queue, func(q Entry) bool { return q.URL == e.URL })
	}
	s.inFlight[e.URL] = e
	return true
}

// Requeue returns an in-flight entry to the front of the frontier, e.g.
// when shutdown interrupted it before its fetch started.
func (s *CrawlState) Requeue(url string) {
	e, ok := s.inFlight[url]
	if !ok {
		return
	}
	delete(s.inFlight, url)
	s.queue = slices.Insert(s.queue, 0, e)
	s.queued[url] = struct{}{}
}

// MarkVisited records a terminal status for url. An in-flight or queued
// entry for url is removed. The first terminal status wins.
func (s *CrawlState) MarkVisited(url string, status model.URLStatus, reason string) {
	delete(s.inFlight, url)
	if _, ok := s.queued[url]; ok {
		delete(s.queued, url)
		s.queue = slices.DeleteFunc(s.queue, func(e Entry) bool { return e.URL == url })
	}
	if _, ok := s.visited[url]; ok {
		return
	}
	s.visited[url] = model.Visit{Status: status, Reason: reason}
}

// IsVisited reports whether url has a terminal status.
func (s *CrawlState) IsVisited(url string) bool {
	_, ok := s.visited[url]
	return ok
}

// IsInFlight reports whether url is being fetched.
func (s *CrawlState) IsInFlight(url string) bool {
	_, ok := s.inFlight[url]
	return ok
}

// Visit returns the terminal status of url.
func (s *CrawlState) Visit(url string) (model.Visit, bool) {
	v, ok := s.visited[url]
	return v, ok
}

// FrontierLen returns the number of queued entries.
func (s *CrawlState) FrontierLen() int {
	return len(s.queue)
}

// InFlightLen returns the number of entries being fetched.
func (s *CrawlState) InFlightLen() int {
	return len(s.inFlight)
}

// VisitedLen returns the size of the visited set.
func (s *CrawlState) VisitedLen() int {
	return len(s.visited)
}

// Done reports whether nothing is queued or in flight.
func (s *CrawlState) Done() bool {
	return len(s.queue) == 0 && len(s.inFlight) == 0
}

// Frontier returns the entries a resumed run must fetch: in-flight entries
// first, ordered by depth, then the queue in order.
func (s *CrawlState) Frontier() []Entry {
	inFlight := make([]Entry, 0, len(s.inFlight))
	for _, e := range s.inFlight {
		inFlight = append(inFlight, e)
	}
	slices.SortFunc(inFlight, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(a.Depth, b.Depth), cmp.Compare(a.URL, b.URL))
	})
	return append(inFlight, s.queue...)
}

// Visited returns a copy of the visited set.
func (s *CrawlState) Visited() map[string]model.Visit {
	out := make(map[string]model.Visit, len(s.visited))
	for k, v := range s.visited {
		out[k] = v
	}
	return out
}

// Counts tallies the visited set by status. Documents are counted by the
// catalog, not here.
func (s *CrawlState) Counts() model.RunCounts {
	c := model.RunCounts{
		Visited:           len(s.visited),
		FrontierRemaining: len(s.queue) + len(s.inFlight),
	}
	for _, v := range s.visited {
		switch v.Status {
		case model.StatusPersisted:
			c.PagesWritten++
		case model.StatusFilteredOut:
			c.FilteredOut++
		case model.StatusFailed:
			c.Failures++
		case model.StatusRedirected:
			c.Redirects++
		}
	}
	return c
}

// Failures lists failed URLs with their reasons, sorted by URL.
func (s *CrawlState) Failures() []model.Failure {
	var out []model.Failure
	for url, v := range s.visited {
		if v.Status == model.StatusFailed {
			out = append(out, model.Failure{URL: url, Reason: v.Reason})
		}
	}
	slices.SortFunc(out, func(a, b model.Failure) int {
		return cmp.Compare(a.URL, b.URL)
	})
	return out
}

// Restore rebuilds a CrawlState from a checkpoint. Frontier entries that
// are already visited, duplicated or too deep are dropped.
func Restore(maxDepth int, frontier []Entry, visited map[string]model.Visit) *CrawlState {
	s := New(maxDepth)
	for url, v := range visited {
		s.visited[url] = v
	}
	for _, e := range frontier {
		s.Enqueue(e)
	}
	return s
}
