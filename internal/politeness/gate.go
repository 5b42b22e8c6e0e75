package politeness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

// Decision is the gate's verdict for one URL.
type Decision int

const (
	// Allowed means the caller may fetch now.
	Allowed Decision = iota

	// Disallowed means robots.txt forbids the URL. The caller must not fetch it.
	Disallowed
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	if d == Disallowed {
		return "disallowed"
	}
	return "allowed"
}

// ErrDisallowed is the error callers record for URLs robots.txt forbids.
var ErrDisallowed = errors.New("disallowed by robots.txt")

const (
	// maxRobotsSize bounds how much of a robots.txt is read.
	maxRobotsSize = 512 * 1024

	// MaxCrawlDelay caps a Crawl-delay directive so one host cannot stall a run.
	MaxCrawlDelay = 30 * time.Second
)

// Gate enforces robots.txt rules and per-host delays.
// It is safe for concurrent use.
type Gate struct {
	// client fetches robots.txt files.
	client *http.Client

	// userAgent selects the robots.txt group and is sent when fetching it.
	userAgent string

	// delay is the minimum time between two requests to one host.
	delay time.Duration

	// respectRobots disables robots.txt checks when false.
	respectRobots bool

	logger *slog.Logger

	mu    sync.Mutex
	hosts map[string]*hostState
}

// hostState is the cached politeness state of one scheme+host.
type hostState struct {
	// robotsMu serializes the single robots.txt fetch for the host.
	robotsMu sync.Mutex
	loaded   bool
	group    *robotstxt.Group

	limiter *rate.Limiter
}

// Option configures a Gate.
type Option func(*Gate)

// WithHTTPClient sets the client used to fetch robots.txt.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gate) {
		g.client = client
	}
}

// WithUserAgent sets the user agent matched against robots.txt groups.
func WithUserAgent(ua string) Option {
	return func(g *Gate) {
		g.userAgent = ua
	}
}

// WithDelay sets the minimum delay between requests to the same host.
func WithDelay(d time.Duration) Option {
	return func(g *Gate) {
		g.delay = d
	}
}

// WithRespectRobots toggles robots.txt checks.
func WithRespectRobots(respect bool) Option {
	return func(g *Gate) {
		g.respectRobots = respect
	}
}

// WithLogger sets the logger for robots.txt warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a Gate. By default robots.txt is respected and there is no delay.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		client:        &http.Client{Timeout: 15 * time.Second},
		respectRobots: true,
		logger:        slog.Default(),
		hosts:         make(map[string]*hostState),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AllowAndWait checks u against the host's robots.txt rules. If the URL is
// disallowed it returns Disallowed immediately. Otherwise it blocks until the
// host's minimum delay has passed since its last request and returns Allowed.
// The only error is the context's, when it ends while waiting.
func (g *Gate) AllowAndWait(ctx context.Context, u *url.URL) (Decision, error) {
	hs := g.host(u)

	if g.respectRobots {
		group, err := g.robots(ctx, hs, u)
		if err != nil {
			return Allowed, err
		}
		if group != nil && !group.Test(u.RequestURI()) {
			return Disallowed, nil
		}
	}

	r := hs.limiter.Reserve()
	if wait := r.Delay(); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			r.Cancel()
			return Allowed, ctx.Err()
		}
	}
	return Allowed, nil
}

// Allowed reports whether robots.txt permits u, without waiting.
func (g *Gate) Allowed(ctx context.Context, u *url.URL) (bool, error) {
	if !g.respectRobots {
		return true, nil
	}
	group, err := g.robots(ctx, g.host(u), u)
	if err != nil {
		return false, err
	}
	return group == nil || group.Test(u.RequestURI()), nil
}

// host returns the state for u's scheme and host, creating it on first use.
func (g *Gate) host(u *url.URL) *hostState {
	key := strings.ToLower(u.Scheme + "://" + u.Host)

	g.mu.Lock()
	defer g.mu.Unlock()

	hs, ok := g.hosts[key]
	if !ok {
		hs = &hostState{limiter: newLimiter(g.delay)}
		g.hosts[key] = hs
	}
	return hs
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// robots returns the robots.txt group that applies to our user agent, or nil
// when everything is allowed. The file is fetched at most once per host.
func (g *Gate) robots(ctx context.Context, hs *hostState, u *url.URL) (*robotstxt.Group, error) {
	hs.robotsMu.Lock()
	defer hs.robotsMu.Unlock()

	if hs.loaded {
		return hs.group, nil
	}

	data, err := g.fetchRobots(ctx, u)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Not cached: a later attempt after resume should try again.
			return nil, ctxErr
		}
		g.logger.Warn("robots.txt unavailable, allowing all paths",
			"host", u.Host,
			"error", err,
		)
		hs.loaded = true
		return nil, nil
	}

	hs.loaded = true
	hs.group = data.FindGroup(g.userAgent)

	if hs.group != nil && hs.group.CrawlDelay > g.delay {
		crawlDelay := min(hs.group.CrawlDelay, MaxCrawlDelay)
		hs.limiter.SetLimit(rate.Every(crawlDelay))
		g.logger.Debug("honoring robots.txt crawl-delay",
			"host", u.Host,
			"delay", crawlDelay,
		)
	}

	return hs.group, nil
}

func (g *Gate) fetchRobots(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build robots request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	// robotstxt treats 5xx as "disallow all"; an erroring robots endpoint
	// is a fetch failure here and fails open.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("robots.txt returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read robots.txt: %w", err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	return data, nil
}
