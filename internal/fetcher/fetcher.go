package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Defaults used when no option overrides them.
const (
	DefaultTimeout      = 15 * time.Second
	DefaultMaxRetries   = 3
	DefaultBackoffBase  = 1 * time.Second
	DefaultMaxRedirects = 5
	DefaultMaxBodySize  = 10 * 1024 * 1024

	// MaxRetryAfter caps how long a Retry-After header can delay a retry.
	MaxRetryAfter = 30 * time.Second
)

// Fetcher performs HTTP GET and HEAD requests with retries.
// It is safe for concurrent use.
type Fetcher struct {
	// client performs the requests. Its CheckRedirect enforces maxRedirects.
	client *http.Client

	// userAgent is sent as the User-Agent header.
	userAgent string

	// headers are extra request headers, e.g. a site cookie.
	headers map[string]string

	// timeout bounds each individual request, redirects included.
	timeout time.Duration

	// maxRetries is the number of retries after the first transient failure.
	maxRetries int

	// backoffBase is the wait before the first retry; it doubles per retry.
	backoffBase time.Duration

	// maxRedirects is the number of redirects one request may follow.
	maxRedirects int

	// maxBodySize truncates page bodies.
	maxBodySize int64

	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the base client. Its transport is reused; timeout and
// redirect policy are set by the Fetcher.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBackoffBase sets the first retry delay.
func WithBackoffBase(d time.Duration) Option {
	return func(f *Fetcher) {
		f.backoffBase = d
	}
}

// WithMaxRedirects sets the redirect bound.
func WithMaxRedirects(n int) Option {
	return func(f *Fetcher) {
		f.maxRedirects = n
	}
}

// WithMaxBodySize sets the page body limit. Longer bodies are truncated.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:      DefaultTimeout,
		maxRetries:   DefaultMaxRetries,
		backoffBase:  DefaultBackoffBase,
		maxRedirects: DefaultMaxRedirects,
		maxBodySize:  DefaultMaxBodySize,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	var client http.Client
	if f.client != nil {
		client = *f.client
	} else {
		client.Transport = newTransport()
	}
	client.Timeout = f.timeout
	client.CheckRedirect = f.checkRedirect
	f.client = &client

	return f
}

// newTransport returns the default transport for crawling.
func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Client returns the configured HTTP client, e.g. for robots.txt fetches.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

func (f *Fetcher) checkRedirect(_ *http.Request, via []*http.Request) error {
	if len(via) > f.maxRedirects {
		return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, f.maxRedirects)
	}
	return nil
}

// PageResponse is the result of a successful GET.
type PageResponse struct {
	// Body is the UTF-8 page body. It is nil when the response is not HTML.
	Body []byte

	// FinalURL is the URL after following redirects.
	FinalURL string

	// StatusCode is the final response status.
	StatusCode int

	// ContentType is the Content-Type header.
	ContentType string

	// ContentLength is the Content-Length header, or -1 when unknown.
	ContentLength int64

	// LastModified is the Last-Modified header, verbatim.
	LastModified string

	// ContentLanguage is the Content-Language header.
	ContentLanguage string

	// Attempts is the number of requests made, retries included.
	Attempts int
}

// IsHTML reports whether the response was HTML and its body was read.
func (r *PageResponse) IsHTML() bool {
	return r.Body != nil
}

// HeadResponse is the result of a successful HEAD.
type HeadResponse struct {
	// SizeBytes is the Content-Length, or nil when the server did not send one.
	SizeBytes *int64

	// ContentType is the Content-Type header.
	ContentType string

	// LastModified is the Last-Modified header, verbatim.
	LastModified string

	// StatusCode is the final response status.
	StatusCode int

	// FinalURL is the URL after following redirects.
	FinalURL string
}

// FetchPage GETs rawURL. HTML bodies are decoded and returned; other content
// types are returned with a nil Body and the body is never read.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (*PageResponse, error) {
	var page *PageResponse

	attempts, err := f.retry(ctx, rawURL, func() error {
		resp, err := f.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return err
		}
		// Closed without draining: a non-HTML body must not be downloaded.
		defer resp.Body.Close()

		page = &PageResponse{
			FinalURL:        resp.Request.URL.String(),
			StatusCode:      resp.StatusCode,
			ContentType:     resp.Header.Get("Content-Type"),
			ContentLength:   contentLength(resp.Header),
			LastModified:    resp.Header.Get("Last-Modified"),
			ContentLanguage: resp.Header.Get("Content-Language"),
		}
		if page.ContentType != "" && !IsHTMLContentType(page.ContentType) {
			return nil
		}

		body, err := f.readBody(resp)
		if err != nil {
			return err
		}
		if page.ContentType == "" && !IsHTMLContentType(http.DetectContentType(body)) {
			return nil
		}
		page.Body = toUTF8(body, page.ContentType)
		return nil
	})
	if err != nil {
		return nil, err
	}

	page.Attempts = attempts
	return page, nil
}

// FetchHead issues a HEAD request for rawURL. No body is ever transferred.
func (f *Fetcher) FetchHead(ctx context.Context, rawURL string) (*HeadResponse, error) {
	var head *HeadResponse

	_, err := f.retry(ctx, rawURL, func() error {
		resp, err := f.do(ctx, http.MethodHead, rawURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		head = &HeadResponse{
			ContentType:  resp.Header.Get("Content-Type"),
			LastModified: resp.Header.Get("Last-Modified"),
			StatusCode:   resp.StatusCode,
			FinalURL:     resp.Request.URL.String(),
		}
		if n := contentLength(resp.Header); n >= 0 {
			head.SizeBytes = &n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

// do sends one request and turns non-2xx responses into errors.
func (f *Fetcher) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: Permanent, URL: rawURL, Err: err}
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if method == http.MethodGet {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drainAndClose(resp)
		kind := Permanent
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			kind = Transient
		}
		return nil, &FetchError{
			Kind:       kind,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return resp, nil
}

// IsHTMLContentType reports whether a Content-Type denotes an HTML page.
func IsHTMLContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// contentLength parses the Content-Length header, returning -1 when absent or invalid.
func contentLength(h http.Header) int64 {
	v := strings.TrimSpace(h.Get("Content-Length"))
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// parseRetryAfter understands both delay-seconds and HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// drainAndClose discards a little of an error response body so the
// connection can be reused, then closes it.
func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
