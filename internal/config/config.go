package config

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/text/language"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitecrawl"

	// DefaultMaxDepth bounds how many links away from the seed the crawl goes.
	// The seed itself is depth 0.
	DefaultMaxDepth = 3

	// DefaultDelay is the minimum time between two requests to the same host.
	DefaultDelay = 1 * time.Second

	// DefaultTargetLanguage is the primary language kept when language
	// filtering is enabled.
	DefaultTargetLanguage = "en"

	// DefaultUserAgent identifies the crawler in HTTP requests.
	// Operators can find our traffic in their access logs by this string.
	DefaultUserAgent = "sitecrawl/1.0 (+archival crawler)"

	// DefaultOutputDir is where pages, catalogs and the checkpoint are written.
	DefaultOutputDir = "output"

	// DefaultCheckpointInterval is the number of fetched URLs between two
	// checkpoints.
	DefaultCheckpointInterval = 10

	// DefaultTimeout bounds each individual HTTP request.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRetries is how many times a transient failure is retried.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the first backoff delay. Each retry doubles it.
	DefaultRetryBaseDelay = 1 * time.Second

	// DefaultMaxRedirects bounds how many redirects a single fetch follows.
	DefaultMaxRedirects = 5

	// DefaultMaxBodySize limits the response body size read per page.
	// 10MB covers large municipal pages while keeping memory bounded.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultWorkers is the number of crawl workers. One worker drives the
	// frontier sequentially; more workers only help on multi-host crawls.
	DefaultWorkers = 1
)

// DefaultDocumentExtensions are the file extensions classified as documents.
var DefaultDocumentExtensions = []string{"pdf", "doc", "docx", "xls", "xlsx"}

// Config holds all configuration options for a crawl run.
// It is populated from defaults, the config file, the environment and CLI
// flags, in that order, and then passed explicitly to the crawl engine.
type Config struct {
	// SeedURL is the single URL the crawl starts from, at depth 0.
	SeedURL string

	// MaxDepth is the maximum link distance from the seed that is fetched.
	MaxDepth int

	// Delay is the minimum time between two requests to the same host.
	Delay time.Duration

	// SkipNonPrimaryLanguage enables the language filter. Pages whose language
	// is not TargetLanguage are recorded as visited but not persisted.
	SkipNonPrimaryLanguage bool

	// TargetLanguage is the BCP 47 tag of the primary language.
	TargetLanguage string

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// OutputDir receives the page files, catalogs, metadata and checkpoint.
	OutputDir string

	// CheckpointInterval is the number of fetched URLs between checkpoints.
	CheckpointInterval int

	// Timeout bounds each individual HTTP request, including redirects.
	Timeout time.Duration

	// MaxRetries is the number of retries for transient fetch failures.
	MaxRetries int

	// RetryBaseDelay is the backoff before the first retry.
	RetryBaseDelay time.Duration

	// MaxRedirects is the maximum number of redirects followed per fetch.
	MaxRedirects int

	// MaxBodySize is the maximum response body size in bytes to read.
	// Larger bodies are truncated. Set to 0 to use the default.
	MaxBodySize int64

	// MaxPages stops the crawl once this many pages are written. 0 means no limit.
	MaxPages int

	// Workers is the number of concurrent crawl workers. Workers never fetch
	// from the same host at the same time.
	Workers int

	// RespectRobots enables robots.txt checks.
	RespectRobots bool

	// IndexDB enables the SQLite crawl index in the output directory.
	IndexDB bool

	// Fresh discards an existing checkpoint instead of resuming from it.
	Fresh bool

	// DocumentExtensions lists extensions (without dot) classified as documents.
	DocumentExtensions []string

	// Cookie is sent as the Cookie header with every request.
	Cookie string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// IgnorePatterns are glob patterns of URL paths never enqueued.
	IgnorePatterns []string

	// FollowPatterns, when set, restrict enqueueing to matching URL paths.
	FollowPatterns []string

	// DropSelectors are CSS selectors appended to the boilerplate denylist.
	DropSelectors []string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path of the YAML configuration file, if any.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:               DefaultMaxDepth,
		Delay:                  DefaultDelay,
		SkipNonPrimaryLanguage: true,
		TargetLanguage:         DefaultTargetLanguage,
		UserAgent:              DefaultUserAgent,
		OutputDir:              DefaultOutputDir,
		CheckpointInterval:     DefaultCheckpointInterval,
		Timeout:                DefaultTimeout,
		MaxRetries:             DefaultMaxRetries,
		RetryBaseDelay:         DefaultRetryBaseDelay,
		MaxRedirects:           DefaultMaxRedirects,
		MaxBodySize:            DefaultMaxBodySize,
		Workers:                DefaultWorkers,
		RespectRobots:          true,
		DocumentExtensions:     slices.Clone(DefaultDocumentExtensions),
	}
}

// XDGConfigDir returns the XDG config directory for sitecrawl.
// On Linux: ~/.config/sitecrawl
// On macOS: ~/Library/Application Support/sitecrawl
// On Windows: %APPDATA%\sitecrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if c.SeedURL == "" {
		return ErrNoSeed
	}
	u, err := url.Parse(c.SeedURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidSeed
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return ErrInvalidSeed
	}

	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CheckpointInterval <= 0 {
		return ErrInvalidCheckpointInterval
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.RetryBaseDelay < 0 {
		return ErrInvalidRetryBaseDelay
	}
	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if _, err := language.Parse(c.TargetLanguage); err != nil {
		return ErrInvalidTargetLanguage
	}

	return nil
}

// EffectiveMaxBodySize returns MaxBodySize, or the default when it is unset.
func (c *Config) EffectiveMaxBodySize() int64 {
	if c.MaxBodySize == 0 {
		return DefaultMaxBodySize
	}
	return c.MaxBodySize
}

// RequestHeaders returns the extra headers to send, with the cookie folded in.
func (c *Config) RequestHeaders() map[string]string {
	headers := make(map[string]string, len(c.Headers)+1)
	for k, v := range c.Headers {
		headers[k] = v
	}
	if c.Cookie != "" {
		headers["Cookie"] = c.Cookie
	}
	return headers
}

// ApplySite overlays the non-zero fields of a site configuration onto c.
func (c *Config) ApplySite(sc SiteConfig) {
	if sc.Cookie != "" {
		c.Cookie = sc.Cookie
	}
	if len(sc.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(sc.Headers))
		}
		for k, v := range sc.Headers {
			c.Headers[k] = v
		}
	}
	if sc.Depth != nil {
		c.MaxDepth = *sc.Depth
	}
	if sc.Delay != nil {
		c.Delay = *sc.Delay
	}
	if sc.UserAgent != "" {
		c.UserAgent = sc.UserAgent
	}
	if sc.SkipNonPrimaryLanguage != nil {
		c.SkipNonPrimaryLanguage = *sc.SkipNonPrimaryLanguage
	}
	if sc.TargetLanguage != "" {
		c.TargetLanguage = sc.TargetLanguage
	}
	if sc.RespectRobots != nil {
		c.RespectRobots = *sc.RespectRobots
	}
	if len(sc.DocumentExtensions) > 0 {
		c.DocumentExtensions = slices.Clone(sc.DocumentExtensions)
	}
	if len(sc.IgnorePatterns) > 0 {
		c.IgnorePatterns = slices.Clone(sc.IgnorePatterns)
	}
	if len(sc.FollowPatterns) > 0 {
		c.FollowPatterns = slices.Clone(sc.FollowPatterns)
	}
	if len(sc.DropSelectors) > 0 {
		c.DropSelectors = append(c.DropSelectors, sc.DropSelectors...)
	}
}

// SeedHost returns the lowercase host of the seed URL, or "" if it does not parse.
func (c *Config) SeedHost() string {
	u, err := url.Parse(c.SeedURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
