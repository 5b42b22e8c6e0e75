package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and describe exactly which
// setting is wrong, so callers can use errors.Is() for programmatic handling.
var (
	// ErrNoSeed is returned when no seed URL is configured.
	ErrNoSeed = errors.New("no seed URL specified")

	// ErrInvalidSeed is returned when the seed is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid seed URL: must be an absolute http or https URL")

	// ErrInvalidMaxDepth is returned when the maximum depth is negative.
	// Depth 0 is valid and means only the seed page is fetched.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidDelay is returned when the per-host delay is negative.
	// Use 0 to disable the delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCheckpointInterval is returned when the checkpoint interval is not positive.
	ErrInvalidCheckpointInterval = errors.New("invalid checkpoint interval: must be positive")

	// ErrInvalidMaxRetries is returned when the retry count is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidRetryBaseDelay is returned when the backoff base is negative.
	ErrInvalidRetryBaseDelay = errors.New("invalid retry base delay: must be non-negative")

	// ErrInvalidMaxRedirects is returned when the redirect bound is negative.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to apply the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	// Use 0 for no limit.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrNoOutputDir is returned when the output directory is empty.
	ErrNoOutputDir = errors.New("no output directory specified")

	// ErrInvalidTargetLanguage is returned when the target language is not a BCP 47 tag.
	ErrInvalidTargetLanguage = errors.New("invalid target language: must be a BCP 47 language tag")

	// ErrInvalidEnv is returned when a SITECRAWL_* environment variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)
