// Package log builds the slog loggers used by sitecrawl.
//
// Crawl logs are full of URLs and request headers, and both can carry
// credentials: a session cookie configured for a site, an Authorization
// header, or a signed link such as /files/report.pdf?token=abc. The
// RedactingHandler masks these before they reach the output:
//   - attributes whose key names a credential (cookie, authorization, token, ...)
//   - bearer and basic credentials recognized by value
//   - sensitive query parameters inside URL-valued attributes
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose, false)
//	slog.SetDefault(logger)
//	logger.Warn("fetch failed", "url", "https://town.gov/a?token=abc")
//	// url=https://town.gov/a?token=***REDACTED***
package log
