// Package fetcher issues the crawl's HTTP requests: GET for pages and HEAD
// for documents.
//
// Every request has a bounded timeout. Transient failures (timeouts,
// connection resets, 5xx and 429 responses) are retried with exponential
// backoff; everything else fails immediately. Failures are reported as
// *FetchError carrying whether they were transient or permanent.
//
// Page bodies are decompressed (gzip, deflate, brotli) and converted to
// UTF-8. Responses that are not HTML are returned without reading the body,
// so a document served from a page-looking URL is never downloaded.
package fetcher
