// Package model defines the data structures shared across sitecrawl.
//
// This package contains the following main types:
//   - Page: the cleaned, structured content of one crawled HTML page
//   - DocumentEntry: a document (PDF, Word, Excel) cataloged by metadata only
//   - Edge: one link in the site graph
//   - URLStatus: the terminal state of a visited URL
//   - RunMetadata: run-level counts, timestamps and configuration
//
// Models live in their own package so the crawler, output writer, report and
// database packages can share them without import cycles. All of them are
// serialized to JSON for downstream consumers.
package model
