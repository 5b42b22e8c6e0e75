// Package report renders crawl run summaries.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: crawl_report.md in the output directory
//
// Writers implement the Writer interface and take a Summary, which is
// built from the run metadata, the document catalog and the site graph.
package report
