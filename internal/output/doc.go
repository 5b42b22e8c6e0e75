// Package output writes crawl results to the output directory.
//
// Layout:
//
//	pages/<hash>.json        one file per persisted page
//	documents/catalog.json   the document catalog
//	site_graph.json          every discovered link
//	site_metadata.json       run metadata and counts
//	crawl_report.md          human-readable run summary
//
// Every file is replaced atomically, so an interrupted run never leaves a
// truncated file behind. Page files are keyed by a hash of the canonical URL
// and rewriting a page on resume overwrites the same file.
package output
