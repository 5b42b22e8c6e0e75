// Package state holds the crawl frontier, the visited set and their
// durable checkpoint.
//
// A URL moves through Frontier -> Fetching -> a terminal status recorded
// in the visited set (persisted, filtered_out, failed, redirected or
// document). The visited set is the only gate against re-enqueueing.
//
// CrawlState is not safe for concurrent use. The crawl engine serializes
// access so that a page's visited mark and its graph edges change under
// one lock and a checkpoint never observes one without the other.
package state
