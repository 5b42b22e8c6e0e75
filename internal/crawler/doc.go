// Package crawler drives a crawl of one site.
//
// # Architecture
//
// The Engine owns the crawl state: the frontier, the visited set and the
// site graph. Workers take the next frontier URL whose host is idle and run
// it through a pipeline of steps:
//
//	politeness  robots.txt check and per-host delay
//	fetch       GET with retries, in-flight even during shutdown
//	redirect    the final URL becomes the page identity
//	document    non-HTML responses are catalogued, not parsed
//	extract     cleaned text, headings, links and metadata hints
//	language    pages outside the target language are not persisted
//	documents   HEAD requests for linked documents
//	persist     the page file, then edges, visited mark and new links
//
// A page's edges, its visited mark and the links it adds to the frontier
// are committed together under the engine lock, so a checkpoint never
// holds one without the others.
//
// # Resume
//
// The engine checkpoints every CheckpointInterval settled URLs and once
// more when it stops. A later Run with the same seed continues from the
// checkpoint: URLs already visited are never fetched again.
//
// # Shutdown
//
// Cancelling the context passed to Run stops dequeuing. Fetches already
// under way finish; a URL still waiting at the politeness gate goes back
// to the front of the frontier. The final checkpoint and output files are
// then written and Run returns normally with status "interrupted".
//
// # Usage
//
//	engine, err := crawler.New(cfg, crawler.WithLogger(logger))
//	meta, err := engine.Run(ctx)
package crawler
