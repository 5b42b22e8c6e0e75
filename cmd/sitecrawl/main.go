// Package main provides the entry point for the sitecrawl CLI.
//
// sitecrawl crawls one website into a local corpus: cleaned page text,
// a catalog of linked documents and the site's link graph. Crawls are
// checkpointed and resume where they stopped.
//
// Usage:
//
//	sitecrawl crawl https://www.town.gov/
//	sitecrawl status -o output
//
// See --help for all available options.
package main

// main is the entry point for sitecrawl.
func main() {
	Execute()
}
