// Package politeness implements the per-host politeness gate: a robots.txt
// cache and a minimum delay between requests to the same host.
//
// Robots rules are fetched once per scheme and host and cached for the run.
// An unreachable or broken robots.txt is treated as allowing everything and
// logged as a warning, so a flaky robots endpoint never halts a crawl.
package politeness
