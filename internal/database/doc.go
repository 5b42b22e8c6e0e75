// Package database provides an optional SQLite index of crawl results.
//
// The JSON files in the output directory are the primary output. The index
// mirrors them into index.db so a crawl can be queried with SQL:
//   - pages with their title, language, depth and word count
//   - documents and every page linking to them
//   - site graph edges
//   - the terminal status of every visited URL
//   - runs, keyed by run ID
//
// Every write is an upsert, so replaying the same records after a resume
// leaves the index unchanged.
//
// We use modernc.org/sqlite because it is CGO-free and the database stays a
// single file next to the rest of the output.
package database
