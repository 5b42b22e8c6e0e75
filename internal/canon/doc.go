// Package canon turns raw URLs into canonical comparison keys.
//
// A canonical URL is the identity used for frontier and visited-set
// membership, page file names and graph edges. Two URLs a human would
// consider the same page map to the same key:
//
//	HTTP://Town.gov:80/About/?b=2&a=1#top  ->  http://town.gov/About?a=1&b=2
//
// The package also answers scope questions (is this URL on the same
// registered domain as the seed?) and derives the stable hash that names
// persisted page files.
package canon
