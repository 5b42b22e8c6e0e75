package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// patterns decides whether a URL may be enqueued based on its path.
type patterns struct {
	// ignore are path patterns never crawled.
	ignore []string

	// follow, when set, are the only path patterns crawled.
	follow []string
}

// allow checks a URL against the ignore and follow patterns.
//
// Logic:
//  1. If the path matches any ignore pattern, skip it
//  2. If follow patterns are set and the path matches none, skip it
//  3. Otherwise, crawl it
func (p patterns) allow(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range p.ignore {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(p.follow) == 0 {
		return true
	}
	for _, pattern := range p.follow {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing /* to match everything below a directory
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users/list"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Patterns without a slash also match the last path segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
