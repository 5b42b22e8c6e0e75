// Package config provides configuration structures and utilities for sitecrawl.
// It defines the crawl settings consumed by the crawl engine, the YAML
// configuration file format with per-site overrides, and environment
// variable overrides.
package config
