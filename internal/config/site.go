package config

import "time"

// SiteConfig holds site-specific crawl settings.
// Pointer fields distinguish "not set" from an explicit zero value, so a
// site can for example set depth: 0 to fetch only its seed page.
type SiteConfig struct {
	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the maximum crawl depth.
	Depth *int `yaml:"depth,omitempty"`

	// Delay overrides the per-host delay, e.g. "500ms" or "2s".
	Delay *time.Duration `yaml:"delay,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// SkipNonPrimaryLanguage toggles the language filter.
	SkipNonPrimaryLanguage *bool `yaml:"skipNonPrimaryLanguage,omitempty"`

	// TargetLanguage overrides the primary language tag.
	TargetLanguage string `yaml:"targetLanguage,omitempty"`

	// RespectRobots toggles robots.txt checks.
	RespectRobots *bool `yaml:"respectRobots,omitempty"`

	// DocumentExtensions replaces the document extension allowlist.
	DocumentExtensions []string `yaml:"documentExtensions,omitempty"`

	// IgnorePatterns are URL path patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// DropSelectors are extra CSS selectors removed as boilerplate.
	DropSelectors []string `yaml:"dropSelectors,omitempty"`
}

// File represents the structure of the sitecrawl configuration file.
type File struct {
	// Sites maps hosts to their site-specific configurations.
	// Keys are bare hosts without scheme (e.g., "town.gov").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merged over defaults.
// A "www." prefix is ignored when looking the host up.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	siteConfig, ok := cf.Sites[host]
	if !ok {
		siteConfig, ok = cf.Sites[alternateWWW(host)]
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range siteConfig.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	if siteConfig.Depth != nil {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.Delay != nil {
		result.Delay = siteConfig.Delay
	}
	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if siteConfig.SkipNonPrimaryLanguage != nil {
		result.SkipNonPrimaryLanguage = siteConfig.SkipNonPrimaryLanguage
	}
	if siteConfig.TargetLanguage != "" {
		result.TargetLanguage = siteConfig.TargetLanguage
	}
	if siteConfig.RespectRobots != nil {
		result.RespectRobots = siteConfig.RespectRobots
	}
	if len(siteConfig.DocumentExtensions) > 0 {
		result.DocumentExtensions = siteConfig.DocumentExtensions
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	if len(siteConfig.DropSelectors) > 0 {
		result.DropSelectors = append(append([]string(nil), result.DropSelectors...), siteConfig.DropSelectors...)
	}

	return result
}

// alternateWWW returns host with its "www." prefix toggled.
func alternateWWW(host string) string {
	if len(host) > 4 && host[:4] == "www." {
		return host[4:]
	}
	return "www." + host
}
