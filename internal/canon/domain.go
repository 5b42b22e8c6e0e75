package canon

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// RegisteredDomain returns the registrable domain of host (eTLD+1), e.g.
// "town.gov" for "www.parks.town.gov". IP addresses and hosts without a
// public suffix (localhost, intranet names) are returned as-is, lowercased
// and without a leading "www.".
func RegisteredDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if net.ParseIP(host) != nil {
		return host
	}

	host = strings.TrimPrefix(host, "www.")
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// Scope decides whether URLs belong to the crawled site.
// A URL is in scope when its registered domain equals the seed's, so
// "www.town.gov", "town.gov" and "parks.town.gov" are one site.
type Scope struct {
	domain string
}

// NewScope returns the scope of the site containing seed.
func NewScope(seed *url.URL) Scope {
	return Scope{domain: RegisteredDomain(seed.Hostname())}
}

// Domain returns the registered domain of the scope.
func (s Scope) Domain() string {
	return s.domain
}

// Contains reports whether u is on the scope's registered domain.
func (s Scope) Contains(u *url.URL) bool {
	return u != nil && RegisteredDomain(u.Hostname()) == s.domain
}

// ContainsString is Contains for a URL string. Unparseable input is out of scope.
func (s Scope) ContainsString(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return s.Contains(u)
}

// Host returns the lowercase host (with non-default port) of a canonical URL string.
func Host(canonicalURL string) string {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return ""
	}
	return u.Host
}
