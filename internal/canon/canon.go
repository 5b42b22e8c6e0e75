package canon

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// defaultPorts maps schemes to the port that is dropped from canonical URLs.
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Canonicalize resolves raw against base and returns its canonical form.
// base may be empty when raw is absolute.
//
// Rules, in order: resolve relative references and dot segments, lowercase
// scheme and host, drop the fragment, drop the scheme's default port,
// normalize percent-escapes in the path, strip the trailing slash except on
// the root path, and sort query parameters by key. The result is idempotent: Canonicalize(Canonicalize(u)) == Canonicalize(u).
func Canonicalize(raw, base string) (string, error) {
	u, err := Parse(raw, base)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Parse is Canonicalize returning the canonical *url.URL.
func Parse(raw, base string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedURL)
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedURL, raw, err)
	}

	if base != "" {
		b, err := url.Parse(strings.TrimSpace(base))
		if err != nil {
			return nil, fmt.Errorf("%w: base %q: %v", ErrMalformedURL, base, err)
		}
		ref = b.ResolveReference(ref)
	} else if ref.IsAbs() {
		// Resolving against an empty reference cleans dot segments.
		ref = ref.ResolveReference(&url.URL{})
	}

	return normalize(ref)
}

func normalize(u *url.URL) (*url.URL, error) {
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrMalformedURL, u.String())
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrMalformedURL, u.String())
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && port != defaultPorts[scheme] {
		host += ":" + port
	}

	// Work on the escaped path so an encoded slash is never trimmed.
	escaped := strings.TrimRight(normalizeEscapes(u.EscapedPath()), "/")
	if escaped == "" {
		escaped = "/"
	}
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedURL, u.String(), err)
	}

	return &url.URL{
		Scheme:   scheme,
		User:     u.User,
		Host:     host,
		Path:     path,
		RawPath:  escaped,
		RawQuery: sortQuery(u.RawQuery),
	}, nil
}

// normalizeEscapes uppercases percent-escapes and decodes those of letters,
// digits, '-', '_' and '~'. An escaped '.' stays escaped: decoding it could
// create dot segments.
func normalizeEscapes(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			c := unhex(s[i+1])<<4 | unhex(s[i+2])
			if isUnreserved(c) {
				b.WriteByte(c)
			} else {
				b.WriteByte('%')
				b.WriteString(strings.ToUpper(s[i+1 : i+3]))
			}
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '_' || c == '~'
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// sortQuery orders query parameters by key, keeping the relative order of
// repeated keys. Pairs are sorted as raw text so no escaping is altered.
func sortQuery(raw string) string {
	if raw == "" {
		return ""
	}
	var pairs []string
	for _, p := range strings.Split(raw, "&") {
		if p != "" {
			pairs = append(pairs, p)
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return queryKey(pairs[i]) < queryKey(pairs[j])
	})
	return strings.Join(pairs, "&")
}

func queryKey(pair string) string {
	key, _, _ := strings.Cut(pair, "=")
	if k, err := url.QueryUnescape(key); err == nil {
		return k
	}
	return key
}
