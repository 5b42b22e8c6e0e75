package langfilter

import (
	"net/url"
	"regexp"
	"strings"
)

// urlLanguages are the codes recognized in URL paths. Only common
// site-translation codes are accepted.
var urlLanguages = map[string]struct{}{
	"en": {}, "es": {}, "fr": {}, "de": {}, "it": {}, "pt": {}, "ru": {}, "zh": {},
	"ja": {}, "ko": {}, "ar": {}, "hi": {}, "nl": {}, "pl": {}, "tr": {}, "vi": {},
	"th": {}, "id": {}, "uk": {}, "ro": {}, "cs": {}, "sv": {}, "da": {}, "fi": {},
	"no": {}, "hu": {}, "el": {}, "he": {}, "bn": {}, "fa": {}, "ur": {}, "tl": {},
}

// regionOnly are codes that are also common path words ("/it/helpdesk",
// "/news/id/42"). They count only with a region, as in "it-it".
var regionOnly = map[string]struct{}{
	"id": {}, "it": {}, "no": {},
}

// langSegment matches "fr", "es-mx", "pt_BR", "zh-hans".
var langSegment = regexp.MustCompile(`^[a-zA-Z]{2}(?:[-_][a-zA-Z]{2,4})?$`)

// URLLanguage returns a language named by the URL: a first path segment
// such as /fr/ or /es-mx/, or a query parameter whose name contains "lang"
// (lang, language, oc_lang, hl).
func URLLanguage(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	for key, values := range u.Query() {
		k := strings.ToLower(key)
		if !strings.Contains(k, "lang") && k != "hl" {
			continue
		}
		for _, v := range values {
			// "en us" appears in the wild.
			if lang, ok := BaseLanguage(strings.ReplaceAll(strings.TrimSpace(v), " ", "-")); ok {
				return lang, true
			}
		}
	}

	seg, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if !langSegment.MatchString(seg) {
		return "", false
	}
	code := strings.ToLower(seg[:2])
	if _, known := urlLanguages[code]; !known {
		return "", false
	}
	if _, ambiguous := regionOnly[code]; ambiguous && len(seg) == 2 {
		return "", false
	}
	return BaseLanguage(seg)
}
