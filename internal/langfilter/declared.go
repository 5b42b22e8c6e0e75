package langfilter

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// DeclaredLanguage returns the language a document declares for itself:
// the lang (or xml:lang) attribute of <html>, else a
// <meta http-equiv="content-language">. Only the head is scanned.
func DeclaredLanguage(rawHTML []byte) (string, bool) {
	var htmlLang, metaLang string

	z := html.NewTokenizer(bytes.NewReader(rawHTML))
scan:
	for {
		switch z.Next() {
		case html.ErrorToken:
			break scan
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "html":
				htmlLang = attr(tok, "lang")
				if htmlLang == "" {
					htmlLang = attr(tok, "xml:lang")
				}
			case "meta":
				if strings.EqualFold(attr(tok, "http-equiv"), "content-language") && metaLang == "" {
					metaLang = attr(tok, "content")
				}
			case "body":
				break scan
			}
		}
	}

	if lang, ok := BaseLanguage(htmlLang); ok {
		return lang, true
	}
	return headerLanguage(metaLang)
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
