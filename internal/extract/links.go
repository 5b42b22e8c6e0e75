package extract

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitecrawl/internal/canon"
	"github.com/nao1215/sitecrawl/internal/model"
)

// skippedSchemes are href prefixes that never name a crawlable resource.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:", "sms:", "ftp:"}

// links classifies every a[href] and area[href] of the unmodified tree,
// in document order. Malformed and non-web hrefs are skipped one by one.
func (e *Extractor) links(doc *goquery.Document, docURL string) []model.Link {
	base := docURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if d, err := url.Parse(docURL); err == nil {
				base = d.ResolveReference(b).String()
			}
		}
	}

	links := make([]model.Link, 0)
	doc.Find("a[href], area[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		target := resolveURL(href, base)
		if target == "" {
			return
		}
		text := collapse(s.Text())
		if text == "" {
			text = collapse(s.AttrOr("title", s.AttrOr("alt", "")))
		}
		links = append(links, model.Link{
			URL:  target,
			Type: e.classifyLink(target),
			Text: text,
		})
	})
	return links
}

// resolveURL returns the canonical form of href resolved against base,
// or "" for hrefs that are empty, fragment-only, non-web or malformed.
func resolveURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	resolved, err := canon.Canonicalize(href, base)
	if err != nil {
		return ""
	}
	return resolved
}

// classifyLink categorizes a canonical URL. Extension wins over host, so a
// PDF on another domain is still a document.
func (e *Extractor) classifyLink(link string) model.LinkType {
	if isDocument(link, e.extensions) {
		return model.LinkDocument
	}
	if e.scope.ContainsString(link) {
		return model.LinkInternal
	}
	return model.LinkExternal
}

func isDocument(link string, extensions map[string]struct{}) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if ext == "" {
		return false
	}
	_, ok := extensions[ext]
	return ok
}
