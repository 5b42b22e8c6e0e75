package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitecrawl/internal/model"
)

// boilerplateTags are removed wherever they appear.
const boilerplateTags = "script, style, noscript, iframe, svg, template, canvas, nav, aside, dialog"

// pageChrome matches header and footer elements outside the main content.
// An article's own header usually carries its h1 and is kept.
const (
	pageChrome        = "header, footer"
	contentChrome     = "main header, article header, main footer, article footer"
	protectedElements = "html, body, main, article"
)

// boilerplateSelectors are structural role and class hints for navigation,
// banners, cookie notices, social widgets and language switchers.
var boilerplateSelectors = []string{
	`[role="navigation"]`, `[role="banner"]`, `[role="contentinfo"]`,
	`[role="complementary"]`, `[role="search"]`, `[role="dialog"]`,
	`[aria-hidden="true"]`, `[hidden]`,
	`[style*="display:none"]`, `[style*="display: none"]`,
	".navigation", ".nav", ".navbar", ".menu", ".main-menu",
	".sidebar", ".side-bar", ".widget",
	".footer", ".header", ".banner", ".site-header", ".site-footer",
	".advertisement", ".ad", ".ads",
	".social", ".social-media", ".share-buttons", ".social-share",
	".breadcrumb", ".breadcrumbs",
	".cookie-notice", ".cookie-banner", ".cookie-consent", "#cookie-banner", "#cookie-notice",
	".language-switcher", ".lang-switcher", ".language-selector", "#language-selector",
	".skip-link", ".skip-to-content", ".visually-hidden", ".sr-only",
	"#navigation", "#nav", "#sidebar", "#footer", "#header",
}

// contentSelectors name likely main-content containers, best first.
var contentSelectors = []string{
	"main", "article", `[role="main"]`,
	"#content", ".content", ".main-content", ".page-content", "#main-content", "#main",
}

// blockSelector selects the elements whose text becomes content blocks.
const blockSelector = "p, li, td, th, blockquote, dd, dt, pre, figcaption"

const headingSelector = "h1, h2, h3, h4, h5, h6"

// boilerplateText matches short strings that are site chrome, not content.
var boilerplateText = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(©|\(c\)|copyright)\s*\d{4}`),
	regexp.MustCompile(`(?i)all rights reserved`),
	regexp.MustCompile(`(?i)skip to (main )?content`),
	regexp.MustCompile(`(?i)javascript (must be|is) (enabled|disabled)`),
	regexp.MustCompile(`(?i)this (site|website) uses cookies`),
}

// clean strips boilerplate from doc and returns the content root.
func (e *Extractor) clean(doc *goquery.Document) *goquery.Selection {
	doc.Find(boilerplateTags).Remove()
	doc.Find(pageChrome).Not(contentChrome).Remove()

	for _, sel := range boilerplateSelectors {
		doc.Find(sel).Not(protectedElements).Remove()
	}
	for _, sel := range e.dropSelectors {
		if strings.TrimSpace(sel) == "" {
			continue
		}
		doc.Find(sel).Not(protectedElements).Remove()
	}
	doc.Find("br").ReplaceWithHtml(" ")

	for _, sel := range contentSelectors {
		if root := doc.Find(sel).First(); root.Length() > 0 && collapse(root.Text()) != "" {
			return root
		}
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// textBlocks collects the collapsed text of outermost block elements
// under root. Nested blocks are part of their ancestor's text. When the
// root has no blocks at all, its whole text is one block.
func textBlocks(root *goquery.Selection) []string {
	blocks := make([]string, 0)
	root.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsUntilSelection(root).Filter(blockSelector).Length() > 0 {
			return
		}
		text := collapse(s.Text())
		if text == "" || isBoilerplateText(text) {
			return
		}
		blocks = append(blocks, text)
	})

	if len(blocks) == 0 {
		if text := collapse(root.Text()); text != "" && !isBoilerplateText(text) {
			blocks = append(blocks, text)
		}
	}
	return blocks
}

// headings returns h1-h6 under root in document order.
func headings(root *goquery.Selection) []model.Heading {
	result := make([]model.Heading, 0)
	root.Find(headingSelector).Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if text == "" || isBoilerplateText(text) {
			return
		}
		result = append(result, model.Heading{
			Level: int(goquery.NodeName(s)[1] - '0'),
			Text:  text,
		})
	})
	return result
}

// isBoilerplateText reports whether a short block matches a chrome pattern.
// Very short and very long blocks are never treated as boilerplate.
func isBoilerplateText(text string) bool {
	if len(text) < 3 || len(text) > 500 {
		return false
	}
	for _, re := range boilerplateText {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
