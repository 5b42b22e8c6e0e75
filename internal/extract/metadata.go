package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Metadata hint keys.
const (
	HintDepartment   = "department"
	HintDate         = "date"
	HintDocumentType = "document_type"
	HintDescription  = "description"
	HintSection      = "section"
)

// maxHintLen bounds hints taken from element text.
const maxHintLen = 120

var (
	departmentClass   = regexp.MustCompile(`(?i)\b(department|dept|division)\b`)
	dateClass         = regexp.MustCompile(`(?i)(date|published|updated|posted)`)
	documentTypeClass = regexp.MustCompile(`(?i)(document-type|doc-type|doctype)`)

	// datePattern matches ISO dates, US numeric dates and written dates.
	datePattern = regexp.MustCompile(`(?i)\b(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}/\d{1,2}/\d{2,4}|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.? \d{1,2}, \d{4})\b`)
)

// documentTypeKeywords are path keywords that hint a document type, in priority order.
var documentTypeKeywords = []string{"agenda", "minutes", "ordinance", "resolution", "budget", "report", "notice"}

// dateMetaNames are meta name or property values that carry a publication date.
var dateMetaNames = []string{"date", "dc.date", "dcterms.date", "article:published_time", "article:modified_time", "last-modified"}

// metadataHints derives best-effort hints from the unmodified tree, the
// page URL and the cleaned content text. Missing hints are absent keys.
func metadataHints(doc *goquery.Document, pageURL, content string) map[string]string {
	hints := make(map[string]string)

	var segments []string
	if u, err := url.Parse(pageURL); err == nil {
		segments = pathSegments(u.Path)
	}

	if d := metaContent(doc, "description", "og:description"); d != "" {
		hints[HintDescription] = d
	}
	if len(segments) > 0 {
		hints[HintSection] = humanize(segments[0])
	}
	if d := department(doc, segments); d != "" {
		hints[HintDepartment] = d
	}
	if t := documentType(doc, segments); t != "" {
		hints[HintDocumentType] = t
	}
	if d := publicationDate(doc, content); d != "" {
		hints[HintDate] = d
	}
	return hints
}

func department(doc *goquery.Document, segments []string) string {
	if text := classHint(doc, departmentClass); text != "" {
		return text
	}
	for i, seg := range segments {
		if (seg == "departments" || seg == "department") && i+1 < len(segments) {
			return humanize(segments[i+1])
		}
	}
	return ""
}

func documentType(doc *goquery.Document, segments []string) string {
	if text := classHint(doc, documentTypeClass); text != "" {
		return text
	}
	path := strings.ToLower(strings.Join(segments, "/"))
	for _, kw := range documentTypeKeywords {
		if strings.Contains(path, kw) {
			return kw
		}
	}
	return ""
}

func publicationDate(doc *goquery.Document, content string) string {
	if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		return strings.TrimSpace(dt)
	}
	if d := metaContent(doc, dateMetaNames...); d != "" {
		return d
	}

	var found string
	doc.Find("time, span, div, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !dateClass.MatchString(s.AttrOr("class", "")) {
			return true
		}
		found = datePattern.FindString(s.Text())
		return found == ""
	})
	if found != "" {
		return found
	}
	return datePattern.FindString(content)
}

// classHint returns the text of the first element whose class matches re.
func classHint(doc *goquery.Document, re *regexp.Regexp) string {
	var hint string
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !re.MatchString(s.AttrOr("class", "")) {
			return true
		}
		text := collapse(s.Text())
		if text == "" || len(text) > maxHintLen {
			return true
		}
		hint = text
		return false
	})
	return hint
}

// metaContent returns the content of the first meta tag whose name or
// property is one of names.
func metaContent(doc *goquery.Document, names ...string) string {
	for _, name := range names {
		var content string
		doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			key := s.AttrOr("name", s.AttrOr("property", ""))
			if !strings.EqualFold(key, name) {
				return true
			}
			content = collapse(s.AttrOr("content", ""))
			return content == ""
		})
		if content != "" {
			return content
		}
	}
	return ""
}

func pathSegments(p string) []string {
	var segments []string
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(seg); err == nil {
			seg = unescaped
		}
		segments = append(segments, seg)
	}
	return segments
}

// humanize turns a slug such as "public-works.html" into "Public Works".
func humanize(slug string) string {
	if i := strings.LastIndex(slug, "."); i > 0 {
		slug = slug[:i]
	}
	slug = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(slug)
	// A Caser is stateful, so one is made per call.
	return cases.Title(language.English).String(collapse(slug))
}
