package extract

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/nao1215/sitecrawl/internal/canon"
	"github.com/nao1215/sitecrawl/internal/model"
)

func newTestExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	seed, err := url.Parse("https://www.town.gov/")
	if err != nil {
		t.Fatal(err)
	}
	return New(canon.NewScope(seed), opts...)
}

const townPage = `<!DOCTYPE html>
<html lang="en">
<head>
	<title>  About the   Town </title>
	<meta name="description" content="Facts about our town.">
</head>
<body>
	<a class="skip-link" href="#main">Skip to main content</a>
	<header>
		<nav>
			<a href="/">Home</a>
			<a href="/departments/public-works">Public Works</a>
		</nav>
	</header>
	<div class="cookie-banner">This site uses cookies. <a href="/privacy">Privacy</a></div>
	<main>
		<article>
			<header><h1>About the Town</h1></header>
			<p>The town was   founded in 1850.</p>
			<h2>Government</h2>
			<ul>
				<li>Mayor and <b>council</b></li>
				<li>Town clerk <p>nested paragraph</p></li>
			</ul>
			<p>Read the <a href="/files/Annual-Report.PDF">annual report</a> or visit
			<a href="https://county.example.org/info">the county</a>.</p>
			<table><tr><th>Office</th><td>Open 9-5</td></tr></table>
		</article>
	</main>
	<footer>
		<p>© 2024 Town of Example. All rights reserved.</p>
		<a href="https://parks.town.gov/trails?b=2&amp;a=1#map">Trails</a>
		<div class="language-switcher"><a href="/fr/about">Français</a></div>
	</footer>
	<script>var tracking = "should not appear";</script>
</body>
</html>`

func TestExtract(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)
	page, err := e.Extract([]byte(townPage), "https://www.town.gov/about", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("title", func(t *testing.T) {
		t.Parallel()
		if page.Title != "About the Town" {
			t.Errorf("expected collapsed title, got %q", page.Title)
		}
	})

	t.Run("content text excludes boilerplate", func(t *testing.T) {
		t.Parallel()
		for _, unwanted := range []string{"Public Works", "cookies", "All rights reserved", "tracking", "Français", "Skip to"} {
			if strings.Contains(page.ContentText, unwanted) {
				t.Errorf("content should not contain %q:\n%s", unwanted, page.ContentText)
			}
		}
		want := []string{
			"The town was founded in 1850.",
			"Mayor and council",
			"Town clerk nested paragraph",
			"Read the annual report or visit the county.",
			"Office",
			"Open 9-5",
		}
		if got := strings.Split(page.ContentText, "\n\n"); strings.Join(got, "|") != strings.Join(want, "|") {
			t.Errorf("unexpected blocks:\n got %q\nwant %q", got, want)
		}
	})

	t.Run("word count", func(t *testing.T) {
		t.Parallel()
		if page.WordCount != model.CountWords(page.ContentText) || page.WordCount == 0 {
			t.Errorf("unexpected word count %d", page.WordCount)
		}
	})

	t.Run("headings in order with levels", func(t *testing.T) {
		t.Parallel()
		want := []model.Heading{{Level: 1, Text: "About the Town"}, {Level: 2, Text: "Government"}}
		if len(page.Headings) != len(want) {
			t.Fatalf("expected %d headings, got %+v", len(want), page.Headings)
		}
		for i := range want {
			if page.Headings[i] != want[i] {
				t.Errorf("heading %d: expected %+v, got %+v", i, want[i], page.Headings[i])
			}
		}
	})

	t.Run("links from removed regions are kept", func(t *testing.T) {
		t.Parallel()
		want := []model.Link{
			{URL: "https://www.town.gov/", Type: model.LinkInternal, Text: "Home"},
			{URL: "https://www.town.gov/departments/public-works", Type: model.LinkInternal, Text: "Public Works"},
			{URL: "https://www.town.gov/privacy", Type: model.LinkInternal, Text: "Privacy"},
			{URL: "https://www.town.gov/files/Annual-Report.PDF", Type: model.LinkDocument, Text: "annual report"},
			{URL: "https://county.example.org/info", Type: model.LinkExternal, Text: "the county"},
			{URL: "https://parks.town.gov/trails?a=1&b=2", Type: model.LinkInternal, Text: "Trails"},
			{URL: "https://www.town.gov/fr/about", Type: model.LinkInternal, Text: "Français"},
		}
		if len(page.OutboundLinks) != len(want) {
			t.Fatalf("expected %d links, got %d: %+v", len(want), len(page.OutboundLinks), page.OutboundLinks)
		}
		for i := range want {
			if page.OutboundLinks[i] != want[i] {
				t.Errorf("link %d: expected %+v, got %+v", i, want[i], page.OutboundLinks[i])
			}
		}
	})

	t.Run("metadata hints", func(t *testing.T) {
		t.Parallel()
		if page.MetadataHints[HintDescription] != "Facts about our town." {
			t.Errorf("unexpected description %q", page.MetadataHints[HintDescription])
		}
		if page.MetadataHints[HintSection] != "About" {
			t.Errorf("unexpected section %q", page.MetadataHints[HintSection])
		}
	})
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t)
	tests := []struct {
		name string
		body []byte
		want error
	}{
		{"empty", nil, ErrEmptyDocument},
		{"whitespace", []byte("  \n\t "), ErrEmptyDocument},
		{"binary", []byte("%PDF-1.7\x00\x01\x02"), ErrBinaryContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := e.Extract(tt.body, "https://town.gov/x", "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var ee *ExtractionError
			if !errors.As(err, &ee) || ee.URL != "https://town.gov/x" {
				t.Errorf("expected ExtractionError for the URL, got %v", err)
			}
		})
	}
}

func TestExtractMalformedMarkup(t *testing.T) {
	t.Parallel()

	page, err := newTestExtractor(t).Extract([]byte(`<p>unclosed <b>bold <div>text`), "https://town.gov/broken", "")
	if err != nil {
		t.Fatalf("HTML parsing should recover from broken markup: %v", err)
	}
	if !strings.Contains(page.ContentText, "unclosed bold") {
		t.Errorf("unexpected content %q", page.ContentText)
	}
	if page.Title != "https://town.gov/broken" {
		t.Errorf("expected URL as fallback title, got %q", page.Title)
	}
}

func TestTitleFallsBackToHeading(t *testing.T) {
	t.Parallel()

	page, err := newTestExtractor(t).Extract([]byte(`<body><h1>Council  Agenda</h1><p>x</p></body>`), "https://town.gov/a", "")
	if err != nil {
		t.Fatal(err)
	}
	if page.Title != "Council Agenda" {
		t.Errorf("expected h1 title, got %q", page.Title)
	}
}

func TestContentRootFallsBackToBody(t *testing.T) {
	t.Parallel()

	html := `<body><nav><p>menu</p></nav><div><p>First.</p><p>Second.</p></div></body>`
	page, err := newTestExtractor(t).Extract([]byte(html), "https://town.gov/", "")
	if err != nil {
		t.Fatal(err)
	}
	if page.ContentText != "First.\n\nSecond." {
		t.Errorf("unexpected content %q", page.ContentText)
	}
}

func TestContentWithoutBlocks(t *testing.T) {
	t.Parallel()

	page, err := newTestExtractor(t).Extract([]byte(`<body><div>Just   some<br>text</div></body>`), "https://town.gov/", "")
	if err != nil {
		t.Fatal(err)
	}
	if page.ContentText != "Just some text" {
		t.Errorf("unexpected content %q", page.ContentText)
	}
}

func TestDropSelectors(t *testing.T) {
	t.Parallel()

	html := `<body><main><p>Keep me.</p><div class="alert"><p>Storm warning.</p></div></main></body>`
	e := newTestExtractor(t, WithDropSelectors([]string{".alert", "  "}))
	page, err := e.Extract([]byte(html), "https://town.gov/", "")
	if err != nil {
		t.Fatal(err)
	}
	if page.ContentText != "Keep me." {
		t.Errorf("unexpected content %q", page.ContentText)
	}
}

func TestProtectedElementsSurvive(t *testing.T) {
	t.Parallel()

	html := `<body class="menu"><main class="content" hidden><p>Body text.</p></main></body>`
	e := newTestExtractor(t, WithDropSelectors([]string{"main", "body"}))
	page, err := e.Extract([]byte(html), "https://town.gov/", "")
	if err != nil {
		t.Fatal(err)
	}
	if page.ContentText != "Body text." {
		t.Errorf("unexpected content %q", page.ContentText)
	}
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	base := "https://town.gov/dept/parks"
	tests := []struct {
		href string
		want string
	}{
		{"../about/", "https://town.gov/about"},
		{"contact?z=1&a=2", "https://town.gov/dept/contact?a=2&z=1"},
		{"//Town.GOV:443/x#frag", "https://town.gov/x"},
		{"  /padded  ", "https://town.gov/padded"},
		{"#top", ""},
		{"", ""},
		{"javascript:void(0)", ""},
		{"JavaScript:alert(1)", ""},
		{"mailto:clerk@town.gov", ""},
		{"tel:+15551234", ""},
		{"data:text/plain,hi", ""},
		{"http://[::1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			t.Parallel()
			if got := resolveURL(tt.href, base); got != tt.want {
				t.Errorf("resolveURL(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

func TestBaseHref(t *testing.T) {
	t.Parallel()

	html := `<head><base href="https://town.gov/archive/"></head><body><a href="old.html">Old</a></body>`
	page, err := newTestExtractor(t).Extract([]byte(html), "https://town.gov/news", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(page.OutboundLinks) != 1 || page.OutboundLinks[0].URL != "https://town.gov/archive/old.html" {
		t.Errorf("expected link resolved against <base>, got %+v", page.OutboundLinks)
	}
}

func TestClassifyLink(t *testing.T) {
	t.Parallel()

	e := newTestExtractor(t, WithDocumentExtensions([]string{".PDF", "docx", " "}))
	tests := []struct {
		link string
		want model.LinkType
	}{
		{"https://town.gov/a", model.LinkInternal},
		{"https://www.town.gov/a", model.LinkInternal},
		{"http://clerk.town.gov/a", model.LinkInternal},
		{"https://town.gov.evil.com/a", model.LinkExternal},
		{"https://other.gov/a", model.LinkExternal},
		{"https://town.gov/files/budget.pdf", model.LinkDocument},
		{"https://other.gov/form.DOCX", model.LinkDocument},
		{"https://town.gov/sheet.xlsx", model.LinkInternal},
		{"https://town.gov/report.pdf?download=1", model.LinkDocument},
		{"https://town.gov/pdf", model.LinkInternal},
	}
	for _, tt := range tests {
		if got := e.classifyLink(tt.link); got != tt.want {
			t.Errorf("classifyLink(%q) = %s, want %s", tt.link, got, tt.want)
		}
	}

	if !isDocument("https://town.gov/a.pdf", e.extensions) || isDocument("https://town.gov/a.html", e.extensions) {
		t.Error("unexpected isDocument result")
	}
}

func TestMetadataHints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		html    string
		pageURL string
		want    map[string]string
	}{
		{
			name:    "department from path",
			html:    `<body><p>Crews fix roads.</p></body>`,
			pageURL: "https://town.gov/departments/public-works/roads",
			want:    map[string]string{HintDepartment: "Public Works", HintSection: "Departments"},
		},
		{
			name:    "department from class",
			html:    `<body><span class="dept-name department">Parks &amp; Recreation</span></body>`,
			pageURL: "https://town.gov/",
			want:    map[string]string{HintDepartment: "Parks & Recreation"},
		},
		{
			name:    "document type from path",
			html:    `<body><p>Items.</p></body>`,
			pageURL: "https://town.gov/council/meeting-minutes",
			want:    map[string]string{HintDocumentType: "minutes", HintSection: "Council"},
		},
		{
			name:    "date from time element",
			html:    `<body><time datetime="2024-03-05">March 5</time></body>`,
			pageURL: "https://town.gov/",
			want:    map[string]string{HintDate: "2024-03-05"},
		},
		{
			name:    "date from meta",
			html:    `<head><meta property="article:published_time" content="2023-11-01T10:00:00Z"></head><body></body>`,
			pageURL: "https://town.gov/",
			want:    map[string]string{HintDate: "2023-11-01T10:00:00Z"},
		},
		{
			name:    "date from dated element",
			html:    `<body><div class="post-date">Posted 4/12/2024</div></body>`,
			pageURL: "https://town.gov/",
			want:    map[string]string{HintDate: "4/12/2024"},
		},
		{
			name:    "date from content",
			html:    `<body><p>Adopted on January 9, 2024 by the council.</p></body>`,
			pageURL: "https://town.gov/",
			want:    map[string]string{HintDate: "January 9, 2024"},
		},
		{
			name:    "nothing found",
			html:    `<body><p>Hello.</p></body>`,
			pageURL: "https://town.gov/",
			want:    map[string]string{},
		},
	}

	e := newTestExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page, err := e.Extract([]byte(tt.html), tt.pageURL, "")
			if err != nil {
				t.Fatal(err)
			}
			if len(page.MetadataHints) != len(tt.want) {
				t.Errorf("expected hints %v, got %v", tt.want, page.MetadataHints)
			}
			for k, v := range tt.want {
				if page.MetadataHints[k] != v {
					t.Errorf("hint %s: expected %q, got %q", k, v, page.MetadataHints[k])
				}
			}
		})
	}
}

func TestHumanize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"public-works":      "Public Works",
		"parks_and_rec.htm": "Parks And Rec",
		"about":             "About",
		"city+hall":         "City Hall",
	}
	for in, want := range tests {
		if got := humanize(in); got != want {
			t.Errorf("humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRelativeLinksUseFetchedURL(t *testing.T) {
	t.Parallel()

	html := `<body><a href="parks">Parks</a></body>`
	page, err := newTestExtractor(t).Extract([]byte(html), "https://town.gov/dept", "https://town.gov/dept/")
	if err != nil {
		t.Fatal(err)
	}
	if page.URL != "https://town.gov/dept" {
		t.Errorf("expected canonical page URL, got %q", page.URL)
	}
	if len(page.OutboundLinks) != 1 || page.OutboundLinks[0].URL != "https://town.gov/dept/parks" {
		t.Errorf("expected link resolved against the fetched URL, got %+v", page.OutboundLinks)
	}
}
