package langfilter

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// ErrInvalidLanguage is returned for a target language that is not a BCP 47 tag.
var ErrInvalidLanguage = errors.New("invalid target language")

// Source tells which signal decided a page's language.
type Source string

const (
	// SourceDeclared is a declaration in the markup or the response headers.
	SourceDeclared Source = "declared"

	// SourceContent is the content heuristic.
	SourceContent Source = "content"

	// SourceURL is a language code in the URL.
	SourceURL Source = "url"

	// SourceUnknown means no signal was conclusive.
	SourceUnknown Source = "unknown"
)

// Decision is the language verdict for one page.
type Decision struct {
	// Language is the base language, e.g. "en", or "" when unknown.
	Language string

	// Source is the signal that produced Language.
	Source Source

	// Accepted reports whether the page should be persisted.
	Accepted bool
}

// Input is what the filter looks at for one page.
type Input struct {
	// RawHTML is the unmodified markup.
	RawHTML []byte

	// ContentLanguage is the Content-Language response header.
	ContentLanguage string

	// Text is the cleaned content text.
	Text string

	// URL is the canonical page URL.
	URL string
}

// Filter applies the target-language policy. It is safe for concurrent use.
type Filter struct {
	target   string
	enabled  bool
	detector Detector
}

// Option configures a Filter.
type Option func(*Filter)

// WithDetector replaces the content heuristic.
func WithDetector(d Detector) Option {
	return func(f *Filter) {
		f.detector = d
	}
}

// New creates a Filter for target, a BCP 47 tag such as "en" or "en-US".
// When enabled is false every page is accepted, though its language is
// still reported.
func New(target string, enabled bool, opts ...Option) (*Filter, error) {
	base, ok := BaseLanguage(target)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLanguage, target)
	}
	f := &Filter{
		target:   base,
		enabled:  enabled,
		detector: NewFunctionWordDetector(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Target returns the target base language.
func (f *Filter) Target() string {
	return f.target
}

// Decide returns the language decision for one page.
func (f *Filter) Decide(in Input) Decision {
	d := Decision{Source: SourceUnknown}

	switch {
	case f.declared(in, &d):
	case f.detected(in, &d):
	case f.fromURL(in, &d):
	}

	d.Accepted = !f.enabled || d.Language == "" || d.Language == f.target
	return d
}

func (f *Filter) declared(in Input, d *Decision) bool {
	lang, ok := DeclaredLanguage(in.RawHTML)
	if !ok {
		lang, ok = headerLanguage(in.ContentLanguage)
	}
	if !ok {
		return false
	}
	d.Language, d.Source = lang, SourceDeclared
	return true
}

func (f *Filter) detected(in Input, d *Decision) bool {
	if f.detector == nil {
		return false
	}
	lang, ok := f.detector.Detect(in.Text)
	if !ok {
		return false
	}
	if base, ok := BaseLanguage(lang); ok {
		lang = base
	}
	d.Language, d.Source = lang, SourceContent
	return true
}

func (f *Filter) fromURL(in Input, d *Decision) bool {
	lang, ok := URLLanguage(in.URL)
	if !ok {
		return false
	}
	d.Language, d.Source = lang, SourceURL
	return true
}

// BaseLanguage returns the lowercase base language of a BCP 47 tag.
// Empty, undetermined ("und") and multiple-language ("mul") tags are not
// conclusive and return false.
func BaseLanguage(tag string) (string, bool) {
	tag = strings.TrimSpace(strings.ReplaceAll(tag, "_", "-"))
	if tag == "" {
		return "", false
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", false
	}
	// An unspecified base is guessed by Base with less than Exact confidence.
	base, conf := t.Base()
	if conf != language.Exact {
		return "", false
	}
	s := base.String()
	if s == "und" || s == "mul" || s == "zxx" {
		return "", false
	}
	return s, true
}

// headerLanguage reads a Content-Language header. A header naming several
// different languages is ambiguous.
func headerLanguage(header string) (string, bool) {
	var found string
	for _, part := range strings.Split(header, ",") {
		lang, ok := BaseLanguage(part)
		if !ok {
			continue
		}
		if found != "" && found != lang {
			return "", false
		}
		found = lang
	}
	return found, found != ""
}
