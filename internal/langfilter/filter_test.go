package langfilter

import (
	"errors"
	"strings"
	"testing"
)

const (
	englishText = "The town council meets on the first Monday of each month. Residents are welcome to attend and to speak during the public comment period. Agendas for the meetings are posted at the town hall and on this website."
	frenchText  = "Le conseil municipal se réunit le premier lundi de chaque mois. Les résidents sont invités à assister aux séances et à prendre la parole pendant la période des commentaires. Les ordres du jour sont affichés dans le hall."
	spanishText = "El consejo municipal se reúne el primer lunes de cada mes. Los residentes están invitados a asistir a las reuniones y a hablar durante el periodo de comentarios del público para que todos participen."
)

func TestNew(t *testing.T) {
	t.Parallel()

	f, err := New("en-US", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Target() != "en" {
		t.Errorf("expected target en, got %q", f.Target())
	}

	for _, bad := range []string{"", "und", "not a language"} {
		if _, err := New(bad, true); !errors.Is(err, ErrInvalidLanguage) {
			t.Errorf("New(%q): expected ErrInvalidLanguage, got %v", bad, err)
		}
	}
}

func TestDecide(t *testing.T) {
	t.Parallel()

	f, err := New("en", true)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		in       Input
		lang     string
		source   Source
		accepted bool
	}{
		{
			name:     "declared english",
			in:       Input{RawHTML: []byte(`<html lang="en-US"><body>` + frenchText + `</body></html>`), Text: frenchText, URL: "https://town.gov/about"},
			lang:     "en",
			source:   SourceDeclared,
			accepted: true,
		},
		{
			name:     "declared french rejected",
			in:       Input{RawHTML: []byte(`<html lang="fr"><body></body></html>`), Text: englishText, URL: "https://town.gov/fr/about"},
			lang:     "fr",
			source:   SourceDeclared,
			accepted: false,
		},
		{
			name:     "meta declaration",
			in:       Input{RawHTML: []byte(`<html><head><meta http-equiv="Content-Language" content="es"></head><body></body></html>`), URL: "https://town.gov/"},
			lang:     "es",
			source:   SourceDeclared,
			accepted: false,
		},
		{
			name:     "header declaration",
			in:       Input{RawHTML: []byte(`<p>x</p>`), ContentLanguage: "fr-CA", URL: "https://town.gov/"},
			lang:     "fr",
			source:   SourceDeclared,
			accepted: false,
		},
		{
			name:     "ambiguous header falls through to content",
			in:       Input{RawHTML: []byte(`<p>x</p>`), ContentLanguage: "en, fr", Text: englishText, URL: "https://town.gov/"},
			lang:     "en",
			source:   SourceContent,
			accepted: true,
		},
		{
			name:     "undetermined declaration falls through to content",
			in:       Input{RawHTML: []byte(`<html lang="und"><body></body></html>`), Text: frenchText, URL: "https://town.gov/"},
			lang:     "fr",
			source:   SourceContent,
			accepted: false,
		},
		{
			name:     "content spanish",
			in:       Input{RawHTML: []byte(`<p></p>`), Text: spanishText, URL: "https://town.gov/"},
			lang:     "es",
			source:   SourceContent,
			accepted: false,
		},
		{
			name:     "url hint when content is thin",
			in:       Input{RawHTML: []byte(`<p></p>`), Text: "Contacto", URL: "https://town.gov/es-mx/contacto"},
			lang:     "es",
			source:   SourceURL,
			accepted: false,
		},
		{
			name:     "unknown is accepted",
			in:       Input{RawHTML: []byte(`<p></p>`), Text: "Photos", URL: "https://town.gov/gallery"},
			lang:     "",
			source:   SourceUnknown,
			accepted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := f.Decide(tt.in)
			if d.Language != tt.lang || d.Source != tt.source || d.Accepted != tt.accepted {
				t.Errorf("expected {%s %s %v}, got %+v", tt.lang, tt.source, tt.accepted, d)
			}
		})
	}
}

func TestDecideDisabled(t *testing.T) {
	t.Parallel()

	f, err := New("en", false)
	if err != nil {
		t.Fatal(err)
	}
	d := f.Decide(Input{RawHTML: []byte(`<html lang="fr"></html>`), URL: "https://town.gov/fr/"})
	if !d.Accepted {
		t.Error("expected every page to be accepted when filtering is disabled")
	}
	if d.Language != "fr" {
		t.Errorf("expected language to still be reported, got %q", d.Language)
	}
}

type fixedDetector struct{ lang string }

func (d fixedDetector) Detect(string) (string, bool) { return d.lang, d.lang != "" }

func TestWithDetector(t *testing.T) {
	t.Parallel()

	f, err := New("de", true, WithDetector(fixedDetector{lang: "de-AT"}))
	if err != nil {
		t.Fatal(err)
	}
	d := f.Decide(Input{RawHTML: []byte(`<p></p>`), Text: "anything", URL: "https://town.gov/"})
	if d.Language != "de" || !d.Accepted {
		t.Errorf("expected custom detector result normalized to de, got %+v", d)
	}
}

func TestDeclaredLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
		ok   bool
	}{
		{"html lang", `<!DOCTYPE html><html lang="EN-gb">`, "en", true},
		{"xml lang", `<html xml:lang="de">`, "de", true},
		{"html lang wins over meta", `<html lang="en"><head><meta http-equiv="content-language" content="fr">`, "en", true},
		{"meta when html lang empty", `<html lang=""><head><meta http-equiv="content-language" content="fr">`, "fr", true},
		{"meta after body ignored", `<html><body><meta http-equiv="content-language" content="fr">`, "", false},
		{"no declaration", `<p>hello</p>`, "", false},
		{"multiple languages", `<html lang="mul">`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := DeclaredLanguage([]byte(tt.html))
			if got != tt.want || ok != tt.ok {
				t.Errorf("DeclaredLanguage() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFunctionWordDetector(t *testing.T) {
	t.Parallel()

	d := NewFunctionWordDetector()
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"english", englishText, "en", true},
		{"french", frenchText, "fr", true},
		{"spanish", spanishText, "es", true},
		{"german", "Der Gemeinderat tagt jeden Monat. Die Bürger sind eingeladen und können sich mit Fragen an den Rat wenden, der auch für die Stadt zuständig ist.", "de", true},
		{"russian", "Городской совет собирается в первый понедельник каждого месяца", "ru", true},
		{"japanese", "市議会は毎月第一月曜日に開催されます。どなたでも傍聴できます。", "ja", true},
		{"korean", "시의회는 매월 첫째 월요일에 열립니다 누구나 참석할 수 있습니다", "ko", true},
		{"too short", "Hello", "", false},
		{"no function words", "Parks Recreation Library Police Fire Water Sewer Permits Licenses Zoning", "", false},
		{"mixed", "the and of to is le les des et est", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := d.Detect(tt.text)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Detect() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestURLLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://town.gov/fr/about", "fr", true},
		{"https://town.gov/es-mx/contacto", "es", true},
		{"https://town.gov/pt_BR/", "pt", true},
		{"https://town.gov/home?oc_lang=es", "es", true},
		{"https://town.gov/home?Language=de", "de", true},
		{"https://town.gov/home?oc_lang=en%20us", "en", true},
		{"https://town.gov/?hl=ko", "ko", true},
		{"https://town.gov/about", "", false},
		{"https://town.gov/ab/cd", "", false},
		{"https://town.gov/services/permits", "", false},
		{"https://town.gov/home?page=fr", "", false},
		{"https://town.gov/services/fr/permits", "", false},
		{"https://town.gov/news/id/42", "", false},
		{"https://town.gov/it/helpdesk", "", false},
		{"https://town.gov/no/", "", false},
		{"https://town.gov/it-it/chi-siamo", "it", true},
		{"https://town.gov/id-id/tentang", "id", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			got, ok := URLLanguage(tt.url)
			if got != tt.want || ok != tt.ok {
				t.Errorf("URLLanguage(%q) = %q, %v; want %q, %v", tt.url, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestBaseLanguage(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"en":      "en",
		"EN-us":   "en",
		"fr_CA":   "fr",
		"zh-Hant": "zh",
		" es ":    "es",
	}
	for in, want := range tests {
		if got, ok := BaseLanguage(in); !ok || got != want {
			t.Errorf("BaseLanguage(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "und", "mul", "zxx", "!!", strings.Repeat("x", 20)} {
		if got, ok := BaseLanguage(in); ok {
			t.Errorf("BaseLanguage(%q) = %q, expected not conclusive", in, got)
		}
	}
}
