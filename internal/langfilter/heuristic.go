package langfilter

import (
	"strings"
	"unicode"
)

// Detector classifies the dominant language of a text. ok is false when
// the evidence is too thin to decide.
type Detector interface {
	Detect(text string) (lang string, ok bool)
}

// Heuristic thresholds.
const (
	// minFunctionWords is the number of function-word hits the winning
	// language needs.
	minFunctionWords = 5

	// dominance is how many times more hits the winner needs than the runner-up.
	dominance = 2

	// minScriptLetters is the number of letters needed before a non-Latin
	// script can decide.
	minScriptLetters = 20

	// maxTokens bounds the work done per page.
	maxTokens = 2000
)

// functionWords are frequent short words that are rare in other languages.
// Words shared between languages of the table are left out.
var functionWords = map[string][]string{
	"en": {"the", "and", "of", "to", "is", "that", "for", "with", "are", "this", "was", "be", "by", "from", "have", "which", "will", "or", "our", "you"},
	"es": {"el", "los", "las", "del", "y", "que", "por", "para", "una", "es", "con", "su", "al", "como", "más", "pero", "sus", "está"},
	"fr": {"le", "les", "des", "et", "est", "une", "du", "dans", "pour", "qui", "sur", "au", "avec", "ce", "sont", "pas", "vous", "nous"},
	"de": {"der", "die", "das", "und", "ist", "nicht", "mit", "den", "dem", "ein", "eine", "auf", "für", "sich", "auch", "wird", "sind", "zu"},
	"it": {"il", "della", "che", "di", "per", "gli", "sono", "nel", "alla", "non", "questo", "delle", "anche", "è", "lo"},
	"pt": {"os", "não", "uma", "com", "dos", "das", "ao", "são", "também", "pelo", "pela", "você", "em", "seu"},
	"nl": {"het", "een", "van", "en", "niet", "zijn", "voor", "met", "ook", "wordt", "bij", "naar", "deze", "uit"},
	"tl": {"ang", "ng", "mga", "sa", "ay", "ito", "kung", "hindi", "namin", "ninyo", "po", "upang"},
}

// functionWordIndex maps each word to the languages that list it.
var functionWordIndex = func() map[string][]string {
	idx := make(map[string][]string)
	for lang, words := range functionWords {
		for _, w := range words {
			idx[w] = append(idx[w], lang)
		}
	}
	return idx
}()

// scriptLanguages maps writing systems to the language they most likely carry.
var scriptLanguages = []struct {
	table *unicode.RangeTable
	lang  string
}{
	{unicode.Hiragana, "ja"},
	{unicode.Katakana, "ja"},
	{unicode.Hangul, "ko"},
	{unicode.Han, "zh"},
	{unicode.Cyrillic, "ru"},
	{unicode.Arabic, "ar"},
	{unicode.Greek, "el"},
	{unicode.Hebrew, "he"},
	{unicode.Devanagari, "hi"},
	{unicode.Bengali, "bn"},
	{unicode.Thai, "th"},
}

// FunctionWordDetector guesses a language from its script, then from the
// frequency of function words.
type FunctionWordDetector struct{}

// NewFunctionWordDetector returns the default Detector.
func NewFunctionWordDetector() *FunctionWordDetector {
	return &FunctionWordDetector{}
}

// Detect implements Detector.
func (FunctionWordDetector) Detect(text string) (string, bool) {
	if lang, ok := detectScript(text); ok {
		return lang, true
	}
	return detectFunctionWords(text)
}

// detectScript decides when most letters are in one non-Latin script.
// Japanese text mixes kana and Han, so any kana wins over Han.
func detectScript(text string) (string, bool) {
	counts := make(map[string]int)
	var letters, kana int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		for _, s := range scriptLanguages {
			if unicode.Is(s.table, r) {
				counts[s.lang]++
				if s.lang == "ja" {
					kana++
				}
				break
			}
		}
	}
	if letters < minScriptLetters {
		return "", false
	}

	if kana > 0 && counts["ja"]+counts["zh"] > letters/2 {
		return "ja", true
	}
	for lang, n := range counts {
		if n > letters/2 {
			return lang, true
		}
	}
	return "", false
}

func detectFunctionWords(text string) (string, bool) {
	scores := make(map[string]int)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}
	for _, tok := range tokens {
		for _, lang := range functionWordIndex[tok] {
			scores[lang]++
		}
	}

	var best, second int
	var winner string
	for lang, n := range scores {
		switch {
		case n > best:
			second = best
			best, winner = n, lang
		case n > second:
			second = n
		}
	}
	if best < minFunctionWords || best < dominance*second {
		return "", false
	}
	return winner, true
}
