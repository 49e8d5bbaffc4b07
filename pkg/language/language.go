// Package language normalises the language names found in source CSV files
// and detects the language of untagged text.
package language

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// English is the default extraction language.
const English = "English"

// ErrUnsupported is returned for a language name lingua does not know.
var ErrUnsupported = errors.New("unsupported language")

// aliases maps Spanish-language tags used by some source corpora to the
// English names the stopword registry is keyed by.
var aliases = map[string]string{
	"Inglés":  "English",
	"Español": "Spanish",
	"Francés": "French",
}

// Normalize maps a known alias to its canonical name and returns any other
// name unchanged, apart from surrounding whitespace.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

// Detector guesses the language of a text among a fixed set of candidates.
// It is safe for concurrent use.
type Detector struct {
	detector lingua.LanguageDetector
	names    map[lingua.Language]string
}

// NewDetector builds a Detector restricted to names, which must be lingua
// language names such as "English" or "Welsh". At least two are required.
func NewDetector(names []string) (*Detector, error) {
	known := make(map[string]lingua.Language)
	for _, l := range lingua.AllLanguages() {
		known[strings.ToLower(l.String())] = l
	}

	langs := make([]lingua.Language, 0, len(names))
	byLang := make(map[lingua.Language]string, len(names))
	for _, name := range names {
		l, ok := known[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
		}
		if _, dup := byLang[l]; dup {
			continue
		}
		langs = append(langs, l)
		byLang[l] = name
	}
	if len(langs) < 2 {
		return nil, fmt.Errorf("language detection needs at least 2 languages, got %d", len(langs))
	}

	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		Build()

	return &Detector{detector: d, names: byLang}, nil
}

// Detect returns the candidate name for text. ok is false when the text is
// too short or ambiguous to decide.
func (d *Detector) Detect(text string) (name string, ok bool) {
	l, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	name, ok = d.names[l]
	return name, ok
}
