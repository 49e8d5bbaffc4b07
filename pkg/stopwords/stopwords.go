// Package stopwords loads per-language stopword lists and classifies tokens.
//
// A Registry is populated once at start-up and is read-only afterwards, so
// it can be shared between goroutines without locking. Lookups of a
// language that was not loaded fail, which lets callers resolve every
// language they need before any text is processed.
package stopwords

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"unicode"
)

// ErrMissing is returned when no stopword data exists for a language.
var ErrMissing = errors.New("no stopword data for language")

// DefaultLanguages maps the language names used in datasets to the
// ISO 639-1 code of their stopword file.
var DefaultLanguages = map[string]string{
	"German":  "de",
	"English": "en",
	"French":  "fr",
	"Swedish": "sv",
	"Finnish": "fi",
	"Dutch":   "nl",
	"Spanish": "es",
	"Welsh":   "cy",
	"Italian": "it",
	"Polish":  "pl",
}

// FileName returns the stopword file name for an ISO 639-1 code.
// Example: en -> stopwords.en.txt
func FileName(code string) string {
	return fmt.Sprintf("stopwords.%s.txt", code)
}

// Set is an immutable set of stopwords for one language.
type Set struct {
	words map[string]struct{}
}

// NewSet builds a Set from the given words.
func NewSet(words ...string) Set {
	s := Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w != "" {
			s.words[w] = struct{}{}
		}
	}
	return s
}

// Parse reads one stopword per line. Surrounding whitespace is trimmed and
// blank lines are ignored.
func Parse(r io.Reader) (Set, error) {
	s := Set{words: make(map[string]struct{}, 256)}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.Trim(scanner.Text(), " \n\r\f\t")
		if word == "" {
			continue
		}
		s.words[word] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return Set{}, fmt.Errorf("failed to read stopwords: %w", err)
	}
	return s, nil
}

// Contains reports whether word is in the set.
func (s Set) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Len returns the number of stopwords in the set.
func (s Set) Len() int {
	return len(s.words)
}

// IsStopword reports whether token is all digits or a member of the set.
func (s Set) IsStopword(token string) bool {
	return isNumber(token) || s.Contains(token)
}

func isNumber(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Registry holds the stopword sets of every loaded language.
type Registry struct {
	sets map[string]Set
}

// NewRegistry builds a Registry from ready-made sets. Mostly useful in tests.
func NewRegistry(sets map[string]Set) *Registry {
	r := &Registry{sets: make(map[string]Set, len(sets))}
	for name, set := range sets {
		r.sets[name] = set
	}
	return r
}

// Load reads stopwords.<code>.txt from fsys for every language in
// languages (name -> ISO 639-1 code). A missing file is an error wrapping
// ErrMissing; nothing is silently skipped.
func Load(fsys fs.FS, languages map[string]string) (*Registry, error) {
	r := &Registry{sets: make(map[string]Set, len(languages))}

	for name, code := range languages {
		fn := FileName(code)
		f, err := fsys.Open(fn)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s (%s)", ErrMissing, name, fn)
			}
			return nil, fmt.Errorf("failed to open %s: %w", fn, err)
		}

		set, err := Parse(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", fn, err)
		}
		r.sets[name] = set
	}

	return r, nil
}

// Lookup returns the stopword set of a language.
func (r *Registry) Lookup(language string) (Set, error) {
	set, ok := r.sets[language]
	if !ok {
		return Set{}, fmt.Errorf("%w: %s", ErrMissing, language)
	}
	return set, nil
}

// Languages returns the loaded language names, sorted.
func (r *Registry) Languages() []string {
	names := make([]string, 0, len(r.sets))
	for name := range r.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
