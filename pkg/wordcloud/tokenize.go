package wordcloud

import (
	"strings"
	"unicode"
)

// isWordRune reports whether r belongs to a token: letters, numbers,
// underscore and hyphen.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || r == '-'
}

// Tokenize splits text on every rune that is not a word rune and returns
// the lowercased tokens in their original order. Empty pieces are dropped
// and duplicates are kept.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}
