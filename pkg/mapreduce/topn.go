package mapreduce

import (
	"cmp"
	"fmt"
	"slices"
)

// Keyword is a phrase with its aggregated count.
type Keyword struct {
	Phrase string `yaml:"phrase"`
	Count  int    `yaml:"count"`
}

// Top returns the n most frequent phrases. Equal counts are ordered by
// phrase so the report is stable between runs.
func Top(wordCounts map[string]int, n int) []Keyword {
	ss := make([]Keyword, 0, len(wordCounts))
	for k, v := range wordCounts {
		ss = append(ss, Keyword{Phrase: k, Count: v})
	}

	slices.SortFunc(ss, func(a, b Keyword) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Phrase, b.Phrase)
	})

	return ss[:max(0, min(n, len(ss)))]
}

// TopKeywords returns the top N phrases formatted as "phrase:count"
// (e.g., "new york:153").
func TopKeywords(wordCounts map[string]int, n int) []string {
	top := Top(wordCounts, n)
	keywords := make([]string, len(top))
	for i, kw := range top {
		keywords[i] = fmt.Sprintf("%s:%d", kw.Phrase, kw.Count)
	}
	return keywords
}
