// Package wordcloud extracts ranked 1-, 2- and 3-gram phrases from a
// document for wordcloud display.
//
// Extraction runs in five steps:
//
//   - tokenize: lowercase, split on anything that is not a letter, number,
//     underscore or hyphen;
//   - generate n-grams for n = 1, 2, 3, skipping windows with a stopword at
//     either edge;
//   - count n-grams, ignoring those made only of single-rune tokens;
//   - penalize unigrams that take part in frequent longer phrases, so "new"
//     and "york" sink when "new york" is common;
//   - keep the best Cap phrases and force in any requested extra words.
//
// Every sort is stable over first-seen order (unigrams in text order, then
// bigrams, then trigrams), so identical input always yields an identical
// Result.
//
// An Extractor holds only read-only configuration and is safe for
// concurrent use.
package wordcloud

import (
	"cmp"
	"slices"
	"strings"
)

const (
	// DefaultCap is the maximum number of ranked phrases in a Result.
	DefaultCap = 2000

	// PenaltyIncrement is added to a token's penalty for every top phrase
	// it appears in.
	PenaltyIncrement = 0.5
)

// Stopwords classifies tokens. stopwords.Set implements it.
type Stopwords interface {
	IsStopword(token string) bool
}

// Options configures an Extractor.
type Options struct {
	// Cap limits the ranked part of the result. Zero means DefaultCap.
	Cap int
	// ExtraWords are unigrams forced into every result in which they occur.
	ExtraWords []string
}

// Extractor turns document text into a Result.
type Extractor struct {
	cap   int
	extra []string
}

// NewExtractor returns an Extractor for opts.
func NewExtractor(opts Options) *Extractor {
	c := opts.Cap
	if c <= 0 {
		c = DefaultCap
	}

	extra := make([]string, 0, len(opts.ExtraWords))
	for _, w := range opts.ExtraWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			extra = append(extra, w)
		}
	}

	return &Extractor{cap: c, extra: extra}
}

// Cap returns the configured result cap.
func (e *Extractor) Cap() int {
	return e.cap
}

// Extract tokenizes text and ranks its phrases using stops as the
// language's stopword classifier.
func (e *Extractor) Extract(text string, stops Stopwords) *Result {
	return e.ExtractTokens(Tokenize(text), stops)
}

// ExtractTokens ranks the phrases of an already tokenized document.
func (e *Extractor) ExtractTokens(tokens []string, stops Stopwords) *Result {
	table := count(tokens, stops)
	return e.rank(table)
}

// count builds the frequency table for n = 1..MaxN, in that order.
func count(tokens []string, stops Stopwords) *frequencyTable {
	table := newFrequencyTable(len(tokens) * MaxN)
	for n := 1; n <= MaxN; n++ {
		for _, g := range Ngrams(tokens, n, stops) {
			table.add(g)
		}
	}
	return table
}

type scored struct {
	entry
	adjusted float64
}

func (e *Extractor) rank(table *frequencyTable) *Result {
	result := NewResult()
	if table.len() == 0 {
		return result
	}

	// Pass 1: raw frequency decides which phrases hand out penalties.
	byFreq := slices.Clone(table.entries)
	slices.SortStableFunc(byFreq, func(a, b entry) int {
		return cmp.Compare(b.freq, a.freq)
	})

	penalties := make(map[Ngram]float64)
	for _, en := range byFreq[:min(2*e.cap, len(byFreq))] {
		if en.gram.Len() < 2 {
			continue
		}
		for _, tok := range en.gram.tokens[:en.gram.n] {
			penalties[NewNgram(tok)] += PenaltyIncrement
		}
	}

	// Pass 2: only unigrams carry a penalty, since the penalty table is
	// keyed by single tokens.
	ranked := make([]scored, len(table.entries))
	for i, en := range table.entries {
		ranked[i] = scored{entry: en, adjusted: en.freq - penalties[en.gram]}
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		return cmp.Compare(b.adjusted, a.adjusted)
	})

	for _, s := range ranked[:min(e.cap, len(ranked))] {
		if s.adjusted <= 0 {
			continue
		}
		result.Set(s.gram.String(), Score{Frequency: s.freq, Adjusted: s.adjusted})
	}

	for _, w := range e.extra {
		en, ok := table.lookup(NewNgram(w))
		if !ok || result.Has(w) {
			continue
		}
		result.Set(w, Score{Frequency: en.freq, Adjusted: en.freq})
	}

	return result
}
