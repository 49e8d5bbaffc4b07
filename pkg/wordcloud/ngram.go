package wordcloud

import (
	"strings"
	"unicode/utf8"
)

// MaxN is the length of the longest n-gram that is counted.
const MaxN = 3

// minTokenRunes is the length a token needs for an n-gram to be counted.
// An n-gram is only dropped when all of its tokens are shorter.
const minTokenRunes = 2

// Ngram is an ordered run of one to MaxN tokens. It is a comparable value
// and is used directly as a map key.
type Ngram struct {
	tokens [MaxN]string
	n      int
}

// NewNgram builds an Ngram from one to MaxN tokens. It panics on any other
// length, which is always a programming error.
func NewNgram(tokens ...string) Ngram {
	if len(tokens) == 0 || len(tokens) > MaxN {
		panic("wordcloud: n-gram must have 1 to 3 tokens")
	}
	var g Ngram
	g.n = copy(g.tokens[:], tokens)
	return g
}

// Len returns the number of tokens.
func (g Ngram) Len() int {
	return g.n
}

// Tokens returns a copy of the tokens.
func (g Ngram) Tokens() []string {
	out := make([]string, g.n)
	copy(out, g.tokens[:g.n])
	return out
}

// String joins the tokens with single spaces.
func (g Ngram) String() string {
	return strings.Join(g.tokens[:g.n], " ")
}

// allShort reports whether every token is shorter than minTokenRunes.
func (g Ngram) allShort() bool {
	for _, t := range g.tokens[:g.n] {
		if utf8.RuneCountInString(t) >= minTokenRunes {
			return false
		}
	}
	return true
}

// Ngrams slides a window of size n over tokens and returns the windows
// that pass the stopword boundary rule: neither the first nor the last
// token may be a stopword, and for n > 1 fewer than n-1 tokens may be
// stopwords. A nil stops disables stopword filtering.
func Ngrams(tokens []string, n int, stops Stopwords) []Ngram {
	if n < 1 || n > MaxN || len(tokens) < n {
		return nil
	}

	isStop := make([]bool, len(tokens))
	if stops != nil {
		for i, t := range tokens {
			isStop[i] = stops.IsStopword(t)
		}
	}

	grams := make([]Ngram, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		flags := isStop[i : i+n]
		if flags[0] || flags[n-1] {
			continue
		}
		if n > 1 && countTrue(flags) >= n-1 {
			continue
		}
		grams = append(grams, NewNgram(tokens[i:i+n]...))
	}
	return grams
}

func countTrue(flags []bool) int {
	c := 0
	for _, f := range flags {
		if f {
			c++
		}
	}
	return c
}

// frequencyTable counts n-grams and remembers the order in which each was
// first seen. That order is the tie-break for every ranking step.
type frequencyTable struct {
	index   map[Ngram]int
	entries []entry
}

type entry struct {
	gram Ngram
	freq float64
}

func newFrequencyTable(sizeHint int) *frequencyTable {
	return &frequencyTable{
		index:   make(map[Ngram]int, sizeHint),
		entries: make([]entry, 0, sizeHint),
	}
}

// add counts one sighting of g. N-grams made only of single-rune tokens
// are ignored.
func (ft *frequencyTable) add(g Ngram) {
	if g.allShort() {
		return
	}
	if i, ok := ft.index[g]; ok {
		ft.entries[i].freq++
		return
	}
	ft.index[g] = len(ft.entries)
	ft.entries = append(ft.entries, entry{gram: g, freq: 1.0})
}

func (ft *frequencyTable) lookup(g Ngram) (entry, bool) {
	i, ok := ft.index[g]
	if !ok {
		return entry{}, false
	}
	return ft.entries[i], true
}

func (ft *frequencyTable) len() int {
	return len(ft.entries)
}
