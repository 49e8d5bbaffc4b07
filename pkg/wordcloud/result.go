package wordcloud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
)

// Score is a phrase's raw frequency and its penalty-adjusted score.
// It encodes as the JSON pair [frequency, adjusted].
type Score struct {
	Frequency float64
	Adjusted  float64
}

// MarshalJSON implements json.Marshaler.
func (s Score) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{s.Frequency, s.Adjusted})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Score) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("wordcloud score: %w", err)
	}
	s.Frequency, s.Adjusted = pair[0], pair[1]
	return nil
}

// Result maps display phrases to scores and keeps rank order. It encodes
// as a JSON object whose keys appear in that order.
type Result struct {
	keys   []string
	scores map[string]Score
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{scores: make(map[string]Score)}
}

// Set stores the score of key. A new key is appended after all existing ones.
func (r *Result) Set(key string, s Score) {
	if _, ok := r.scores[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.scores[key] = s
}

// Get returns the score of key.
func (r *Result) Get(key string) (Score, bool) {
	s, ok := r.scores[key]
	return s, ok
}

// Has reports whether key is present.
func (r *Result) Has(key string) bool {
	_, ok := r.scores[key]
	return ok
}

// Len returns the number of phrases.
func (r *Result) Len() int {
	return len(r.keys)
}

// Keys returns the phrases in rank order.
func (r *Result) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// All iterates over phrases and scores in rank order.
func (r *Result) All() iter.Seq2[string, Score] {
	return func(yield func(string, Score) bool) {
		for _, k := range r.keys {
			if !yield(k, r.scores[k]) {
				return
			}
		}
	}
}

// MarshalJSON implements json.Marshaler.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := r.scores[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving key order.
func (r *Result) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("wordcloud result: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("wordcloud result: expected object, got %v", tok)
	}

	r.keys = nil
	r.scores = make(map[string]Score)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("wordcloud result: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("wordcloud result: expected key, got %v", tok)
		}
		var s Score
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("wordcloud result %q: %w", key, err)
		}
		r.Set(key, s)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("wordcloud result: %w", err)
	}
	return nil
}
