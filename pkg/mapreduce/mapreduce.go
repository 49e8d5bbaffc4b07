package mapreduce

import "github.com/dtnitsch/lilypads/pkg/wordcloud"

// Map turns one article's wordcloud into phrase frequencies.
func Map(r *wordcloud.Result) map[string]int {
	counts := make(map[string]int, r.Len())
	for phrase, score := range r.All() {
		counts[phrase] = int(score.Frequency)
	}
	return counts
}

// Reduce aggregates a slice of phrase frequency maps into a single map.
func Reduce(intermediate []map[string]int) map[string]int {
	finalResults := make(map[string]int)

	for _, counts := range intermediate {
		for word, count := range counts {
			finalResults[word] += count
		}
	}

	return finalResults
}
