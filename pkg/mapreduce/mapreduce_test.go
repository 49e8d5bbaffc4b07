package mapreduce

import (
	"reflect"
	"testing"

	"github.com/dtnitsch/lilypads/pkg/wordcloud"
)

func TestMap(t *testing.T) {
	r := wordcloud.NewResult()
	r.Set("new york", wordcloud.Score{Frequency: 3, Adjusted: 3})
	r.Set("york", wordcloud.Score{Frequency: 4, Adjusted: 1.5})

	got := Map(r)
	want := map[string]int{"new york": 3, "york": 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Map() = %v, want %v", got, want)
	}
}

func TestReduce(t *testing.T) {
	got := Reduce([]map[string]int{
		{"harbour": 2, "ship": 1},
		{"harbour": 3},
		{},
	})
	want := map[string]int{"harbour": 5, "ship": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Reduce() = %v, want %v", got, want)
	}
}

func TestTopKeywords(t *testing.T) {
	counts := map[string]int{"beta": 2, "alpha": 2, "gamma": 5, "delta": 1}

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"top two", 2, []string{"gamma:5", "alpha:2"}},
		{"ties by phrase", 3, []string{"gamma:5", "alpha:2", "beta:2"}},
		{"n larger than map", 10, []string{"gamma:5", "alpha:2", "beta:2", "delta:1"}},
		{"zero", 0, []string{}},
		{"negative", -1, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopKeywords(counts, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopKeywords(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}
