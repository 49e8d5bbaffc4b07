package manifest

import (
	"fmt"
	"io"
	"time"

	"github.com/dtnitsch/lilypads/pkg/convert"
	"github.com/dtnitsch/lilypads/pkg/mapreduce"
	"github.com/dtnitsch/lilypads/pkg/storage"
	"gopkg.in/yaml.v3"
)

// TopPhraseCount is how many aggregated phrases a report lists.
const TopPhraseCount = 25

// Generate builds the report for a written dataset.
func Generate(ds *convert.Dataset, name, output string, sizeBytes int64) *Report {
	report := &Report{
		GeneratedAt:  time.Now().Format(time.RFC3339),
		Dataset:      name,
		Output:       output,
		Articles:     len(ds.Articles),
		Geolocations: len(ds.Geolocations),
		SizeBytes:    sizeBytes,
		Languages:    make(map[string]int),
	}

	intermediate := make([]map[string]int, 0, len(ds.Articles))
	for _, a := range ds.Articles {
		report.Languages[a.Language]++
		if a.Wordcounts != nil {
			intermediate = append(intermediate, mapreduce.Map(a.Wordcounts))
		}
	}
	report.TopPhrases = mapreduce.TopKeywords(mapreduce.Reduce(intermediate), TopPhraseCount)

	return report
}

// Write encodes the report as YAML.
func (r *Report) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return enc.Close()
}

// Save writes the report to path.
func (r *Report) Save(s *storage.Storage, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := s.SaveFile(path, data); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}
