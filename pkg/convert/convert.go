// Package convert turns a geolocated article CSV into a LilyPads dataset:
// every row becomes an article annotated with its wordcloud, the
// geolocations it references are copied alongside, and the whole bundle is
// written as gzip-compressed JSON.
package convert

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/dtnitsch/lilypads/pkg/geolocation"
	"github.com/dtnitsch/lilypads/pkg/language"
	"github.com/dtnitsch/lilypads/pkg/stopwords"
	"github.com/dtnitsch/lilypads/pkg/wordcloud"
)

// Required CSV columns besides the wordcloud field.
const (
	ColumnLanguage = "Language"
	ColumnPlaceID  = "place_id"
	ColumnIndex    = "Index"
)

var (
	ErrMissingColumn      = errors.New("missing column")
	ErrInvalidIndex       = errors.New("invalid Index")
	ErrUnknownLanguage    = errors.New("unknown language")
	ErrMissingGeolocation = errors.New("missing geolocation")
	ErrInvalidMetadata    = errors.New("invalid metadata")
)

// RowError reports the CSV line that stopped a conversion.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Options configures a Converter.
type Options struct {
	// WordcloudField is the column the wordcloud is computed from.
	WordcloudField string
	// Language selects the stopwords used for extraction.
	Language string
	// PerRowLanguage extracts each row with its own Language instead.
	PerRowLanguage bool
	// Detector fills in the Language of rows that have none.
	Detector *language.Detector
	// StripMarkup removes HTML tags from the wordcloud text.
	StripMarkup bool
	ExtraWords  []string
	// DropColumns are removed from the articles when present.
	DropColumns []string
	Workers     int
	Cap         int
}

// DefaultOptions returns the options used when no flags are given.
func DefaultOptions() Options {
	return Options{
		WordcloudField: "Text",
		Language:       language.English,
		DropColumns:    []string{"translated"},
		Workers:        runtime.NumCPU(),
		Cap:            wordcloud.DefaultCap,
	}
}

// Converter builds datasets. It is safe for concurrent use.
type Converter struct {
	opts      Options
	registry  *stopwords.Registry
	geo       *geolocation.Store
	extractor *wordcloud.Extractor
	stops     stopwords.Set
	logger    *slog.Logger
}

// New returns a Converter. The extraction language is resolved here so a
// missing stopword list fails before any row is read.
func New(registry *stopwords.Registry, geo *geolocation.Store, opts Options, logger *slog.Logger) (*Converter, error) {
	if opts.WordcloudField == "" {
		opts.WordcloudField = "Text"
	}
	if opts.Language == "" {
		opts.Language = language.English
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	c := &Converter{
		opts:     opts,
		registry: registry,
		geo:      geo,
		extractor: wordcloud.NewExtractor(wordcloud.Options{
			Cap:        opts.Cap,
			ExtraWords: opts.ExtraWords,
		}),
		logger: logger,
	}

	if !opts.PerRowLanguage {
		stops, err := registry.Lookup(opts.Language)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve extraction language: %w", err)
		}
		c.stops = stops
	}

	return c, nil
}

// header describes the column layout of the input.
type header struct {
	names    []string
	keep     []bool
	language int
	placeID  int
	index    int
	text     int
}

func (c *Converter) parseHeader(names []string) (*header, error) {
	if len(names) > 0 {
		names[0] = strings.TrimPrefix(names[0], "\ufeff")
	}

	h := &header{names: names, keep: make([]bool, len(names))}
	pos := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := pos[n]; !dup {
			pos[n] = i
		}
		h.keep[i] = true
	}
	for _, drop := range c.opts.DropColumns {
		for i, n := range names {
			if n == drop {
				h.keep[i] = false
			}
		}
	}

	lookup := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		return i, nil
	}

	var err error
	if h.language, err = lookup(ColumnLanguage); err != nil {
		return nil, err
	}
	if h.placeID, err = lookup(ColumnPlaceID); err != nil {
		return nil, err
	}
	if h.index, err = lookup(ColumnIndex); err != nil {
		return nil, err
	}
	if h.text, err = lookup(c.opts.WordcloudField); err != nil {
		return nil, err
	}
	return h, nil
}

// job is one CSV row waiting for extraction.
type job struct {
	pos    int
	line   int
	record []string
}

// result carries a built article back with its row position.
type result struct {
	pos     int
	line    int
	article *Article
	err     error
}

// Convert reads the CSV from r and builds the dataset described by
// metadata. Extraction runs on the configured number of workers and the
// articles keep the row order of the input. The first malformed row, in
// row order, aborts the conversion with a *RowError.
func (c *Converter) Convert(ctx context.Context, r io.Reader, metadata []byte) (*Dataset, error) {
	meta, err := parseMetadata(metadata)
	if err != nil {
		return nil, err
	}

	rd := csv.NewReader(r)
	rd.LazyQuotes = true
	names, err := rd.Read()
	if err != nil {
		return nil, &RowError{Line: 1, Err: fmt.Errorf("failed to read header: %w", err)}
	}
	h, err := c.parseHeader(names)
	if err != nil {
		return nil, &RowError{Line: 1, Err: err}
	}
	rd.FieldsPerRecord = len(names)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job)
	results := make(chan result)
	var wg sync.WaitGroup

	for w := 1; w <= c.opts.Workers; w++ {
		wg.Add(1)
		go c.worker(w, h, &wg, jobs, results)
	}

	// The reader feeds rows to the workers while the collector below
	// assembles results.
	var readErr error
	go func() {
		sent := 0
		defer close(jobs)
		for {
			record, err := rd.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				line := 0
				var pe *csv.ParseError
				if errors.As(err, &pe) {
					line = pe.Line
				}
				readErr = &RowError{Line: line, Err: err}
				return
			}
			line, _ := rd.FieldPos(0)
			select {
			case jobs <- job{pos: sent, line: line, record: record}:
				sent++
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	articles := make([]*Article, 0)
	var firstErr *result
	for res := range results {
		if res.err != nil {
			if firstErr == nil || res.pos < firstErr.pos {
				failed := res
				firstErr = &failed
			}
			cancel()
			continue
		}
		for len(articles) <= res.pos {
			articles = append(articles, nil)
		}
		articles[res.pos] = res.article
	}

	// results is closed only after the reader closed jobs, so readErr is
	// settled here. Rows after a read error were never sent, so a row error
	// always comes first.
	if firstErr != nil {
		return nil, &RowError{Line: firstErr.line, Err: firstErr.err}
	}
	if readErr != nil {
		return nil, readErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds := &Dataset{Articles: articles, Metadata: metadata, Name: meta.Name}
	seen := make(map[string]bool)
	for _, a := range articles {
		if seen[a.PlaceID] {
			continue
		}
		raw, ok := c.geo.Get(a.PlaceID)
		if !ok {
			return nil, &RowError{Line: a.line, Err: fmt.Errorf("%w: %s", ErrMissingGeolocation, a.PlaceID)}
		}
		seen[a.PlaceID] = true
		ds.Geolocations = append(ds.Geolocations, Place{ID: a.PlaceID, Raw: raw})
	}

	c.logger.Info("loaded articles",
		"dataset", meta.Name,
		"articles", len(ds.Articles),
		"geolocations", len(ds.Geolocations))

	return ds, nil
}

// worker builds articles from jobs and sends them to results.
func (c *Converter) worker(id int, h *header, wg *sync.WaitGroup, jobs <-chan job, results chan<- result) {
	defer wg.Done()
	for j := range jobs {
		a, err := c.buildArticle(h, j.record)
		if err != nil {
			c.logger.Debug("row rejected", "worker", id, "line", j.line, "error", err)
		}
		if a != nil {
			a.line = j.line
		}
		results <- result{pos: j.pos, line: j.line, article: a, err: err}
	}
}

func (c *Converter) buildArticle(h *header, record []string) (*Article, error) {
	index, err := strconv.Atoi(strings.TrimSpace(record[h.index]))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIndex, record[h.index])
	}

	text := record[h.text]
	if c.opts.StripMarkup {
		text = StripMarkup(text)
	}

	lang := language.Normalize(record[h.language])
	if lang == "" && c.opts.Detector != nil {
		if detected, ok := c.opts.Detector.Detect(text); ok {
			lang = detected
		}
	}

	stops := c.stops
	if c.opts.PerRowLanguage {
		stops, err = c.registry.Lookup(lang)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
		}
	}

	a := &Article{
		Index:      index,
		PlaceID:    record[h.placeID],
		Language:   lang,
		Wordcounts: c.extractor.Extract(text, stops),
	}
	for i, name := range h.names {
		if !h.keep[i] {
			continue
		}
		var v any = record[i]
		switch i {
		case h.index:
			v = index
		case h.language:
			v = lang
		}
		a.fields = append(a.fields, field{name: name, value: v})
	}
	return a, nil
}

// Metadata is the part of the metadata document the converter reads. All
// other keys pass through untouched.
type Metadata struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func parseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidMetadata)
	}
	return &m, nil
}
