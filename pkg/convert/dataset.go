package convert

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dtnitsch/lilypads/pkg/storage"
	"github.com/dtnitsch/lilypads/pkg/wordcloud"
)

type field struct {
	name  string
	value any
}

// Article is one converted CSV row. It encodes as a JSON object holding the
// kept columns in CSV order followed by "wordcounts".
type Article struct {
	Index      int
	PlaceID    string
	Language   string
	Wordcounts *wordcloud.Result

	fields []field
	line   int
}

// Field returns the converted value of a column.
func (a *Article) Field(name string) (any, bool) {
	for _, f := range a.fields {
		if f.name == name {
			return f.value, true
		}
	}
	return nil, false
}

// MarshalJSON implements json.Marshaler.
func (a *Article) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, f := range a.fields {
		if err := writeMember(&buf, f.name, f.value); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	wc := a.Wordcounts
	if wc == nil {
		wc = wordcloud.NewResult()
	}
	if err := writeMember(&buf, "wordcounts", wc); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Place is a referenced geolocation entry.
type Place struct {
	ID  string
	Raw json.RawMessage
}

// Places encodes as a JSON object keyed by place id, in first-seen order.
type Places []Place

// MarshalJSON implements json.Marshaler.
func (p Places) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pl := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, pl.ID, pl.Raw); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Dataset is the complete artifact served by lilypads serve.
type Dataset struct {
	Articles     []*Article      `json:"articles"`
	Geolocations Places          `json:"geolocations"`
	Metadata     json.RawMessage `json:"metadata"`

	// Name is the dataset name from the metadata document.
	Name string `json:"-"`
}

// Encode writes d as gzip-compressed JSON at the best compression level.
// indent selects readable output.
func (d *Dataset) Encode(w io.Writer, indent bool) error {
	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	enc := json.NewEncoder(zw)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(d); err != nil {
		_ = zw.Close()
		return fmt.Errorf("failed to encode dataset: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return nil
}

// WriteFile encodes d and saves it to path. It returns the size of the
// artifact on disk.
func (d *Dataset) WriteFile(s *storage.Storage, path string, indent bool) (int64, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf, indent); err != nil {
		return 0, err
	}
	if err := s.SaveFile(path, buf.Bytes()); err != nil {
		return 0, err
	}
	stats, err := s.GetFileStats(path)
	if err != nil {
		return 0, err
	}
	return stats.SizeBytes, nil
}

// writeMember appends "key":value without HTML escaping.
func writeMember(buf *bytes.Buffer, key string, value any) error {
	if err := writeJSON(buf, key); err != nil {
		return err
	}
	buf.WriteByte(':')
	return writeJSON(buf, value)
}

func writeJSON(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
