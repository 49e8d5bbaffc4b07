// Package dataset loads converted LilyPads artifacts and decides which
// principals may read them.
package dataset

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dtnitsch/lilypads/pkg/geolocation"
	"github.com/dtnitsch/lilypads/pkg/storage"
)

var (
	ErrNotFound        = errors.New("dataset not found")
	ErrForbidden       = errors.New("dataset access forbidden")
	ErrArticleNotFound = errors.New("article not found")
)

// Authorize reports whether any of the principal's roles is one of the
// required roles.
func Authorize(principalRoles, requiredRoles []string) bool {
	for _, r := range requiredRoles {
		if slices.Contains(principalRoles, r) {
			return true
		}
	}
	return false
}

// Dataset is one loaded artifact.
type Dataset struct {
	Key   string
	Name  string
	Roles []string

	// Compressed is the artifact as stored on disk, Raw its JSON content.
	Compressed []byte
	Raw        []byte
	// CompressedETag and RawETag are strong validators for the two bodies.
	CompressedETag string
	RawETag        string

	articles     map[int]json.RawMessage
	geolocations map[string]json.RawMessage
}

// Allowed reports whether a principal holding roles may read d.
func (d *Dataset) Allowed(roles []string) bool {
	return Authorize(roles, d.Roles)
}

// Len returns the number of articles.
func (d *Dataset) Len() int {
	return len(d.articles)
}

type artifact struct {
	Articles     []json.RawMessage          `json:"articles"`
	Geolocations map[string]json.RawMessage `json:"geolocations"`
	Metadata     struct {
		Name  string   `json:"name"`
		Roles []string `json:"roles"`
	} `json:"metadata"`
}

// Parse builds a Dataset from a gzip-compressed artifact.
func Parse(key string, compressed []byte) (*Dataset, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	raw = bytes.TrimRight(raw, "\n")

	var a artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}

	d := &Dataset{
		Key:            key,
		Name:           a.Metadata.Name,
		Roles:          a.Metadata.Roles,
		Compressed:     compressed,
		Raw:            raw,
		CompressedETag: etag(compressed),
		RawETag:        etag(raw),
		articles:       make(map[int]json.RawMessage, len(a.Articles)),
		geolocations:   a.Geolocations,
	}

	for i, art := range a.Articles {
		var idx struct {
			Index *int `json:"Index"`
		}
		if err := json.Unmarshal(art, &idx); err != nil {
			return nil, fmt.Errorf("failed to decode article %d: %w", i, err)
		}
		if idx.Index == nil {
			return nil, fmt.Errorf("article %d has no Index", i)
		}
		d.articles[*idx.Index] = art
	}

	return d, nil
}

func etag(b []byte) string {
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// Article is the view of one article shown on its detail page.
type Article struct {
	Date      string
	Location  string
	Newspaper string
	Text      string
	URL       string
	Coords    [2]float64
}

// Article returns the article with the given Index.
func (d *Dataset) Article(index int) (*Article, error) {
	raw, ok := d.articles[index]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrArticleNotFound, index)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode article %d: %w", index, err)
	}
	str := func(k string) string {
		v, ok := fields[k]
		if !ok || v == nil {
			return ""
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}

	a := &Article{
		Date:      str("Date"),
		Location:  str("Location"),
		Newspaper: str("Title (Newspaper)"),
		Text:      str("Text"),
		URL:       str("Link"),
	}

	placeID := str("place_id")
	geo, ok := d.geolocations[placeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", geolocation.ErrNotFound, placeID)
	}
	lat, lng, err := geolocation.Coordinates(geo)
	if err != nil {
		return nil, fmt.Errorf("article %d: %w", index, err)
	}
	a.Coords = [2]float64{lat, lng}

	return a, nil
}

// Catalog holds every loaded dataset in load order.
type Catalog struct {
	datasets []*Dataset
	byKey    map[string]*Dataset
}

// NewCatalog returns a Catalog over datasets.
func NewCatalog(datasets ...*Dataset) *Catalog {
	c := &Catalog{byKey: make(map[string]*Dataset, len(datasets))}
	for _, d := range datasets {
		c.datasets = append(c.datasets, d)
		c.byKey[d.Key] = d
	}
	return c
}

// LoadDir loads every *.gz regular file in dir. The key of a dataset is its
// file name without the .gz suffix.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	s := &storage.Storage{}
	var datasets []*Dataset
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".gz") {
			continue
		}
		data, err := s.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		d, err := Parse(strings.TrimSuffix(e.Name(), ".gz"), data)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", e.Name(), err)
		}
		datasets = append(datasets, d)
	}

	return NewCatalog(datasets...), nil
}

// Len returns the number of datasets.
func (c *Catalog) Len() int {
	return len(c.datasets)
}

// Get returns the dataset with key if roles allow reading it.
func (c *Catalog) Get(key string, roles []string) (*Dataset, error) {
	d, ok := c.byKey[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if !d.Allowed(roles) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, key)
	}
	return d, nil
}

// Allowed returns the datasets roles may read, in load order.
func (c *Catalog) Allowed(roles []string) []*Dataset {
	var out []*Dataset
	for _, d := range c.datasets {
		if d.Allowed(roles) {
			out = append(out, d)
		}
	}
	return out
}
