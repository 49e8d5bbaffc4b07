// Package geolocation loads the place-id keyed geocoding results that
// articles refer to through their place_id column.
package geolocation

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"
)

var (
	// ErrNotFound is returned for a place id absent from the store.
	ErrNotFound = errors.New("geolocation not found")
	// ErrNoLocation is returned when an entry lacks geometry.location.
	ErrNoLocation = errors.New("geolocation has no coordinates")
)

// Store holds raw geolocation entries keyed by place id.
type Store struct {
	entries map[string]json.RawMessage
	files   int
}

// NewStore returns a Store over entries.
func NewStore(entries map[string]json.RawMessage) *Store {
	if entries == nil {
		entries = make(map[string]json.RawMessage)
	}
	return &Store{entries: entries}
}

// LoadDir merges every *.json and *.json.gz file in dir.
func LoadDir(dir string) (*Store, error) {
	return LoadFS(os.DirFS(dir))
}

// LoadFS merges every *.json and *.json.gz regular file at the root of fsys.
// Files are read in lexical order and later files override earlier keys.
func LoadFS(fsys fs.FS) (*Store, error) {
	dirEntries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read geolocation directory: %w", err)
	}

	names := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") || strings.HasSuffix(e.Name(), ".json.gz") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	s := NewStore(nil)
	for _, name := range names {
		if err := s.mergeFile(fsys, name); err != nil {
			return nil, err
		}
		s.files++
	}
	return s, nil
}

func (s *Store) mergeFile(fsys fs.FS, name string) error {
	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(name, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to decompress %s: %w", name, err)
		}
		defer zr.Close()
		r = zr
	}

	var part map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&part); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	for k, v := range part {
		s.entries[k] = v
	}
	return nil
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Files returns how many files LoadFS merged.
func (s *Store) Files() int {
	return s.files
}

// Get returns the raw entry for placeID.
func (s *Store) Get(placeID string) (json.RawMessage, bool) {
	raw, ok := s.entries[placeID]
	return raw, ok
}

// Location returns the coordinates stored for placeID.
func (s *Store) Location(placeID string) (lat, lng float64, err error) {
	raw, ok := s.entries[placeID]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrNotFound, placeID)
	}
	return Coordinates(raw)
}

type entry struct {
	Geometry *struct {
		Location *struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// Coordinates reads geometry.location.{lat,lng} from a raw entry.
func Coordinates(raw json.RawMessage) (lat, lng float64, err error) {
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return 0, 0, fmt.Errorf("failed to decode geolocation: %w", err)
	}
	if e.Geometry == nil || e.Geometry.Location == nil ||
		e.Geometry.Location.Lat == nil || e.Geometry.Location.Lng == nil {
		return 0, 0, ErrNoLocation
	}
	return *e.Geometry.Location.Lat, *e.Geometry.Location.Lng, nil
}
