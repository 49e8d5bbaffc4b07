package geolocation

import (
	"bytes"
	"compress/gzip"
	"errors"
	"testing"
	"testing/fstest"
)

func gzipped(t *testing.T, s string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("failed to gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return buf.Bytes()
}

func TestLoadFS_Merge(t *testing.T) {
	fsys := fstest.MapFS{
		"a.json":     {Data: []byte(`{"p1": {"geometry": {"location": {"lat": 1.5, "lng": 2.5}}}, "p2": {"name": "old"}}`)},
		"b.json.gz":  {Data: gzipped(t, `{"p2": {"geometry": {"location": {"lat": -3, "lng": 4}}}}`)},
		"c.txt":      {Data: []byte(`not json`)},
		"d.json.bak": {Data: []byte(`not json`)},
	}

	s, err := LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}

	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if s.Files() != 2 {
		t.Errorf("Files() = %d, want 2", s.Files())
	}

	lat, lng, err := s.Location("p1")
	if err != nil || lat != 1.5 || lng != 2.5 {
		t.Errorf("Location(p1) = %v, %v, %v; want 1.5, 2.5, nil", lat, lng, err)
	}

	// b.json.gz sorts after a.json and overrides p2.
	lat, lng, err = s.Location("p2")
	if err != nil || lat != -3 || lng != 4 {
		t.Errorf("Location(p2) = %v, %v, %v; want -3, 4, nil", lat, lng, err)
	}
}

func TestLoadFS_InvalidJSON(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.json": {Data: []byte(`{"p1": `)},
	}
	if _, err := LoadFS(fsys); err == nil {
		t.Error("LoadFS() error = nil, want decode error")
	}
}

func TestLoadFS_Empty(t *testing.T) {
	s, err := LoadFS(fstest.MapFS{})
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestLocation_Errors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"no geometry", `{"name": "x"}`, ErrNoLocation},
		{"no lng", `{"geometry": {"location": {"lat": 1}}}`, ErrNoLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Coordinates([]byte(tt.raw))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Coordinates() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, _, err := NewStore(nil).Location("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Location(missing) error = %v, want %v", err, ErrNotFound)
	}
}

func TestCoordinates_ZeroIsValid(t *testing.T) {
	lat, lng, err := Coordinates([]byte(`{"geometry": {"location": {"lat": 0, "lng": 0}}}`))
	if err != nil {
		t.Fatalf("Coordinates() error = %v", err)
	}
	if lat != 0 || lng != 0 {
		t.Errorf("Coordinates() = %v, %v; want 0, 0", lat, lng)
	}
}
