package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dtnitsch/lilypads/pkg/convert"
	"github.com/dtnitsch/lilypads/pkg/geolocation"
	"github.com/dtnitsch/lilypads/pkg/storage"
	"github.com/dtnitsch/lilypads/pkg/stopwords"
	"gopkg.in/yaml.v3"
)

func testDataset(t *testing.T) *convert.Dataset {
	t.Helper()

	reg := stopwords.NewRegistry(map[string]stopwords.Set{
		"English": stopwords.NewSet("the", "on"),
	})
	geo := geolocation.NewStore(map[string]json.RawMessage{
		"p1": json.RawMessage(`{"geometry":{"location":{"lat":1,"lng":2}}}`),
	})
	c, err := convert.New(reg, geo, convert.DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("convert.New() error = %v", err)
	}

	csvData := "Index,Language,place_id,Text\n" +
		"1,English,p1,the cat sat on the mat the cat sat\n" +
		"2,Inglés,p1,cat food\n" +
		"3,German,p1,katze\n"
	ds, err := c.Convert(context.Background(), strings.NewReader(csvData), []byte(`{"name":"Cats","roles":["admin"]}`))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	return ds
}

func TestGenerate(t *testing.T) {
	r := Generate(testDataset(t), "Cats", "cats.gz", 1234)

	if r.Articles != 3 || r.Geolocations != 1 || r.SizeBytes != 1234 {
		t.Errorf("counts = %d/%d/%d, want 3/1/1234", r.Articles, r.Geolocations, r.SizeBytes)
	}

	wantLangs := map[string]int{"English": 2, "German": 1}
	if !reflect.DeepEqual(r.Languages, wantLangs) {
		t.Errorf("Languages = %v, want %v", r.Languages, wantLangs)
	}

	// cat: 2 from the first article + 1 from "cat food"
	if len(r.TopPhrases) == 0 || r.TopPhrases[0] != "cat:3" {
		t.Errorf("TopPhrases = %v, want cat:3 first", r.TopPhrases)
	}
}

func TestReport_WriteAndSave(t *testing.T) {
	r := Generate(testDataset(t), "Cats", "cats.gz", 10)

	var buf bytes.Buffer
	if err := r.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var decoded Report
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if decoded.Dataset != "Cats" || decoded.Articles != 3 {
		t.Errorf("decoded report = %+v", decoded)
	}

	path := filepath.Join(t.TempDir(), "report.yaml")
	s := &storage.Storage{}
	if err := r.Save(s, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if stats, err := s.GetFileStats(path); err != nil || stats.SizeBytes == 0 {
		t.Errorf("report file not written: %v", err)
	}
}
