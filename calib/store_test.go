package calib

import (
	"errors"
	"github.com/google/go-cmp/cmp"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDocumentRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "params.json")
	doc := Document{
		Params: Params{
			Temperature:    1.2345678901234567,
			PlattA:         3.5,
			PlattB:         -1.25,
			PlattConverged: true,
			Isotonic:       []Knot{{0.2, 0.1}, {0.9, 0.95}},
		},
		History: []Snapshot{{
			Time:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Samples: 10,
			Classes: 3,
			Params:  Params{Temperature: 0.1 + 0.2},
		}},
	}
	if err := SaveDocument(file, doc); err != nil {
		t.Fatal(err)
	}
	got, err := LoadDocument(file)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Error("mismatch (-want +got):\n", diff)
	}
	entries, _ := os.ReadDir(filepath.Dir(file))
	if len(entries) != 1 {
		t.Error("temporary files left behind:", entries)
	}
}

func TestLoadMissing(t *testing.T) {
	doc, err := LoadDocument(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Temperature != 1 || len(doc.History) != 0 {
		t.Error("unexpected default document", doc)
	}
}

func TestLoadCorrupt(t *testing.T) {
	file := filepath.Join(t.TempDir(), "params.json")
	os.WriteFile(file, []byte("{not json"), 0644)
	if _, err := LoadDocument(file); !errors.Is(err, ErrPersistence) {
		t.Error("got", err, "expect ErrPersistence")
	}
}

func TestSaveFailureKeepsOld(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "params.json")
	old := Document{Params: Params{Temperature: 2}}
	if err := SaveDocument(file, old); err != nil {
		t.Fatal(err)
	}
	err := writeAtomic(file, func(w io.Writer) error {
		w.Write([]byte(`{"temperature": 9`))
		return errors.New("encode failed")
	})
	if err == nil {
		t.Fatal("expect error")
	}
	got, err := LoadDocument(file)
	if err != nil {
		t.Fatal(err)
	}
	if got.Temperature != 2 {
		t.Error("old document was replaced")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Error("temporary files left behind:", entries)
	}
}
