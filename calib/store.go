package calib

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Fitted calibration parameters
type Params struct {
	Temperature    float64 `json:"temperature"`
	PlattA         float64 `json:"platt_a"`
	PlattB         float64 `json:"platt_b"`
	PlattConverged bool    `json:"platt_converged"`
	Isotonic       []Knot  `json:"isotonic,omitempty"`
}

// Identity parameters leave probabilities unchanged
func DefaultParams() Params {
	return Params{Temperature: 1, PlattA: 1}
}

func (p Params) Clone() Params {
	if p.Isotonic != nil {
		p.Isotonic = append([]Knot{}, p.Isotonic...)
	}
	return p
}

// Transform applies temperature scaling to a single probability vector.
func (p Params) Transform(probs []float64) []float64 {
	return scaleRow(probs, p.Temperature)
}

// Record of one calibration run
type Snapshot struct {
	Time        time.Time `json:"time"`
	Samples     int       `json:"samples"`
	Classes     int       `json:"classes"`
	Original    Metrics   `json:"original_metrics"`
	Temperature Metrics   `json:"temperature_metrics"`
	Params      Params    `json:"params"`
}

// Document is the persisted form of the parameters together with the run history.
type Document struct {
	Params
	History []Snapshot `json:"calibration_history"`
}

// LoadDocument reads a parameters file. A missing file gives default parameters and no history.
func LoadDocument(file string) (Document, error) {
	doc := Document{Params: DefaultParams(), History: []Snapshot{}}
	f, err := os.Open(file)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer f.Close()
	if err = json.NewDecoder(f).Decode(&doc); err != nil {
		return doc, fmt.Errorf("%w: decode %s: %w", ErrPersistence, file, err)
	}
	if doc.History == nil {
		doc.History = []Snapshot{}
	}
	return doc, nil
}

// SaveDocument replaces file with the encoded document. Nothing is changed if any step fails.
func SaveDocument(file string, doc Document) error {
	if doc.History == nil {
		doc.History = []Snapshot{}
	}
	err := writeAtomic(file, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// write to a temporary file in the same directory then rename over the target
func writeAtomic(file string, encode func(io.Writer) error) (err error) {
	dir := filepath.Dir(file)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(file)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()
	if err = encode(f); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, file)
}
