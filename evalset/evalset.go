// Package evalset loads the held out predictions and labels which are used to calibrate a model.
package evalset

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"github.com/jnb666/calibrate/calib"
	"gopkg.in/yaml.v3"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Predicted probabilities and labels for a held out data set
type Data struct {
	Classes []string    `json:"classes" yaml:"classes"`
	Probs   [][]float64 `json:"probabilities" yaml:"probabilities"`
	Labels  []int       `json:"labels,omitempty" yaml:"labels,omitempty"`
	OneHot  [][]float64 `json:"onehot,omitempty" yaml:"onehot,omitempty"`
}

// New creates a data set with numbered class names
func New(nclasses int, probs [][]float64, labels []int) *Data {
	classes := make([]string, nclasses)
	for i := range classes {
		classes[i] = strconv.Itoa(i)
	}
	return &Data{Classes: classes, Probs: probs, Labels: labels}
}

func (d *Data) Len() int { return len(d.Probs) }

func (d *Data) Matrix() calib.Matrix { return calib.Matrix(d.Probs) }

func (d *Data) Targets() calib.Labels {
	if d.OneHot != nil {
		return calib.OneHotLabels(d.OneHot)
	}
	return calib.IndexLabels(d.Labels)
}

// Class names, numbered if none were given
func (d *Data) ClassNames() []string {
	if len(d.Classes) > 0 {
		return d.Classes
	}
	return New(len(d.Probs[0]), nil, nil).Classes
}

// Decode data from a json, yaml or gob file depending on the extension
func Load(file string) (*Data, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d := new(Data)
	switch format(file) {
	case "json":
		err = json.NewDecoder(f).Decode(d)
	case "yaml":
		err = yaml.NewDecoder(f).Decode(d)
	default:
		err = gob.NewDecoder(f).Decode(d)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	if d.Len() == 0 {
		return nil, fmt.Errorf("%s: %w: no samples", file, calib.ErrInvalidInput)
	}
	return d, nil
}

// Encode data to file, format is chosen from the extension
func (d *Data) Save(file string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	switch format(file) {
	case "json":
		err = json.NewEncoder(f).Encode(d)
	case "yaml":
		enc := yaml.NewEncoder(f)
		if err = enc.Encode(d); err == nil {
			err = enc.Close()
		}
	default:
		err = gob.NewEncoder(f).Encode(d)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func format(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return "gob"
}
