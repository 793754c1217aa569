package calib

import (
	"encoding/json"
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
)

// Isotonic fit targets
const (
	TargetLabel   = "label"
	TargetCorrect = "correct"
)

// Calibration configuration settings
type Config struct {
	ECEBins         int     `yaml:"ece_bins"`
	ReliabilityBins int     `yaml:"reliability_bins"`
	SumTolerance    float64 `yaml:"sum_tolerance"`
	TempMin         float64 `yaml:"temp_min"`
	TempMax         float64 `yaml:"temp_max"`
	TempGradTol     float64 `yaml:"temp_grad_tol"`
	TempFuncTol     float64 `yaml:"temp_func_tol"`
	TempMaxIter     int     `yaml:"temp_max_iter"`
	PlattC          float64 `yaml:"platt_c"`
	PlattMaxIter    int     `yaml:"platt_max_iter"`
	IsotonicTarget  string  `yaml:"isotonic_target"`
	ParamsFile      string  `yaml:"params_file"`
	DebugLevel      int     `yaml:"debug_level"`
}

func DefaultConfig() Config {
	return Config{
		ECEBins:         15,
		ReliabilityBins: 10,
		SumTolerance:    1e-3,
		TempMin:         0.1,
		TempMax:         10,
		TempGradTol:     1e-5,
		TempFuncTol:     1e7 * 2.220446049250313e-16,
		TempMaxIter:     200,
		PlattC:          1,
		PlattMaxIter:    100,
		IsotonicTarget:  TargetLabel,
	}
}

// Load config from a json or yaml file, unset fields keep their default values
func LoadConfig(file string) (c Config, err error) {
	c = DefaultConfig()
	var f *os.File
	if f, err = os.Open(file); err != nil {
		return
	}
	defer f.Close()
	if isYAML(file) {
		err = yaml.NewDecoder(f).Decode(&c)
	} else {
		err = json.NewDecoder(f).Decode(&c)
	}
	if err == io.EOF {
		err = nil
	}
	if err != nil {
		return c, fmt.Errorf("decode config %s: %w", file, err)
	}
	return c, c.Check()
}

// Save config to a json or yaml file
func (c Config) Save(file string) error {
	return writeAtomic(file, func(w io.Writer) error {
		if isYAML(file) {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(c); err != nil {
				return err
			}
			return enc.Close()
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	})
}

// Check that the settings are usable
func (c Config) Check() error {
	switch {
	case c.ECEBins < 1 || c.ReliabilityBins < 1:
		return fmt.Errorf("config: bin counts must be positive")
	case c.TempMin <= 0 || c.TempMax < c.TempMin:
		return fmt.Errorf("config: invalid temperature bounds [%g, %g]", c.TempMin, c.TempMax)
	case c.TempMaxIter < 1 || c.PlattMaxIter < 1:
		return fmt.Errorf("config: iteration limits must be positive")
	case c.PlattC < 0:
		return fmt.Errorf("config: PlattC must not be negative")
	case c.IsotonicTarget != TargetLabel && c.IsotonicTarget != TargetCorrect:
		return fmt.Errorf("config: IsotonicTarget must be %q or %q", TargetLabel, TargetCorrect)
	}
	return nil
}

func (c Config) Fields() []string {
	st := reflect.TypeOf(c)
	fld := make([]string, st.NumField())
	for i := range fld {
		fld[i] = st.Field(i).Name
	}
	return fld
}

func (c Config) Get(key string) interface{} {
	s := reflect.ValueOf(c)
	return s.FieldByName(key).Interface()
}

func (c Config) String() string {
	str := []string{"== Config =="}
	for _, key := range c.Fields() {
		str = append(str, fmt.Sprintf("%-16s: %v", key, c.Get(key)))
	}
	return strings.Join(str, "\n")
}

// Set a field from its string representation
func (c Config) SetString(key, val string) (Config, error) {
	s := reflect.ValueOf(&c).Elem()
	f := s.FieldByName(key)
	if !f.IsValid() {
		return c, fmt.Errorf("unknown config field %q", key)
	}
	var err error
	switch f.Type().Kind() {
	case reflect.Int, reflect.Int64:
		var x int64
		if x, err = strconv.ParseInt(val, 10, 64); err == nil {
			f.SetInt(x)
		}
	case reflect.Float64:
		var x float64
		if x, err = strconv.ParseFloat(val, 64); err == nil {
			f.SetFloat(x)
		}
	case reflect.Bool:
		var x bool
		if x, err = strconv.ParseBool(val); err == nil {
			f.SetBool(x)
		}
	case reflect.String:
		f.SetString(val)
	default:
		return c, fmt.Errorf("invalid type for SetString: %v", f.Type().Kind())
	}
	return c, err
}

func isYAML(file string) bool {
	ext := strings.ToLower(filepath.Ext(file))
	return ext == ".yaml" || ext == ".yml"
}
