// Package calib measures and corrects the calibration of classifier output probabilities.
package calib

import (
	"errors"
	"fmt"
	"golang.org/x/sync/errgroup"
	"log"
	"os"
	"sync"
	"time"
)

// Calibrator owns the parameters and history for one model. Each model should use its own Calibrator.
type Calibrator struct {
	Config
	Log     *log.Logger
	params  Params
	history []Snapshot
	mu      sync.Mutex
}

// Outcome of a calibration run
type Result struct {
	Original    Metrics
	Temperature Metrics
	Params      Params
	Improvement Improvement
}

// Original minus temperature scaled scores, positive is better
type Improvement struct {
	Brier float64 `json:"brier_score"`
	ECE   float64 `json:"ece"`
}

func New(conf Config) *Calibrator {
	return &Calibrator{
		Config:  conf,
		Log:     log.New(os.Stderr, "", log.LstdFlags),
		params:  DefaultParams(),
		history: []Snapshot{},
	}
}

// Open creates a calibrator which continues the history stored in conf.ParamsFile, if it exists.
func Open(conf Config) (*Calibrator, error) {
	c := New(conf)
	if conf.ParamsFile == "" {
		return c, nil
	}
	doc, err := LoadDocument(conf.ParamsFile)
	if err != nil {
		return nil, err
	}
	c.params, c.history = doc.Params, doc.History
	return c, nil
}

// Current parameters
func (c *Calibrator) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.Clone()
}

// Copy of the run history, oldest first
func (c *Calibrator) History() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Snapshot{}, c.history...)
}

// Transform applies the current temperature to p.
func (c *Calibrator) Transform(p Matrix) Matrix {
	return ApplyTemperature(p, c.Params().Temperature)
}

// Calibrate evaluates the raw probabilities, fits each method, evaluates the temperature scaled
// probabilities and then persists the new parameters with the history. State is only updated if
// every step succeeds. A Platt fit which does not converge is kept with PlattConverged unset.
func (c *Calibrator) Calibrate(p Matrix, y Labels) (*Result, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}
	y1h, err := Validate(p, y, c.SumTolerance)
	if err != nil {
		return nil, err
	}
	c.debug(1, "calibrating %d samples with %d classes", p.Rows(), p.Cols())
	original := evaluate(p, y1h, c.ECEBins, c.ReliabilityBins)
	c.debug(1, "original: %s", original)

	methods := Methods(c.Config)
	var g errgroup.Group
	for _, m := range methods {
		m := m
		g.Go(func() error {
			start := time.Now()
			err := m.Fit(p, y1h)
			var cerr *ConvergenceError
			if errors.As(err, &cerr) && m.Name() != "temperature" {
				c.logf("warning: %v", err)
				err = nil
			}
			c.debug(2, "%s fit in %s", m.Name(), time.Since(start).Round(time.Microsecond))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	params := DefaultParams()
	for _, m := range methods {
		m.Record(&params)
	}
	scaled := methods[0].Apply(p)
	tempMetrics := evaluate(scaled, y1h, c.ECEBins, c.ReliabilityBins)
	c.debug(1, "temperature %.4f: %s", params.Temperature, tempMetrics)
	c.debug(1, "platt a=%.4f b=%.4f converged=%v", params.PlattA, params.PlattB, params.PlattConverged)

	res := &Result{
		Original:    original,
		Temperature: tempMetrics,
		Params:      params,
		Improvement: Improvement{
			Brier: original.BrierScore - tempMetrics.BrierScore,
			ECE:   original.ECE - tempMetrics.ECE,
		},
	}
	snap := Snapshot{
		Time:        time.Now().UTC(),
		Samples:     p.Rows(),
		Classes:     p.Cols(),
		Original:    original,
		Temperature: tempMetrics,
		Params:      params.Clone(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	history := append(append([]Snapshot{}, c.history...), snap)
	if c.ParamsFile != "" {
		if err := SaveDocument(c.ParamsFile, Document{Params: params, History: history}); err != nil {
			return nil, err
		}
		c.debug(1, "saved calibration parameters to %s", c.ParamsFile)
	}
	c.params, c.history = params.Clone(), history
	return res, nil
}

// Save writes the current parameters and history to file.
func (c *Calibrator) Save(file string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SaveDocument(file, Document{Params: c.params, History: c.history})
}

func (c *Calibrator) debug(level int, format string, args ...interface{}) {
	if c.DebugLevel >= level {
		c.logf(format, args...)
	}
}

func (c *Calibrator) logf(format string, args ...interface{}) {
	if c.Log != nil {
		c.Log.Output(3, fmt.Sprintf(format, args...))
	}
}
