package calib

import (
	"fmt"
	"github.com/jnb666/calibrate/stats"
	"gonum.org/v1/gonum/floats"
)

// Calibration quality of one probability matrix
type Metrics struct {
	BrierScore         float64     `json:"brier_score"`
	BrierScorePerClass []float64   `json:"brier_scores_per_class"`
	ECE                float64     `json:"ece"`
	Reliability        []stats.Bin `json:"reliability"`
}

func (m Metrics) String() string {
	return fmt.Sprintf("brier=%.4f ece=%.4f bins=%d", m.BrierScore, m.ECE, len(m.Reliability))
}

// Evaluate computes the Brier score, expected calibration error and reliability bins.
// Labels given as indices are converted to one-hot first.
func Evaluate(p Matrix, y Labels, conf Config) (Metrics, error) {
	y1h, err := Validate(p, y, conf.SumTolerance)
	if err != nil {
		return Metrics{}, err
	}
	return evaluate(p, y1h, conf.ECEBins, conf.ReliabilityBins), nil
}

func evaluate(p Matrix, y [][]float64, eceBins, relBins int) Metrics {
	m := Metrics{BrierScorePerClass: Brier(p, y)}
	m.BrierScore = floats.Sum(m.BrierScorePerClass) / float64(len(m.BrierScorePerClass))
	m.ECE = ECE(p, y, eceBins)
	m.Reliability = Reliability(p, y, relBins)
	return m
}

// Brier returns the mean squared error of each class column.
func Brier(p Matrix, y [][]float64) []float64 {
	c := p.Cols()
	brier := make([]float64, c)
	for i, row := range p {
		for k, pk := range row {
			d := pk - y[i][k]
			brier[k] += d * d
		}
	}
	floats.Scale(1/float64(len(p)), brier)
	return brier
}

// ECE treats every class probability as an independent prediction and normalises
// by the total number of entries.
func ECE(p Matrix, y [][]float64, nbins int) float64 {
	b := binEntries(p, y, nbins)
	total := b.Total()
	if total == 0 {
		return 0
	}
	return b.Gap() / float64(total)
}

// Reliability returns the non-empty bins of the flattened probability entries.
func Reliability(p Matrix, y [][]float64, nbins int) []stats.Bin {
	return binEntries(p, y, nbins).Emit()
}

func binEntries(p Matrix, y [][]float64, nbins int) *stats.Bins {
	b := stats.NewBins(nbins)
	for i, row := range p {
		for k, pk := range row {
			b.Add(pk, y[i][k])
		}
	}
	return b
}
