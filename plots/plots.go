// Package plots draws reliability diagrams and other calibration charts.
package plots

import (
	"fmt"
	"github.com/jnb666/calibrate/calib"
	"github.com/jnb666/calibrate/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"image/color"
	"io"
	"path/filepath"
)

const histBins = 20

// Named set of reliability bins
type Series struct {
	Name string
	Bins []stats.Bin
}

// Reliability plots bin accuracy against bin confidence for each series along with the diagonal.
func Reliability(series ...Series) (*plot.Plot, error) {
	p := newPlot("Reliability Diagram", "Confidence", "Accuracy")
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = 0, 1, 0, 1
	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return nil, err
	}
	diag.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	diag.Color = color.Gray{Y: 128}
	p.Add(diag)
	p.Legend.Add("perfect calibration", diag)
	for i, s := range series {
		if len(s.Bins) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.Bins))
		for j, b := range s.Bins {
			pts[j].X, pts[j].Y = b.Confidence, b.Accuracy
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, err
		}
		line.Width = vg.Points(2)
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(s.Name, line, points)
	}
	return p, nil
}

// Confidence is a histogram of the max predicted probability per sample.
func Confidence(probs calib.Matrix) (*plot.Plot, error) {
	vals := make(plotter.Values, len(probs))
	for i, row := range probs {
		vals[i] = floats.Max(row)
	}
	return histogram("Confidence Distribution", "Maximum Confidence", vals)
}

// CalibrationError is a histogram of |max(p) - max(y)| per sample.
func CalibrationError(probs calib.Matrix, y [][]float64) (*plot.Plot, error) {
	vals := make(plotter.Values, len(probs))
	for i, row := range probs {
		d := floats.Max(row) - floats.Max(y[i])
		if d < 0 {
			d = -d
		}
		vals[i] = d
	}
	return histogram("Calibration Error Distribution", "Calibration Error", vals)
}

// BrierPerClass is a bar chart with one bar per class.
func BrierPerClass(scores []float64, classes []string) (*plot.Plot, error) {
	if len(classes) != len(scores) {
		return nil, fmt.Errorf("plots: %d class names for %d scores", len(classes), len(scores))
	}
	p := newPlot("Brier Scores per Class", "Class", "Brier Score")
	bars, err := plotter.NewBarChart(plotter.Values(scores), vg.Points(12))
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(classes...)
	p.Legend.Top = false
	return p, nil
}

func histogram(title, xlabel string, vals plotter.Values) (*plot.Plot, error) {
	p := newPlot(title, xlabel, "Frequency")
	h, err := plotter.NewHist(vals, histBins)
	if err != nil {
		return nil, err
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return p, nil
}

func newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.TextStyle.Font.Size = vg.Points(12)
	p.Add(plotter.NewGrid())
	return p
}

// WriteSVG renders the plot to w with the size given in pixels.
func WriteSVG(p *plot.Plot, w io.Writer, width, height int) error {
	writer, err := p.WriterTo(vg.Points(float64(width)), vg.Points(float64(height)), "svg")
	if err != nil {
		return err
	}
	_, err = writer.WriteTo(w)
	return err
}

// Save writes the plot to file, the format is taken from the extension.
func Save(p *plot.Plot, file string, width, height int) error {
	return p.Save(vg.Points(float64(width)), vg.Points(float64(height)), file)
}

// SaveAll writes the reliability, confidence, brier and error charts for one calibration run to dir.
func SaveAll(dir string, probs calib.Matrix, y [][]float64, res *calib.Result, classes []string) error {
	rel, err := Reliability(
		Series{Name: "original", Bins: res.Original.Reliability},
		Series{Name: "temperature", Bins: res.Temperature.Reliability},
	)
	if err != nil {
		return err
	}
	conf, err := Confidence(probs)
	if err != nil {
		return err
	}
	brier, err := BrierPerClass(res.Original.BrierScorePerClass, classes)
	if err != nil {
		return err
	}
	errs, err := CalibrationError(probs, y)
	if err != nil {
		return err
	}
	charts := []struct {
		name string
		p    *plot.Plot
	}{{"reliability", rel}, {"confidence", conf}, {"brier", brier}, {"error", errs}}
	for _, c := range charts {
		file := filepath.Join(dir, "calibration_"+c.name+".svg")
		if err := Save(c.p, file, 600, 450); err != nil {
			return err
		}
		fmt.Println("saved plot to", file)
	}
	return nil
}
