// Package stats has running averages and the equal width binning used for calibration metrics.
package stats

import (
	"fmt"
	"html/template"
	"math"
	"sort"
)

// Running mean and stddev as per http://www.johndcook.com/blog/standard_deviation/
type Average struct {
	Count, Mean float64
	Var, StdDev float64
	oldM, oldV  float64
}

func (s *Average) Add(x float64) {
	s.Count++
	if s.Count == 1 {
		s.oldM, s.Mean = x, x
		s.oldV = 0
	} else {
		s.Mean = s.oldM + (x-s.oldM)/s.Count
		s.Var = s.oldV + (x-s.oldM)*(x-s.Mean)
		s.oldM, s.oldV = s.Mean, s.Var
		if s.Count > 1 {
			s.StdDev = math.Sqrt(s.Var / (s.Count - 1))
		}
	}
}

func (s *Average) String() string {
	if s.StdDev < 1e-5 {
		return fmt.Sprintf("%.4f", s.Mean)
	}
	return fmt.Sprintf("%.4f±%.4f", s.Mean, s.StdDev)
}

func (s *Average) HTML() template.HTML {
	var text string
	if s.StdDev < 1e-5 {
		text = fmt.Sprintf("%.4f", s.Mean)
	} else {
		text = fmt.Sprintf("%.4f&PlusMinus;%.4f", s.Mean, s.StdDev)
	}
	return template.HTML(text)
}

// Summary of one non-empty bin
type Bin struct {
	Confidence float64 `json:"confidence"`
	Accuracy   float64 `json:"accuracy"`
	Count      int     `json:"count"`
}

// Bins accumulates (value, label) pairs into n equal width bins over [0, 1].
// Bin k holds edge[k] <= v < edge[k+1], the last bin also holds v == 1.
type Bins struct {
	edges  []float64
	count  []int
	sumVal []float64
	sumLab []float64
}

// NewBins returns a set of n bins with edges matching numpy linspace(0, 1, n+1).
func NewBins(n int) *Bins {
	if n < 1 {
		n = 1
	}
	b := &Bins{
		edges:  make([]float64, n+1),
		count:  make([]int, n),
		sumVal: make([]float64, n),
		sumLab: make([]float64, n),
	}
	step := 1 / float64(n)
	for i := range b.edges {
		b.edges[i] = float64(i) * step
	}
	b.edges[n] = 1
	return b
}

func (b *Bins) Len() int { return len(b.count) }

// Index returns the bin for value v. Values outside [0, 1] are clamped to the end bins.
func (b *Bins) Index(v float64) int {
	k := sort.Search(len(b.edges), func(i int) bool { return b.edges[i] > v }) - 1
	if k < 0 {
		return 0
	}
	if k >= len(b.count) {
		return len(b.count) - 1
	}
	return k
}

func (b *Bins) Add(value, label float64) {
	k := b.Index(value)
	b.count[k]++
	b.sumVal[k] += value
	b.sumLab[k] += label
}

// Total number of values added
func (b *Bins) Total() int {
	n := 0
	for _, c := range b.count {
		n += c
	}
	return n
}

// Emit returns the non-empty bins in ascending order.
func (b *Bins) Emit() []Bin {
	res := []Bin{}
	for k, c := range b.count {
		if c > 0 {
			res = append(res, Bin{
				Confidence: b.sumVal[k] / float64(c),
				Accuracy:   b.sumLab[k] / float64(c),
				Count:      c,
			})
		}
	}
	return res
}

// Gap returns sum over bins of count*|accuracy - confidence|.
func (b *Bins) Gap() float64 {
	gap := 0.0
	for _, bin := range b.Emit() {
		gap += float64(bin.Count) * math.Abs(bin.Accuracy-bin.Confidence)
	}
	return gap
}
