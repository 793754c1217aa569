package calib

import (
	"gonum.org/v1/gonum/floats"
	"sort"
)

// Knot is one point of a fitted isotonic mapping.
type Knot struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsotonicCalibrator fits a non-decreasing mapping from max predicted probability to a target.
// With Target == TargetLabel the target is the max of the one-hot label row, which is always 1,
// so the fitted mapping is constant. TargetCorrect fits against whether the predicted class is right.
type IsotonicCalibrator struct {
	Target string
	Knots  []Knot
}

func NewIsotonicCalibrator(conf Config) *IsotonicCalibrator {
	return &IsotonicCalibrator{Target: conf.IsotonicTarget}
}

func (c *IsotonicCalibrator) Name() string { return "isotonic" }

func (c *IsotonicCalibrator) Fit(p Matrix, y [][]float64) error {
	if err := checkShape(p, y); err != nil {
		return err
	}
	x, t := confidence(p, y)
	if c.Target != TargetCorrect {
		for i, row := range y {
			t[i] = floats.Max(row)
		}
	}
	c.Knots = Isotonic(x, t)
	return nil
}

// Predict interpolates linearly between knots, clipping outside the fitted range.
func (c *IsotonicCalibrator) Predict(x float64) float64 {
	return interpolate(c.Knots, x)
}

func (c *IsotonicCalibrator) Apply(p Matrix) Matrix { return replaceMax(p, c.Predict) }

func (c *IsotonicCalibrator) Record(params *Params) {
	params.Isotonic = append([]Knot{}, c.Knots...)
}

type block struct {
	x0, x1 float64
	y, w   float64
}

// Isotonic returns the knots of the least squares non-decreasing fit of y on x.
// Equal x values are merged into their mean before pooling adjacent violators.
func Isotonic(x, y []float64) []Knot {
	if len(x) == 0 {
		return nil
	}
	ix := make([]int, len(x))
	for i := range ix {
		ix[i] = i
	}
	sort.SliceStable(ix, func(i, j int) bool { return x[ix[i]] < x[ix[j]] })

	var blocks []block
	for _, i := range ix {
		n := len(blocks)
		if n > 0 && blocks[n-1].x1 == x[i] {
			b := &blocks[n-1]
			b.y = (b.y*b.w + y[i]) / (b.w + 1)
			b.w++
			continue
		}
		blocks = append(blocks, block{x0: x[i], x1: x[i], y: y[i], w: 1})
	}

	// pool adjacent violators
	stack := blocks[:0]
	for _, b := range blocks {
		stack = append(stack, b)
		for len(stack) > 1 {
			n := len(stack)
			prev, last := stack[n-2], stack[n-1]
			if prev.y <= last.y {
				break
			}
			w := prev.w + last.w
			stack[n-2] = block{x0: prev.x0, x1: last.x1, y: (prev.y*prev.w + last.y*last.w) / w, w: w}
			stack = stack[:n-1]
		}
	}

	knots := make([]Knot, 0, 2*len(stack))
	for _, b := range stack {
		knots = append(knots, Knot{X: b.x0, Y: b.y})
		if b.x1 != b.x0 {
			knots = append(knots, Knot{X: b.x1, Y: b.y})
		}
	}
	return knots
}

func interpolate(knots []Knot, x float64) float64 {
	n := len(knots)
	switch {
	case n == 0:
		return x
	case x <= knots[0].X:
		return knots[0].Y
	case x >= knots[n-1].X:
		return knots[n-1].Y
	}
	j := sort.Search(n, func(i int) bool { return knots[i].X >= x })
	k0, k1 := knots[j-1], knots[j]
	if k1.X == k0.X {
		return k1.Y
	}
	return k0.Y + (x-k0.X)*(k1.Y-k0.Y)/(k1.X-k0.X)
}
