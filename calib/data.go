package calib

import (
	"gonum.org/v1/gonum/floats"
	"math"
)

// Matrix of predicted class probabilities, one row per sample.
type Matrix [][]float64

func (m Matrix) Rows() int { return len(m) }

func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

func (m Matrix) Clone() Matrix {
	res := make(Matrix, len(m))
	for i, row := range m {
		res[i] = append([]float64{}, row...)
	}
	return res
}

// Ground truth labels given either as class indices or one-hot rows.
type Labels struct {
	Index  []int
	OneHot [][]float64
}

func IndexLabels(index []int) Labels { return Labels{Index: index} }

func OneHotLabels(y [][]float64) Labels { return Labels{OneHot: y} }

func (l Labels) Len() int {
	if l.OneHot != nil {
		return len(l.OneHot)
	}
	return len(l.Index)
}

// Validate checks that p and y describe the same N samples and C classes and returns the labels in one-hot form.
// Rows of p must lie in [0, 1] and sum to 1 within tol.
func Validate(p Matrix, y Labels, tol float64) ([][]float64, error) {
	n, c := p.Rows(), p.Cols()
	if n == 0 {
		return nil, invalidf("empty probability matrix")
	}
	if c == 0 {
		return nil, invalidf("zero classes")
	}
	if y.Len() != n {
		return nil, invalidf("have %d probability rows but %d labels", n, y.Len())
	}
	for i, row := range p {
		if len(row) != c {
			return nil, invalidf("row %d has %d classes, expect %d", i, len(row), c)
		}
		if floats.HasNaN(row) {
			return nil, invalidf("row %d contains NaN", i)
		}
		if floats.Min(row) < 0 || floats.Max(row) > 1 {
			return nil, invalidf("row %d has probability outside [0, 1]", i)
		}
		if sum := floats.Sum(row); math.Abs(sum-1) > tol {
			return nil, invalidf("row %d sums to %g", i, sum)
		}
	}
	if y.OneHot != nil && y.Index != nil {
		return nil, invalidf("labels given both as indices and one-hot rows")
	}
	if y.OneHot != nil {
		for i, row := range y.OneHot {
			if len(row) != c {
				return nil, invalidf("label row %d has %d classes, expect %d", i, len(row), c)
			}
			if !isOneHot(row) {
				return nil, invalidf("label row %d is not one-hot: %v", i, row)
			}
		}
		return y.OneHot, nil
	}
	return Onehot(y.Index, c)
}

// exactly one entry is 1 and the rest are 0
func isOneHot(row []float64) bool {
	ones := 0
	for _, v := range row {
		switch v {
		case 0:
		case 1:
			ones++
		default:
			return false
		}
	}
	return ones == 1
}

// Onehot converts class indices to one-hot rows of length c.
func Onehot(index []int, c int) ([][]float64, error) {
	y := make([][]float64, len(index))
	for i, ix := range index {
		if ix < 0 || ix >= c {
			return nil, invalidf("label %d at row %d not in [0, %d)", ix, i, c)
		}
		y[i] = make([]float64, c)
		y[i][ix] = 1
	}
	return y, nil
}

// Unhot returns the index of the largest entry in each row.
func Unhot(y [][]float64) []int {
	ix := make([]int, len(y))
	for i, row := range y {
		ix[i] = floats.MaxIdx(row)
	}
	return ix
}

// max probability per row and whether its class matches the label
func confidence(p Matrix, y [][]float64) (conf, correct []float64) {
	conf = make([]float64, len(p))
	correct = make([]float64, len(p))
	for i, row := range p {
		ix := floats.MaxIdx(row)
		conf[i] = row[ix]
		if ix == floats.MaxIdx(y[i]) {
			correct[i] = 1
		}
	}
	return
}
