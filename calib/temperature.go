package calib

import (
	"gonum.org/v1/gonum/floats"
	"math"
)

// Floor added to probabilities before taking logs
const LogFloor = 1e-8

const (
	armijo        = 1e-4
	maxLineSearch = 40
)

// TemperatureScaler fits a single temperature T so that softmax(log(p)/T) minimises the negative log likelihood.
type TemperatureScaler struct {
	Min, Max   float64
	GradTol    float64
	FuncTol    float64
	MaxIter    int
	T          float64
	Iterations int
}

func NewTemperatureScaler(conf Config) *TemperatureScaler {
	return &TemperatureScaler{
		Min:     conf.TempMin,
		Max:     conf.TempMax,
		GradTol: conf.TempGradTol,
		FuncTol: conf.TempFuncTol,
		MaxIter: conf.TempMaxIter,
		T:       1,
	}
}

func (s *TemperatureScaler) Name() string { return "temperature" }

// Fit runs a bounded projected quasi-Newton search starting from T=1. Each accepted
// step strictly decreases the objective so the result is never worse than T=1.
func (s *TemperatureScaler) Fit(p Matrix, y [][]float64) error {
	if err := checkShape(p, y); err != nil {
		return err
	}
	obj := newNLL(p, y)
	t := clamp(1, s.Min, s.Max)
	fx, g := obj.eval(t)
	h := 0.0
	for iter := 0; iter < s.MaxIter; iter++ {
		if math.Abs(projGrad(t, g, s.Min, s.Max)) <= s.GradTol {
			s.T, s.Iterations = t, iter
			return nil
		}
		step := -g * math.Min(1, 1/math.Abs(g))
		if h > 0 {
			step = -g / h
		}
		var tn, fn, gn float64
		accept := false
		alpha := 1.0
		for ls := 0; ls < maxLineSearch; ls++ {
			tn = clamp(t+alpha*step, s.Min, s.Max)
			if tn == t {
				break
			}
			fn, gn = obj.eval(tn)
			if fn <= fx+armijo*g*(tn-t) {
				accept = true
				break
			}
			alpha /= 2
		}
		if !accept {
			// no decrease is possible at working precision
			s.T, s.Iterations = t, iter
			return nil
		}
		if curv := (gn - g) / (tn - t); curv > 0 {
			h = curv
		}
		rel := (fx - fn) / math.Max(math.Max(math.Abs(fx), math.Abs(fn)), 1)
		t, fx, g = tn, fn, gn
		if rel <= s.FuncTol {
			s.T, s.Iterations = t, iter+1
			return nil
		}
	}
	s.T, s.Iterations = t, s.MaxIter
	return &ConvergenceError{
		Method:     s.Name(),
		Estimate:   []float64{t},
		Iterations: s.MaxIter,
		Reason:     "iteration limit reached",
	}
}

func (s *TemperatureScaler) Apply(p Matrix) Matrix { return ApplyTemperature(p, s.T) }

func (s *TemperatureScaler) Record(params *Params) { params.Temperature = s.T }

// ApplyTemperature returns softmax(log(p + 1e-8) / t) for each row.
func ApplyTemperature(p Matrix, t float64) Matrix {
	res := make(Matrix, len(p))
	for i, row := range p {
		res[i] = scaleRow(row, t)
	}
	return res
}

func scaleRow(row []float64, t float64) []float64 {
	out := make([]float64, len(row))
	for k, v := range row {
		out[k] = math.Log(v+LogFloor) / t
	}
	softmax(out)
	return out
}

// in place softmax with the row max subtracted first
func softmax(x []float64) {
	mx := floats.Max(x)
	sum := 0.0
	for k, v := range x {
		x[k] = math.Exp(v - mx)
		sum += x[k]
	}
	floats.Scale(1/sum, x)
}

// NLL returns the mean negative log likelihood of the labels after scaling by temperature t.
func NLL(p Matrix, y [][]float64, t float64) float64 {
	f, _ := newNLL(p, y).eval(t)
	return f
}

type nll struct {
	z Matrix
	y [][]float64
	q []float64
}

func newNLL(p Matrix, y [][]float64) *nll {
	z := make(Matrix, len(p))
	for i, row := range p {
		z[i] = make([]float64, len(row))
		for k, v := range row {
			z[i][k] = math.Log(v + LogFloor)
		}
	}
	return &nll{z: z, y: y, q: make([]float64, p.Cols())}
}

// objective value and derivative with respect to t
func (f *nll) eval(t float64) (loss, grad float64) {
	for i, z := range f.z {
		for k, v := range z {
			f.q[k] = v / t
		}
		softmax(f.q)
		// with r_k = y_k q_k/(q_k+eps): dL/ds_j = q_j*sum(r) - r_j and ds_j/dt = -z_j/t^2
		var rsum, rz, qz float64
		for k, yk := range f.y[i] {
			qk := f.q[k]
			if yk != 0 {
				loss -= yk * math.Log(qk+LogFloor)
				r := yk * qk / (qk + LogFloor)
				rsum += r
				rz += r * z[k]
			}
			qz += qk * z[k]
		}
		grad += rz - rsum*qz
	}
	n := float64(len(f.z))
	return loss / n, grad / (n * t * t)
}

func projGrad(t, g, lo, hi float64) float64 {
	if (t <= lo && g > 0) || (t >= hi && g < 0) {
		return 0
	}
	return g
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func checkShape(p Matrix, y [][]float64) error {
	if len(p) == 0 {
		return invalidf("empty probability matrix")
	}
	if len(y) != len(p) {
		return invalidf("have %d probability rows but %d labels", len(p), len(y))
	}
	c := p.Cols()
	for i := range p {
		if len(p[i]) != c || len(y[i]) != c {
			return invalidf("row %d does not have %d classes", i, c)
		}
	}
	return nil
}
