package calib

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"math"
)

const plattGradTol = 1e-8

// PlattScaler fits sigmoid(A*x + B) where x is the max predicted probability and the target
// is 1 if the predicted class is correct. C is the inverse L2 penalty on A, zero disables it.
type PlattScaler struct {
	C          float64
	MaxIter    int
	A, B       float64
	Converged  bool
	Iterations int
}

func NewPlattScaler(conf Config) *PlattScaler {
	return &PlattScaler{C: conf.PlattC, MaxIter: conf.PlattMaxIter, A: 1}
}

func (s *PlattScaler) Name() string { return "platt" }

func (s *PlattScaler) Fit(p Matrix, y [][]float64) error {
	if err := checkShape(p, y); err != nil {
		return err
	}
	x, t := confidence(p, y)
	s.Converged = false
	s.A, s.B = 0, logit(stat.Mean(t, nil))
	switch {
	case stat.Variance(x, nil) == 0:
		return s.notConverged(0, "max probability has zero variance")
	case allEqual(t):
		return s.notConverged(0, "all samples have the same correctness")
	}
	lambda := 0.0
	if s.C > 0 {
		lambda = 1 / (s.C * float64(len(x)))
	}
	obj := logistic{x: x, t: t, lambda: lambda}
	prob := optimize.Problem{Func: obj.Func, Grad: obj.Grad, Hess: obj.Hess}
	settings := &optimize.Settings{MajorIterations: s.MaxIter}
	res, err := optimize.Minimize(prob, []float64{s.A, s.B}, settings, &optimize.Newton{GradStopThreshold: plattGradTol})
	if res != nil {
		s.A, s.B = res.X[0], res.X[1]
		s.Iterations = res.MajorIterations
	}
	if err != nil {
		return s.notConverged(s.Iterations, err.Error())
	}
	if res.Status != optimize.GradientThreshold && res.Status != optimize.FunctionConvergence {
		return s.notConverged(s.Iterations, res.Status.String())
	}
	if lambda == 0 && separable(x, t) {
		return s.notConverged(s.Iterations, "correct and incorrect samples are separable, no finite estimate exists")
	}
	s.Converged = true
	return nil
}

func (s *PlattScaler) notConverged(iter int, reason string) error {
	return &ConvergenceError{Method: s.Name(), Estimate: []float64{s.A, s.B}, Iterations: iter, Reason: reason}
}

// Predict returns the calibrated confidence for max probability x.
func (s *PlattScaler) Predict(x float64) float64 { return sigmoid(s.A*x + s.B) }

func (s *PlattScaler) Apply(p Matrix) Matrix { return replaceMax(p, s.Predict) }

func (s *PlattScaler) Record(params *Params) {
	params.PlattA, params.PlattB, params.PlattConverged = s.A, s.B, s.Converged
}

// mean log loss of sigmoid(a*x+b) plus lambda/2*a^2
type logistic struct {
	x, t   []float64
	lambda float64
}

func (l logistic) Func(w []float64) float64 {
	loss := 0.0
	for i, x := range l.x {
		u := w[0]*x + w[1]
		loss += softplus(u) - l.t[i]*u
	}
	return loss/float64(len(l.x)) + 0.5*l.lambda*w[0]*w[0]
}

func (l logistic) Grad(grad, w []float64) {
	var ga, gb float64
	for i, x := range l.x {
		d := sigmoid(w[0]*x+w[1]) - l.t[i]
		ga += d * x
		gb += d
	}
	n := float64(len(l.x))
	grad[0] = ga/n + l.lambda*w[0]
	grad[1] = gb / n
}

func (l logistic) Hess(hess *mat.SymDense, w []float64) {
	var haa, hab, hbb float64
	for _, x := range l.x {
		s := sigmoid(w[0]*x + w[1])
		v := s * (1 - s)
		haa += v * x * x
		hab += v * x
		hbb += v
	}
	n := float64(len(l.x))
	hess.SetSym(0, 0, haa/n+l.lambda)
	hess.SetSym(0, 1, hab/n)
	hess.SetSym(1, 1, hbb/n)
}

func sigmoid(u float64) float64 {
	if u >= 0 {
		return 1 / (1 + math.Exp(-u))
	}
	e := math.Exp(u)
	return e / (1 + e)
}

// log(1 + exp(u))
func softplus(u float64) float64 {
	if u > 0 {
		return u + math.Log1p(math.Exp(-u))
	}
	return math.Log1p(math.Exp(u))
}

func logit(m float64) float64 {
	m = clamp(m, 1e-6, 1-1e-6)
	return math.Log(m / (1 - m))
}

// true if a threshold on x splits the correct samples from the incorrect ones
func separable(x, t []float64) bool {
	loC, hiC := math.Inf(1), math.Inf(-1)
	loW, hiW := math.Inf(1), math.Inf(-1)
	for i, v := range x {
		if t[i] == 1 {
			loC, hiC = math.Min(loC, v), math.Max(hiC, v)
		} else {
			loW, hiW = math.Min(loW, v), math.Max(hiW, v)
		}
	}
	return hiW <= loC || hiC <= loW
}

func allEqual(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

// replaceMax sets the largest entry of each row to f(max) and rescales the other entries so the row still sums to 1.
func replaceMax(p Matrix, f func(float64) float64) Matrix {
	res := make(Matrix, len(p))
	for i, row := range p {
		out := make([]float64, len(row))
		ix, mx := 0, row[0]
		for k, v := range row {
			if v > mx {
				ix, mx = k, v
			}
		}
		c := clamp(f(mx), 0, 1)
		rest := 1 - mx
		for k, v := range row {
			switch {
			case k == ix:
				out[k] = c
			case rest > 0:
				out[k] = v * (1 - c) / rest
			default:
				out[k] = (1 - c) / float64(len(row)-1)
			}
		}
		res[i] = out
	}
	return res
}
