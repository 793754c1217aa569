package calib

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// overconfident predictions: labels are drawn from softmax(z) but reported as softmax(scale*z)
func sharpenedSet(rng *rand.Rand, n, c int, scale float64) (Matrix, [][]float64) {
	p := make(Matrix, n)
	y := make([][]float64, n)
	for i := range p {
		z := make([]float64, c)
		for k := range z {
			z[k] = 1.5 * rng.NormFloat64()
		}
		q := append([]float64{}, z...)
		softmax(q)
		u, cls := rng.Float64(), c-1
		for k, v := range q {
			if u < v {
				cls = k
				break
			}
			u -= v
		}
		y[i] = make([]float64, c)
		y[i][cls] = 1
		for k := range z {
			z[k] *= scale
		}
		softmax(z)
		p[i] = z
	}
	return p, y
}

func TestTemperatureIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p, _ := randomSet(rng, 20, 5)
	res := ApplyTemperature(p, 1)
	for i := range p {
		for k := range p[i] {
			if math.Abs(res[i][k]-p[i][k]) > 1e-6 {
				t.Fatalf("row %d: got %v expect %v", i, res[i], p[i])
			}
		}
	}
}

func TestTemperatureRecovers(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p, y := sharpenedSet(rng, 5000, 3, 2)
	s := NewTemperatureScaler(DefaultConfig())
	if err := s.Fit(p, y); err != nil {
		t.Fatal(err)
	}
	t.Logf("temperature %.4f after %d iterations", s.T, s.Iterations)
	if s.T < 1.7 || s.T > 2.3 {
		t.Error("got temperature", s.T, "expect about 2")
	}
	if NLL(p, y, s.T) > NLL(p, y, 1) {
		t.Error("fitted NLL worse than identity")
	}
}

func TestTemperatureNeverWorse(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	conf := DefaultConfig()
	for _, scale := range []float64{0.3, 0.7, 1, 1.5, 4} {
		p, y := sharpenedSet(rng, 300, 4, scale)
		s := NewTemperatureScaler(conf)
		if err := s.Fit(p, y); err != nil {
			t.Fatal(err)
		}
		if s.T < conf.TempMin || s.T > conf.TempMax {
			t.Error("temperature out of bounds", s.T)
		}
		if NLL(p, y, s.T) > NLL(p, y, 1) {
			t.Errorf("scale %g: NLL at T=%g worse than identity", scale, s.T)
		}
	}
}

func TestTemperaturePerfect(t *testing.T) {
	p := Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 0}}
	y := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 0}}
	s := NewTemperatureScaler(DefaultConfig())
	if err := s.Fit(p, y); err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.T-1) > 1e-3 {
		t.Error("got temperature", s.T, "expect 1")
	}
}

func TestTemperatureBounds(t *testing.T) {
	// predictions unrelated to labels want the flattest distribution available
	rng := rand.New(rand.NewSource(5))
	p, yi := randomSet(rng, 400, 3)
	y, _ := Onehot(yi, 3)
	conf := DefaultConfig()
	conf.TempMax = 3
	s := NewTemperatureScaler(conf)
	if err := s.Fit(p, y); err != nil {
		t.Fatal(err)
	}
	if s.T != 3 {
		t.Error("got temperature", s.T, "expect upper bound 3")
	}
}

func TestTemperatureGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	p, y := sharpenedSet(rng, 50, 4, 1.5)
	f := newNLL(p, y)
	for _, temp := range []float64{0.5, 1, 2.5} {
		_, g := f.eval(temp)
		h := 1e-5
		f1, _ := f.eval(temp + h)
		f0, _ := f.eval(temp - h)
		num := (f1 - f0) / (2 * h)
		if math.Abs(g-num) > 1e-5*math.Max(1, math.Abs(num)) {
			t.Errorf("T=%g: analytic gradient %g numeric %g", temp, g, num)
		}
	}
}

func TestTemperatureErrors(t *testing.T) {
	s := NewTemperatureScaler(DefaultConfig())
	if err := s.Fit(Matrix{}, nil); !errors.Is(err, ErrInvalidInput) {
		t.Error("got", err, "expect ErrInvalidInput")
	}
	conf := DefaultConfig()
	conf.TempMaxIter = 1
	conf.TempFuncTol = 0
	conf.TempGradTol = 0
	rng := rand.New(rand.NewSource(13))
	p, y := sharpenedSet(rng, 200, 3, 3)
	s = NewTemperatureScaler(conf)
	err := s.Fit(p, y)
	var cerr *ConvergenceError
	if !errors.As(err, &cerr) || !errors.Is(err, ErrNotConverged) {
		t.Fatal("got", err, "expect ConvergenceError")
	}
	if cerr.Estimate[0] != s.T {
		t.Error("estimate", cerr.Estimate, "does not match", s.T)
	}
}
