package calib

import (
	"errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jnb666/calibrate/stats"
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func randomSet(rng *rand.Rand, n, c int) (Matrix, []int) {
	p := make(Matrix, n)
	y := make([]int, n)
	for i := range p {
		p[i] = make([]float64, c)
		for k := range p[i] {
			p[i][k] = 3 * rng.NormFloat64()
		}
		softmax(p[i])
		y[i] = rng.Intn(c)
	}
	return p, y
}

func TestBrierScenario(t *testing.T) {
	p := Matrix{{0.9, 0.1}, {0.2, 0.8}}
	m, err := Evaluate(p, IndexLabels([]int{0, 1}), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	t.Log(m)
	if math.Abs(m.BrierScore-0.025) > 1e-12 {
		t.Error("got brier", m.BrierScore, "expect", 0.025)
	}
	expect := []float64{0.025, 0.025}
	if diff := cmp.Diff(expect, m.BrierScorePerClass, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Error("per class brier mismatch (-want +got):\n", diff)
	}
}

func TestBrierPerfect(t *testing.T) {
	p := Matrix{{1, 0, 0}, {0, 0, 1}, {0, 1, 0}}
	m, err := Evaluate(p, IndexLabels([]int{0, 2, 1}), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if m.BrierScore != 0 {
		t.Error("got brier", m.BrierScore, "expect 0")
	}
	if m.ECE != 0 {
		t.Error("got ece", m.ECE, "expect 0")
	}
}

func TestOneHotMatchesIndex(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p, y := randomSet(rng, 50, 4)
	y1h, err := Onehot(y, 4)
	if err != nil {
		t.Fatal(err)
	}
	conf := DefaultConfig()
	m1, err := Evaluate(p, IndexLabels(y), conf)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := Evaluate(p, OneHotLabels(y1h), conf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m1, m2) {
		t.Error("got", m2, "expect", m1)
	}
	if got := Unhot(y1h); !reflect.DeepEqual(got, y) {
		t.Error("unhot got", got, "expect", y)
	}
}

func TestUniformECE(t *testing.T) {
	p := Matrix{{0.5, 0.5}, {0.5, 0.5}, {0.5, 0.5}, {0.5, 0.5}}
	m, err := Evaluate(p, IndexLabels([]int{0, 1, 0, 1}), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if m.ECE > 1e-12 {
		t.Error("got ece", m.ECE, "expect 0")
	}
	expect := []stats.Bin{{Confidence: 0.5, Accuracy: 0.5, Count: 8}}
	if !reflect.DeepEqual(m.Reliability, expect) {
		t.Error("got", m.Reliability, "expect", expect)
	}
}

func TestMetricProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	conf := DefaultConfig()
	for run := 0; run < 20; run++ {
		n, c := 1+rng.Intn(200), 2+rng.Intn(8)
		p, y := randomSet(rng, n, c)
		m1, err := Evaluate(p, IndexLabels(y), conf)
		if err != nil {
			t.Fatal(err)
		}
		m2, _ := Evaluate(p, IndexLabels(y), conf)
		if !reflect.DeepEqual(m1, m2) {
			t.Error("evaluate is not repeatable")
		}
		if m1.BrierScore < 0 {
			t.Error("negative brier score", m1.BrierScore)
		}
		if m1.ECE < 0 || m1.ECE > 1 {
			t.Error("ece out of range", m1.ECE)
		}
		total := 0
		for _, b := range m1.Reliability {
			total += b.Count
		}
		if total != n*c {
			t.Errorf("reliability bins hold %d entries, expect %d", total, n*c)
		}
	}
}

func TestBoundaryValues(t *testing.T) {
	// entries of exactly 0 and 1 must land in the first and last bins
	p := Matrix{{1, 0}, {0, 1}, {0.3, 0.7}}
	m, err := Evaluate(p, IndexLabels([]int{1, 1, 0}), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, b := range m.Reliability {
		n += b.Count
	}
	if n != 6 {
		t.Error("got", n, "binned entries expect 6")
	}
	first, last := m.Reliability[0], m.Reliability[len(m.Reliability)-1]
	if first.Confidence != 0 || first.Count != 2 {
		t.Error("first bin", first)
	}
	if last.Confidence != 1 || last.Count != 2 {
		t.Error("last bin", last)
	}
}

func TestInvalidInput(t *testing.T) {
	conf := DefaultConfig()
	tests := []struct {
		name string
		p    Matrix
		y    Labels
	}{
		{"empty", Matrix{}, IndexLabels([]int{})},
		{"count mismatch", Matrix{{0.5, 0.5}}, IndexLabels([]int{0, 1})},
		{"ragged", Matrix{{0.5, 0.5}, {1}}, IndexLabels([]int{0, 0})},
		{"label range", Matrix{{0.5, 0.5}}, IndexLabels([]int{2})},
		{"negative", Matrix{{-0.1, 1.1}}, IndexLabels([]int{0})},
		{"sum", Matrix{{0.5, 0.6}}, IndexLabels([]int{0})},
		{"nan", Matrix{{math.NaN(), 1}}, IndexLabels([]int{0})},
		{"onehot width", Matrix{{0.5, 0.5}}, OneHotLabels([][]float64{{1, 0, 0}})},
		{"all zero label", Matrix{{0.9, 0.1}, {0.2, 0.8}}, OneHotLabels([][]float64{{0, 0}, {0, 0}})},
		{"multi hot label", Matrix{{0.9, 0.1}, {0.2, 0.8}}, OneHotLabels([][]float64{{1, 1}, {0, 1}})},
		{"soft label", Matrix{{0.9, 0.1}, {0.2, 0.8}}, OneHotLabels([][]float64{{0.5, 0.5}, {0, 1}})},
		{"nan label", Matrix{{0.9, 0.1}}, OneHotLabels([][]float64{{math.NaN(), 1}})},
		{"both label forms", Matrix{{0.9, 0.1}}, Labels{Index: []int{0}, OneHot: [][]float64{{1, 0}}}},
	}
	for _, test := range tests {
		_, err := Evaluate(test.p, test.y, conf)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: got error %v expect ErrInvalidInput", test.name, err)
		}
	}
}
