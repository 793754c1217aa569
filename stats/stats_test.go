package stats

import (
	"math"
	"reflect"
	"testing"
)

func TestAverage(t *testing.T) {
	var s Average
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Add(x)
	}
	if math.Abs(s.Mean-5) > 1e-12 {
		t.Error("got mean", s.Mean, "expect", 5)
	}
	if math.Abs(s.StdDev-2.138089935) > 1e-8 {
		t.Error("got stddev", s.StdDev)
	}
	t.Log(s.String())
}

func TestBinEdges(t *testing.T) {
	b := NewBins(10)
	// linspace(0, 1, 11)[3] is 0.30000000000000004 so 0.3 falls in bin 2
	if k := b.Index(0.3); k != 2 {
		t.Error("got bin", k, "expect", 2)
	}
	tests := []struct {
		v float64
		k int
	}{{0, 0}, {0.05, 0}, {0.1, 1}, {0.95, 9}, {0.99999, 9}, {1, 9}}
	for _, test := range tests {
		if k := b.Index(test.v); k != test.k {
			t.Errorf("value %g: got bin %d expect %d", test.v, k, test.k)
		}
	}
}

func TestBinsCount(t *testing.T) {
	b := NewBins(15)
	vals := []float64{0, 0, 1, 1, 0.5, 0.2, 1.0 / 15, 2.0 / 15, 14.0 / 15}
	for i, v := range vals {
		b.Add(v, float64(i%2))
	}
	if n := b.Total(); n != len(vals) {
		t.Error("got total", n, "expect", len(vals))
	}
	sum := 0
	for _, bin := range b.Emit() {
		sum += bin.Count
	}
	if sum != len(vals) {
		t.Error("emitted count", sum, "expect", len(vals))
	}
}

func TestEmit(t *testing.T) {
	b := NewBins(2)
	b.Add(0.25, 0)
	b.Add(0.75, 1)
	b.Add(0.25, 1)
	expect := []Bin{{Confidence: 0.25, Accuracy: 0.5, Count: 2}, {Confidence: 0.75, Accuracy: 1, Count: 1}}
	if got := b.Emit(); !reflect.DeepEqual(got, expect) {
		t.Error("got", got, "expect", expect)
	}
	if gap := b.Gap(); math.Abs(gap-(2*0.25+0.25)) > 1e-12 {
		t.Error("got gap", gap)
	}
	empty := NewBins(5).Emit()
	if len(empty) != 0 {
		t.Error("expect no bins, got", empty)
	}
}
