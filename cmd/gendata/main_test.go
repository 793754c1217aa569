package main

import (
	"github.com/jnb666/calibrate/calib"
	"math"
	"math/rand"
	"testing"
)

func TestGenerate(t *testing.T) {
	probs, labels := generate(rand.New(rand.NewSource(3)), 2000, 5, 2, 1.5)
	if len(probs) != 2000 || len(labels) != 2000 {
		t.Fatal("got", len(probs), len(labels))
	}
	for i, row := range probs {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatal("row", i, "sums to", sum)
		}
	}
	ts := calib.NewTemperatureScaler(calib.DefaultConfig())
	y, err := calib.Onehot(labels, 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := ts.Fit(probs, y); err != nil {
		t.Fatal(err)
	}
	t.Log("fitted temperature", ts.T)
	if ts.T < 1.7 || ts.T > 2.3 {
		t.Error("got temperature", ts.T, "expect close to 2")
	}
}
