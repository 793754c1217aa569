package main

import (
	"flag"
	"fmt"
	"github.com/jnb666/calibrate/calib"
	"github.com/jnb666/calibrate/evalset"
	"gonum.org/v1/gonum/floats"
	"math"
	"math/rand"
	"os"
)

// Generate a synthetic evaluation set whose logits have been multiplied by temp, so the
// temperature fit should recover a value close to temp. Optionally writes the default config.
func main() {
	var samples, classes int
	var temp, spread float64
	var seed int64
	var out, confFile string
	flag.IntVar(&samples, "samples", 1000, "number of samples")
	flag.IntVar(&classes, "classes", 10, "number of classes")
	flag.Float64Var(&temp, "temp", 2, "true temperature")
	flag.Float64Var(&spread, "spread", 1.5, "standard deviation of the logits")
	flag.Int64Var(&seed, "seed", 1, "random number seed")
	flag.StringVar(&out, "out", "evalset.json", "output file (.json, .yaml or .gob)")
	flag.StringVar(&confFile, "config", "", "also write the default config to this file")
	flag.Parse()
	if samples < 1 || classes < 2 || temp <= 0 {
		fmt.Fprintln(os.Stderr, "samples and temp must be positive and at least 2 classes are needed")
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(seed))
	probs, labels := generate(rng, samples, classes, temp, spread)
	data := evalset.New(classes, probs, labels)
	CheckErr(data.Save(out))
	fmt.Printf("saved %d samples with %d classes to %s\n", samples, classes, out)

	if confFile != "" {
		conf := calib.DefaultConfig()
		fmt.Println(conf)
		CheckErr(conf.Save(confFile))
	}
}

// labels are drawn from softmax(z) so the unscaled logits are perfectly calibrated
func generate(rng *rand.Rand, n, classes int, temp, spread float64) ([][]float64, []int) {
	probs := make([][]float64, n)
	labels := make([]int, n)
	for i := range probs {
		logits := make([]float64, classes)
		for j := range logits {
			logits[j] = spread * rng.NormFloat64()
		}
		q := softmax(logits)
		u := rng.Float64()
		labels[i] = classes - 1
		for j, v := range q {
			if u < v {
				labels[i] = j
				break
			}
			u -= v
		}
		probs[i] = calib.ApplyTemperature(calib.Matrix{q}, 1/temp)[0]
	}
	return probs, labels
}

func softmax(x []float64) []float64 {
	out := make([]float64, len(x))
	mx := floats.Max(x)
	for i, v := range x {
		out[i] = math.Exp(v - mx)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

func CheckErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
