package main

import (
	"flag"
	"fmt"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jnb666/calibrate/calib"
	"github.com/jnb666/calibrate/evalset"
	"github.com/jnb666/calibrate/plots"
	"log"
	"os"
	"strings"
)

// repeated -set Key=value options
type settings []string

func (s *settings) String() string { return strings.Join(*s, ",") }

func (s *settings) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	log.SetFlags(0)
	var configFile, paramsFile, plotDir string
	var markdown bool
	var overrides settings
	flag.StringVar(&configFile, "config", "", "config file (.json or .yaml)")
	flag.StringVar(&paramsFile, "params", "", "calibration parameters file")
	flag.StringVar(&plotDir, "plots", "", "directory to save calibration charts")
	flag.BoolVar(&markdown, "md", false, "print results as a markdown table")
	flag.Var(&overrides, "set", "override config setting as Key=value")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: calibrate [opts] <evalset>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	conf := calib.DefaultConfig()
	var err error
	if configFile != "" {
		conf, err = calib.LoadConfig(configFile)
		CheckErr(err)
	}
	conf, err = applySettings(conf, overrides)
	CheckErr(err)
	if paramsFile != "" {
		conf.ParamsFile = paramsFile
	}
	if conf.DebugLevel >= 1 {
		fmt.Println(conf)
	}

	fmt.Println("load evaluation set:", flag.Arg(0))
	data, err := evalset.Load(flag.Arg(0))
	CheckErr(err)

	c, err := calib.Open(conf)
	CheckErr(err)
	res, err := c.Calibrate(data.Matrix(), data.Targets())
	CheckErr(err)

	fmt.Print(summary(res, markdown))
	if conf.ParamsFile != "" {
		fmt.Println("saved parameters to", conf.ParamsFile)
	}
	if plotDir != "" {
		y, err := calib.Validate(data.Matrix(), data.Targets(), conf.SumTolerance)
		CheckErr(err)
		CheckErr(os.MkdirAll(plotDir, 0755))
		CheckErr(plots.SaveAll(plotDir, data.Matrix(), y, res, data.ClassNames()))
	}
}

func applySettings(conf calib.Config, opts []string) (calib.Config, error) {
	for _, opt := range opts {
		key, val, ok := strings.Cut(opt, "=")
		if !ok {
			return conf, fmt.Errorf("invalid setting %q: expecting Key=value", opt)
		}
		var err error
		if conf, err = conf.SetString(strings.TrimSpace(key), strings.TrimSpace(val)); err != nil {
			return conf, fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return conf, conf.Check()
}

// Metrics before and after temperature scaling followed by the fitted parameters
func summary(res *calib.Result, markdown bool) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"metric", "original", "temperature", "improvement"})
	t.AppendRow(table.Row{"brier score", f4(res.Original.BrierScore), f4(res.Temperature.BrierScore), f4(res.Improvement.Brier)})
	t.AppendRow(table.Row{"ece", f4(res.Original.ECE), f4(res.Temperature.ECE), f4(res.Improvement.ECE)})
	for i := range res.Original.BrierScorePerClass {
		t.AppendRow(table.Row{fmt.Sprintf("brier class %d", i), f4(res.Original.BrierScorePerClass[i]), f4(res.Temperature.BrierScorePerClass[i]), ""})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	p := table.NewWriter()
	p.SetStyle(table.StyleLight)
	p.AppendHeader(table.Row{"parameter", "value"})
	p.AppendRow(table.Row{"temperature", f4(res.Params.Temperature)})
	platt := fmt.Sprintf("a=%.4f b=%.4f", res.Params.PlattA, res.Params.PlattB)
	if !res.Params.PlattConverged {
		platt += " (not converged)"
	}
	p.AppendRow(table.Row{"platt", platt})
	p.AppendRow(table.Row{"isotonic knots", len(res.Params.Isotonic)})

	if markdown {
		return t.RenderMarkdown() + "\n\n" + p.RenderMarkdown() + "\n"
	}
	return t.Render() + "\n" + p.Render() + "\n"
}

func f4(x float64) string { return fmt.Sprintf("%.4f", x) }

func CheckErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
