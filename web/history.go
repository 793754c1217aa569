package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/gorilla/mux"
	"github.com/jnb666/calibrate/calib"
	"github.com/jnb666/calibrate/plots"
	"github.com/jnb666/calibrate/stats"
	"gonum.org/v1/plot"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"sync"
)

const (
	plotWidth  = 600
	plotHeight = 450
)

type HistoryPage struct {
	*Templates
	Heading        string
	Current        *calib.Params
	Runs           []Run
	BrierAvg       stats.Average
	BrierScaledAvg stats.Average
	ECEAvg         stats.Average
	ECEScaledAvg   stats.Average
	TempAvg        stats.Average
	Latest         template.HTML
	file           string
	sync.Mutex
}

// One row of the history table
type Run struct {
	calib.Snapshot
	Index int
	When  string
}

// Base data for handler functions to view the calibration history stored in file
func NewHistoryPage(t *Templates, file string) *HistoryPage {
	p := &HistoryPage{file: file}
	p.Templates = t.Select("/history")
	return p
}

// Handler function for the history table
func (p *HistoryPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Lock()
		defer p.Unlock()
		doc, err := calib.LoadDocument(p.file)
		if err != nil {
			logError(w, err)
			return
		}
		if err := p.update(doc); err != nil {
			logError(w, err)
			return
		}
		p.Exec(w, "history", p)
	}
}

func (p *HistoryPage) update(doc calib.Document) error {
	p.Heading = fmt.Sprintf("%s: %d runs", p.file, len(doc.History))
	p.Current = nil
	if len(doc.History) > 0 {
		params := doc.Params
		p.Current = &params
	}
	p.Runs = make([]Run, len(doc.History))
	p.BrierAvg, p.BrierScaledAvg = stats.Average{}, stats.Average{}
	p.ECEAvg, p.ECEScaledAvg, p.TempAvg = stats.Average{}, stats.Average{}, stats.Average{}
	for i, s := range doc.History {
		p.Runs[i] = Run{Snapshot: s, Index: i + 1, When: s.Time.Format("2006-01-02 15:04:05")}
		p.BrierAvg.Add(s.Original.BrierScore)
		p.BrierScaledAvg.Add(s.Temperature.BrierScore)
		p.ECEAvg.Add(s.Original.ECE)
		p.ECEScaledAvg.Add(s.Temperature.ECE)
		p.TempAvg.Add(s.Params.Temperature)
	}
	p.Latest = ""
	if n := len(doc.History); n > 0 {
		plt, err := reliabilityPlot(doc.History[n-1])
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := plots.WriteSVG(plt, &buf, plotWidth, plotHeight); err != nil {
			return err
		}
		p.Latest = template.HTML(buf.String())
	}
	return nil
}

// Handler function to return the current parameters document as json
func (p *HistoryPage) Params() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := calib.LoadDocument(p.file)
		if err != nil {
			logError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			log.Println("encode params:", err)
		}
	}
}

// Handler function to generate a chart for one run
func (p *HistoryPage) Plot() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		run, _ := strconv.Atoi(vars["run"])
		doc, err := calib.LoadDocument(p.file)
		if err != nil {
			logError(w, err)
			return
		}
		if run < 1 || run > len(doc.History) {
			http.NotFound(w, r)
			return
		}
		snap := doc.History[run-1]
		var plt *plot.Plot
		switch vars["kind"] {
		case "reliability":
			plt, err = reliabilityPlot(snap)
		case "brier":
			plt, err = plots.BrierPerClass(snap.Original.BrierScorePerClass, classNames(snap.Classes))
		default:
			http.NotFound(w, r)
			return
		}
		if err != nil {
			logError(w, err)
			return
		}
		var buf bytes.Buffer
		if err := plots.WriteSVG(plt, &buf, plotWidth, plotHeight); err != nil {
			logError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		buf.WriteTo(w)
	}
}

func reliabilityPlot(s calib.Snapshot) (*plot.Plot, error) {
	return plots.Reliability(
		plots.Series{Name: "original", Bins: s.Original.Reliability},
		plots.Series{Name: fmt.Sprintf("T=%.3f", s.Params.Temperature), Bins: s.Temperature.Reliability},
	)
}

func classNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}
