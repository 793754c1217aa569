package web

import (
	"github.com/gorilla/mux"
	"github.com/jnb666/calibrate/calib"
	"net/http"
)

// Server settings
type Options struct {
	ParamsFile string
	ConfigFile string
	User       string
	Password   string
}

// NewRouter sets up the report pages. Basic auth is enabled if a user name is given.
func NewRouter(opts Options, conf calib.Config) (*mux.Router, error) {
	t, err := NewTemplates()
	if err != nil {
		return nil, err
	}
	historyPage := NewHistoryPage(t.Clone(), opts.ParamsFile)
	configPage := NewConfigPage(t.Clone(), conf, opts.ConfigFile)

	r := mux.NewRouter()
	r.Handle("/", http.RedirectHandler("/history", http.StatusFound))
	r.HandleFunc("/history", historyPage.Base())
	r.HandleFunc("/params", historyPage.Params())
	r.HandleFunc("/plot/{run:[0-9]+}/{kind:(?:reliability|brier)}", historyPage.Plot())

	r.HandleFunc("/config", configPage.Base())
	r.HandleFunc("/config/save", configPage.Save()).Methods("POST")

	if opts.User != "" {
		r.Use(newAuthenticator(opts.User, opts.Password).Middleware)
	}
	return r, nil
}
