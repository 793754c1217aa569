package web

import (
	"fmt"
	"github.com/jnb666/calibrate/calib"
	"log"
	"net/http"
	"sync"
)

type ConfigPage struct {
	*Templates
	Fields []Field
	conf   calib.Config
	file   string
	sync.Mutex
}

type Field struct {
	Name  string
	Value string
	Error string
}

// Base data for handler functions to view and update the calibration config stored in file
func NewConfigPage(t *Templates, conf calib.Config, file string) *ConfigPage {
	p := &ConfigPage{conf: conf, file: file}
	p.Templates = t.Select("/config")
	p.Fields = getFields(conf)
	return p
}

// Handler function for the config template
func (p *ConfigPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Lock()
		defer p.Unlock()
		p.Exec(w, "config", p)
	}
}

// Handler function for the config form save action
func (p *ConfigPage) Save() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Lock()
		defer p.Unlock()
		r.ParseForm()
		haveErrors := false
		conf := p.conf
		for i, fld := range p.Fields {
			val := r.Form.Get(fld.Name)
			if val == "" {
				val = fld.Value
			}
			var err error
			p.Fields[i].Value = val
			p.Fields[i].Error = ""
			if conf, err = conf.SetString(fld.Name, val); err != nil {
				p.Fields[i].Error = "invalid syntax"
				haveErrors = true
			}
		}
		if !haveErrors {
			if err := conf.Check(); err != nil {
				p.Fields[0].Error = err.Error()
				haveErrors = true
			}
		}
		if !haveErrors {
			if p.file != "" {
				if err := conf.Save(p.file); err != nil {
					logError(w, err)
					return
				}
				log.Println("saved config to", p.file)
			}
			p.conf = conf
		}
		http.Redirect(w, r, "/config", http.StatusFound)
	}
}

// Current config settings
func (p *ConfigPage) Config() calib.Config {
	p.Lock()
	defer p.Unlock()
	return p.conf
}

func getFields(conf calib.Config) []Field {
	var flds []Field
	for _, key := range conf.Fields() {
		// the report always serves the file it was started with
		if key == "ParamsFile" {
			continue
		}
		flds = append(flds, Field{Name: key, Value: fmt.Sprint(conf.Get(key))})
	}
	return flds
}
