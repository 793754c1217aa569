package main

import (
	"flag"
	"fmt"
	"github.com/jnb666/calibrate/calib"
	"github.com/jnb666/calibrate/web"
	"log"
	"net/http"
	"os"
)

func main() {
	log.SetFlags(0)
	var opts web.Options
	var addr string
	flag.StringVar(&opts.ConfigFile, "config", "", "config file to view and update")
	flag.StringVar(&opts.User, "user", os.Getenv("CALWEB_USER"), "basic auth user name, no auth if empty")
	flag.StringVar(&opts.Password, "password", os.Getenv("CALWEB_PASSWORD"), "basic auth password")
	flag.StringVar(&addr, "addr", ":8080", "address to listen on")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: calweb [opts] <params.json>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	opts.ParamsFile = flag.Arg(0)

	conf := calib.DefaultConfig()
	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err == nil {
			conf, err = calib.LoadConfig(opts.ConfigFile)
			CheckErr(err)
		}
	}
	conf.ParamsFile = opts.ParamsFile

	r, err := web.NewRouter(opts, conf)
	CheckErr(err)
	fmt.Printf("serving web page at http://localhost%s\n", addr)
	CheckErr(http.ListenAndServe(addr, r))
}

func CheckErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
