package main

import (
	"github.com/loblawbio/trialstats/db"
)

// Global holds everything the handlers need. The store handle lives here and
// is passed explicitly; there is no hidden process-wide instance.
type Global struct {
	log logger
	db  *db.DB

	Site string
}

type logger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}
