// loadcounts initializes the clinical trial store and loads a cell-count CSV
// into it. Reloading the same file is a no-op; use -replace to discard an
// existing store and load a fresh dataset.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/loblawbio/trialstats"
	"github.com/loblawbio/trialstats/db"
)

// Special value that is to be set using ldflags
// E.g.: go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"
var builddate string

func main() {
	fmt.Fprintf(os.Stderr, "This loadcounts binary was built at: %s\n", builddate)

	var csvPath, dbPath string
	var replace bool

	flag.StringVar(&csvPath, "csv", "", "Path to the cell-count CSV file (comma- or tab-delimited).")
	flag.StringVar(&dbPath, "db", "", "Path to the sqlite store. Created if absent.")
	flag.BoolVar(&replace, "replace", false, "(Optional) Drop and recreate the store before loading. Without this, loading is additive and idempotent.")

	flag.Parse()

	if csvPath == "" || dbPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		log.Fatalln(err)
	}
	defer f.Close()

	rows, err := trialstats.ReadCellCounts(f)
	if err != nil {
		log.Fatalln(err)
	}
	log.Println("Parsed", len(rows), "records from", csvPath)

	d, err := db.Open(dbPath)
	if err != nil {
		log.Fatalln(err)
	}
	defer d.Close()

	if replace {
		if err := d.Replace(); err != nil {
			log.Fatalln(err)
		}
		log.Println("Replaced existing store")
	} else if err := d.Initialize(); err != nil {
		log.Fatalln(err)
	}

	rep, err := d.Ingest(rows)
	if err != nil {
		log.Fatalln(err)
	}

	// Suppressed conflicts and rejected records are data-quality problems in
	// the source file. Surface every one of them.
	for _, rowErr := range rep.RowErrors {
		log.Println("Rejected", rowErr.Error())
	}
	for _, id := range rep.SubjectConflicts {
		log.Println("Ignored conflicting duplicate rows for subject", id)
	}
	for _, id := range rep.SampleConflicts {
		log.Println("Ignored conflicting duplicate rows for sample", id)
	}

	log.Println(rep.Summary())
}
