// freqtable prints the relative frequency of each cell population per sample,
// optionally restricted to a canonical cohort, and optionally exports the
// table as CSV sorted by (sample, population).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/gocarina/gocsv"

	"github.com/loblawbio/trialstats/cohort"
	"github.com/loblawbio/trialstats/db"
)

// Special value that is to be set using ldflags
// E.g.: go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"
var builddate string

func main() {
	fmt.Fprintf(os.Stderr, "This freqtable binary was built at: %s\n", builddate)

	var dbPath, outPath, cohortName string

	flag.StringVar(&dbPath, "db", "", "Path to the sqlite store produced by loadcounts.")
	flag.StringVar(&outPath, "out", "", "(Optional) Path for a CSV export of the table.")
	flag.StringVar(&cohortName, "cohort", "all", "(Optional) Cohort to restrict to: all, statistical, or baseline.")

	flag.Parse()

	if dbPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	d, err := db.Open(dbPath)
	if err != nil {
		log.Fatalln(err)
	}
	defer d.Close()

	rows, integrity, err := tableFor(d, cohortName)
	if err != nil {
		log.Fatalln(err)
	}
	for _, bad := range integrity {
		log.Println("Skipped:", bad.Error())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "sample\ttotal_count\tpopulation\tcount\tpercentage")
	samples := map[string]struct{}{}
	for _, row := range rows {
		samples[row.Sample] = struct{}{}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%.2f\n", row.Sample, row.TotalCount, row.Population, row.Count, row.Percentage)
	}
	w.Flush()

	fmt.Printf("\n%d rows total (%d samples)\n", len(rows), len(samples))

	if outPath != "" {
		out, err := os.Create(outPath)
		if err != nil {
			log.Fatalln(err)
		}
		defer out.Close()

		if err := gocsv.Marshal(rows, out); err != nil {
			log.Fatalln(err)
		}
		log.Println("Saved to", outPath)
	}
}

func tableFor(d *db.DB, cohortName string) ([]db.FrequencyRow, []db.IntegrityError, error) {
	switch cohortName {
	case "all":
		return d.FrequencyTable()
	case "statistical", "baseline":
		f := cohort.Statistical()
		if cohortName == "baseline" {
			f = cohort.Baseline()
		}
		return d.FrequencyTableFor(f)
	}

	return nil, nil, fmt.Errorf("unknown cohort %q: want all, statistical, or baseline", cohortName)
}
