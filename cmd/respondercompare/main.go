// respondercompare compares cell population relative frequencies between
// responders and non-responders over the statistical cohort (melanoma,
// miraclib, PBMC) using the two-sided Mann-Whitney U test, and reports the
// populations with a significant difference at p < 0.05.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/loblawbio/trialstats/cohort"
	"github.com/loblawbio/trialstats/compare"
	"github.com/loblawbio/trialstats/db"
)

// Special value that is to be set using ldflags
// E.g.: go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"
var builddate string

func main() {
	fmt.Fprintf(os.Stderr, "This respondercompare binary was built at: %s\n", builddate)

	var dbPath string

	flag.StringVar(&dbPath, "db", "", "Path to the sqlite store produced by loadcounts.")

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

	freq, integrity, err := d.CohortFrequencyTable(cohort.Statistical())
	if err != nil {
		log.Fatalln(err)
	}
	for _, bad := range integrity {
		log.Println("Skipped:", bad.Error())
	}

	samples := map[string]struct{}{}
	for _, row := range freq {
		samples[row.Sample] = struct{}{}
	}
	fmt.Printf("Statistical cohort: %d frequency rows, %d samples\n\n", len(freq), len(samples))

	results := compare.Responders(freq)

	fmt.Println("=== Statistical Comparison: Responders vs Non-Responders ===")
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "population\tresponder_median\tnon_responder_median\tU_statistic\tp_value\tsignificant (p<0.05)")
	var significant []string
	for _, row := range results {
		if row.Err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%v\n", row.Population, row.Err)
			continue
		}

		sig := "No"
		if row.Significant {
			sig = "Yes"
			significant = append(significant, row.Population)
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.1f\t%.6f\t%s\n",
			row.Population, row.ResponderMedian, row.NonResponderMedian, row.UStatistic, row.PValue, sig)
	}
	w.Flush()

	fmt.Printf("\n%d of %d populations show a significant difference (p < 0.05).\n", len(significant), len(results))
	if len(significant) > 0 {
		fmt.Println("Significant populations:", strings.Join(significant, ", "))
	}
}
