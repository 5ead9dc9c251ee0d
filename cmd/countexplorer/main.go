// countexplorer computes descriptive statistics for one cell population over
// an ad-hoc cohort, selected by any combination of filter attributes:
//
//	countexplorer -db trial.db -population b_cell \
//	    -where condition=melanoma -where sex=M -where time_from_treatment_start=0
//
// It prints sample count, mean, median, standard deviation, distinct subject
// count, and a histogram of the count distribution.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"

	"github.com/loblawbio/trialstats/cohort"
	"github.com/loblawbio/trialstats/db"
)

// Special value that is to be set using ldflags
// E.g.: go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"
var builddate string

// whereFlags collects repeated -where attr=v1,v2 arguments.
type whereFlags []string

func (w *whereFlags) String() string { return strings.Join(*w, "; ") }

func (w *whereFlags) Set(value string) error {
	*w = append(*w, value)
	return nil
}

func main() {
	fmt.Fprintf(os.Stderr, "This countexplorer binary was built at: %s\n", builddate)

	var dbPath, population string
	var wheres whereFlags

	flag.StringVar(&dbPath, "db", "", "Path to the sqlite store produced by loadcounts.")
	flag.StringVar(&population, "population", "", "Cell population to summarize (e.g. b_cell).")
	flag.Var(&wheres, "where", "(Optional, repeatable) Filter as attribute=value1,value2. Recognized attributes: condition, sex, treatment, response, sample_type, project, time_from_treatment_start, population.")

	flag.Parse()

	if dbPath == "" || population == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	var f cohort.Filter
	if err := f.ParseField("population", []string{population}); err != nil {
		log.Fatalln(err)
	}
	for _, clause := range wheres {
		parts := strings.SplitN(clause, "=", 2)
		if len(parts) != 2 {
			log.Fatalf("malformed -where %q: want attribute=value1,value2", clause)
		}
		if err := f.ParseField(parts[0], strings.Split(parts[1], ",")); err != nil {
			log.Fatalln(err)
		}
	}

	d, err := db.Open(dbPath)
	if err != nil {
		log.Fatalln(err)
	}
	defer d.Close()

	rows, err := d.CohortRows(f)
	if err != nil {
		log.Fatalln(err)
	}

	if len(rows) == 0 {
		fmt.Println("No data matches the selected filters.")
		return
	}

	counts := make([]float64, 0, len(rows))
	subjects := map[string]struct{}{}
	for _, row := range rows {
		counts = append(counts, float64(row.Count))
		subjects[row.Subject] = struct{}{}
	}

	mean, err := stats.Mean(counts)
	if err != nil {
		log.Fatalln(err)
	}
	median, err := stats.Median(counts)
	if err != nil {
		log.Fatalln(err)
	}
	sd, err := stats.StandardDeviationSample(counts)
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Printf("%s over %d samples (%d distinct subjects)\n", population, len(counts), len(subjects))
	fmt.Printf("mean %.2f  median %.2f  stddev %.2f\n\n", mean, median, sd)

	// The bucket count is arbitrary; the datasets here are hundreds of
	// samples at most.
	hist := histogram.Hist(10, counts)
	if err := histogram.Fprint(os.Stdout, hist, histogram.Linear(40)); err != nil {
		log.Fatalln(err)
	}
}
