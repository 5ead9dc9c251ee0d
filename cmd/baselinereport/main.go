// baselinereport summarizes the composition of the baseline cohort (melanoma,
// miraclib, PBMC, time_from_treatment_start = 0): samples per project,
// distinct subjects per response and per sex, and the sample list itself. The
// responder/non-responder subject counts here are the cross-check for the
// group sizes entering the statistical comparison.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/loblawbio/trialstats/breakdown"
	"github.com/loblawbio/trialstats/cohort"
	"github.com/loblawbio/trialstats/db"
)

// Special value that is to be set using ldflags
// E.g.: go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"
var builddate string

func main() {
	fmt.Fprintf(os.Stderr, "This baselinereport binary was built at: %s\n", builddate)

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

	baseline := cohort.Baseline()

	samples, err := d.SampleRows(baseline)
	if err != nil {
		log.Fatalln(err)
	}

	subjects := map[string]struct{}{}
	for _, s := range samples {
		subjects[s.Subject] = struct{}{}
	}

	fmt.Println("=== Baseline Cohort: melanoma, miraclib, PBMC, t=0 ===")
	fmt.Printf("\n%d samples from %d subjects\n\n", len(samples), len(subjects))

	projects, err := breakdown.SamplesPerProject(d, baseline)
	if err != nil {
		log.Fatalln(err)
	}
	responses, err := breakdown.SubjectsByResponse(d, baseline)
	if err != nil {
		log.Fatalln(err)
	}
	sexes, err := breakdown.SubjectsBySex(d, baseline)
	if err != nil {
		log.Fatalln(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "project\tsample_count")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%d\n", p.Project, p.SampleCount)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "response\tsubject_count")
	for _, r := range responses {
		fmt.Fprintf(w, "%s\t%d\n", r.Response, r.SubjectCount)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "sex\tsubject_count")
	for _, s := range sexes {
		fmt.Fprintf(w, "%s\t%d\n", s.Sex, s.SubjectCount)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "sample\tsubject\tproject\tresponse\tsex\tage")
	for _, s := range samples {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", s.Sample, s.Subject, s.Project, s.Response, s.Sex, s.Age)
	}
	w.Flush()
}
