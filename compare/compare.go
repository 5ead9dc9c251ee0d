// Package compare partitions a cohort's relative-frequency observations by a
// binary grouping attribute and tests each cell population for a distribution
// difference between the two groups, using the two-sided Mann-Whitney U test.
// The test choice is fixed; it is not a pluggable strategy.
package compare

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/loblawbio/trialstats/db"
	"github.com/loblawbio/trialstats/mannwhitney"
)

// Alpha is the fixed significance threshold.
const Alpha = 0.05

// Observation is one (sample, population) frequency joined with the value of
// the grouping attribute.
type Observation struct {
	Sample     string
	Population string
	Group      string
	Percentage float64
}

// Row is the per-population comparison result. When a population has too few
// observations in either group for the test to be defined, Err carries the
// ComparisonError and the numeric fields are zero; the other populations are
// unaffected.
type Row struct {
	Population         string  `json:"population"`
	ResponderMedian    float64 `json:"responder_median"`
	NonResponderMedian float64 `json:"non_responder_median"`
	UStatistic         float64 `json:"u_statistic"`
	PValue             float64 `json:"p_value"`
	Significant        bool    `json:"significant"`
	Err                error   `json:"-"`
}

// ComparisonError reports a population whose group sizes leave the test
// undefined. It is recorded per population, never aborting the full
// comparison.
type ComparisonError struct {
	Population string
	NA, NB     int
}

func (e ComparisonError) Error() string {
	return fmt.Sprintf("compare: population %q: test undefined for group sizes %d and %d", e.Population, e.NA, e.NB)
}

// Compare runs the per-population test over observations already restricted
// to a single cohort. groupA and groupB name the two accepted values of the
// grouping attribute; observations carrying any other value are ignored.
// Exactly one Row is returned per distinct population present in the input,
// sorted alphabetically.
func Compare(observations []Observation, groupA, groupB string) []Row {
	groups := map[string]map[string][]float64{}
	for _, obs := range observations {
		if obs.Group != groupA && obs.Group != groupB {
			continue
		}
		if groups[obs.Population] == nil {
			groups[obs.Population] = map[string][]float64{}
		}
		groups[obs.Population][obs.Group] = append(groups[obs.Population][obs.Group], obs.Percentage)
	}

	populations := make([]string, 0, len(groups))
	for population := range groups {
		populations = append(populations, population)
	}
	sort.Strings(populations)

	out := make([]Row, 0, len(populations))
	for _, population := range populations {
		a := groups[population][groupA]
		b := groups[population][groupB]

		row := Row{Population: population}

		if len(a) < 1 || len(b) < 1 {
			row.Err = ComparisonError{Population: population, NA: len(a), NB: len(b)}
			out = append(out, row)
			continue
		}

		medianA, _ := stats.Median(a)
		medianB, _ := stats.Median(b)

		res, err := mannwhitney.Test(a, b)
		if err != nil {
			row.Err = ComparisonError{Population: population, NA: len(a), NB: len(b)}
			out = append(out, row)
			continue
		}

		row.ResponderMedian = round2(medianA)
		row.NonResponderMedian = round2(medianB)
		row.UStatistic = res.U
		row.PValue = round6(res.P)
		row.Significant = res.P < Alpha

		out = append(out, row)
	}

	return out
}

// Responders compares responders ("yes") against non-responders ("no") on
// cohort frequency rows, the canonical use of Compare.
func Responders(rows []db.CohortFrequencyRow) []Row {
	observations := make([]Observation, 0, len(rows))
	for _, row := range rows {
		observations = append(observations, Observation{
			Sample:     row.Sample,
			Population: row.Population,
			Group:      row.Response,
			Percentage: row.Percentage,
		})
	}

	return Compare(observations, "yes", "no")
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}
