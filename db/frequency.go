package db

import (
	"math"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"

	"github.com/loblawbio/trialstats/cohort"
)

// FrequencyRow is one derived relative-frequency observation: a population's
// count expressed as a percentage of the sample's total count across all
// populations. Derived on demand, never persisted.
type FrequencyRow struct {
	Sample     string  `db:"sample" csv:"sample"`
	TotalCount int     `db:"total_count" csv:"total_count"`
	Population string  `db:"population" csv:"population"`
	Count      int     `db:"count" csv:"count"`
	Percentage float64 `csv:"percentage"`
}

const frequencySQL = `
SELECT
    cc.sample_id AS sample,
    totals.total_count,
    cc.population,
    cc.count
FROM cell_counts cc
JOIN (
    SELECT sample_id, SUM(count) AS total_count
    FROM cell_counts
    GROUP BY sample_id
) totals ON cc.sample_id = totals.sample_id
`

const frequencyOrder = ` ORDER BY cc.sample_id, cc.population`

// FrequencyTable derives the relative frequency of every population in every
// loaded sample, ordered by (sample, population). A sample whose counts sum
// to zero cannot be normalized: it is excluded from the rows and reported as
// an IntegrityError, without aborting the derivation for the other samples.
func (db *DB) FrequencyTable() ([]FrequencyRow, []IntegrityError, error) {
	var rows []FrequencyRow
	if err := db.Select(&rows, frequencySQL+frequencyOrder); err != nil {
		return nil, nil, pfx.Err(err)
	}

	return finishFrequencies(rows)
}

// FrequencyTableForSamples is FrequencyTable restricted to a pre-selected
// sample-id set.
func (db *DB) FrequencyTableForSamples(sampleIDs []string) ([]FrequencyRow, []IntegrityError, error) {
	if len(sampleIDs) == 0 {
		return nil, nil, nil
	}

	query, args, err := sqlx.In(frequencySQL+` WHERE cc.sample_id IN (?)`+frequencyOrder, sampleIDs)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	var rows []FrequencyRow
	if err := db.Select(&rows, query, args...); err != nil {
		return nil, nil, pfx.Err(err)
	}

	return finishFrequencies(rows)
}

// FrequencyTableFor derives the frequency table for the samples a filter
// accepts. A population constraint restricts which count rows come back, but
// every percentage is still taken against the sample's total across all
// populations.
func (db *DB) FrequencyTableFor(f cohort.Filter) ([]FrequencyRow, []IntegrityError, error) {
	ids, err := db.SampleIDs(f)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}

	query := frequencySQL + ` WHERE cc.sample_id IN (?)`
	args := []interface{}{ids}
	if len(f.Population) > 0 {
		query += ` AND cc.population IN (?)`
		args = append(args, f.Population)
	}

	bound, boundArgs, err := sqlx.In(query+frequencyOrder, args...)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	var rows []FrequencyRow
	if err := db.Select(&rows, bound, boundArgs...); err != nil {
		return nil, nil, pfx.Err(err)
	}

	return finishFrequencies(rows)
}

// finishFrequencies computes the percentages in Go rather than SQL to pin the
// rounding mode: half-up to two decimal places, so a fully loaded sample's
// percentages sum to 100 within rounding tolerance.
func finishFrequencies(rows []FrequencyRow) ([]FrequencyRow, []IntegrityError, error) {
	out := rows[:0]
	var integrity []IntegrityError
	badSample := ""

	for _, row := range rows {
		if row.TotalCount == 0 {
			if row.Sample != badSample {
				badSample = row.Sample
				integrity = append(integrity, IntegrityError{SampleID: row.Sample, Detail: "total cell count is zero"})
			}
			continue
		}

		row.Percentage = round2(float64(row.Count) * 100 / float64(row.TotalCount))
		out = append(out, row)
	}

	return out, integrity, nil
}

// round2 rounds half away from zero to two decimal places.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
