package db

import (
	"github.com/carbocation/pfx"
	"github.com/loblawbio/trialstats/cohort"
)

// the canonical three-way join every cohort query is phrased over
const sampleJoin = `
FROM samples s
JOIN subjects sub ON s.subject_id = sub.subject_id
`

const countJoin = sampleJoin + `JOIN cell_counts cc ON cc.sample_id = s.sample_id
`

// SampleIDs returns the ordered identifiers of the samples matching the
// filter.
func (db *DB) SampleIDs(f cohort.Filter) ([]string, error) {
	where, args, err := f.Where()
	if err != nil {
		return nil, pfx.Err(err)
	}

	join := sampleJoin
	if f.NeedsCounts() {
		join = countJoin
	}

	var ids []string
	query := `SELECT DISTINCT s.sample_id ` + join + `WHERE ` + where + ` ORDER BY s.sample_id`
	if err := db.Select(&ids, query, args...); err != nil {
		return nil, pfx.Err(err)
	}

	return ids, nil
}

// SampleRow is one cohort sample joined with its owning subject's
// attributes.
type SampleRow struct {
	Sample                 string `db:"sample_id"`
	Subject                string `db:"subject_id"`
	Project                string `db:"project"`
	Treatment              string `db:"treatment"`
	Response               string `db:"response"`
	SampleType             string `db:"sample_type"`
	TimeFromTreatmentStart int    `db:"time_from_treatment_start"`
	Condition              string `db:"condition"`
	Sex                    string `db:"sex"`
	Age                    int    `db:"age"`
}

// SampleRows returns the cohort's samples with subject attributes attached,
// ordered by sample.
func (db *DB) SampleRows(f cohort.Filter) ([]SampleRow, error) {
	where, args, err := f.Where()
	if err != nil {
		return nil, pfx.Err(err)
	}

	join := sampleJoin
	if f.NeedsCounts() {
		join = countJoin
	}

	var rows []SampleRow
	query := `SELECT DISTINCT s.sample_id, s.subject_id, s.project, s.treatment, s.response, s.sample_type, s.time_from_treatment_start, sub.condition, sub.sex, sub.age ` +
		join + `WHERE ` + where + ` ORDER BY s.sample_id`
	if err := db.Select(&rows, query, args...); err != nil {
		return nil, pfx.Err(err)
	}

	return rows, nil
}

// CohortFrequencyRow is a derived-frequency row joined with the grouping
// attributes the statistical comparator partitions on. The total is always
// computed over every population of the sample, even when the filter
// restricts which populations are returned.
type CohortFrequencyRow struct {
	Sample     string `db:"sample"`
	Subject    string `db:"subject_id"`
	Response   string `db:"response"`
	Population string `db:"population"`
	TotalCount int    `db:"total_count"`
	Count      int    `db:"count"`
	Percentage float64
}

const cohortFrequencySQL = `
SELECT
    cc.sample_id AS sample,
    s.subject_id,
    s.response,
    cc.population,
    totals.total_count,
    cc.count
FROM cell_counts cc
JOIN samples s ON cc.sample_id = s.sample_id
JOIN subjects sub ON s.subject_id = sub.subject_id
JOIN (
    SELECT sample_id, SUM(count) AS total_count
    FROM cell_counts
    GROUP BY sample_id
) totals ON cc.sample_id = totals.sample_id
`

// CohortFrequencyTable derives the frequency rows for a cohort, joined with
// the response attribute, ordered by (sample, population). Zero-total samples
// are reported as IntegrityErrors alongside the remaining rows, as in
// FrequencyTable.
func (db *DB) CohortFrequencyTable(f cohort.Filter) ([]CohortFrequencyRow, []IntegrityError, error) {
	where, args, err := f.Where()
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	var rows []CohortFrequencyRow
	query := cohortFrequencySQL + `WHERE ` + where + ` ORDER BY cc.sample_id, cc.population`
	if err := db.Select(&rows, query, args...); err != nil {
		return nil, nil, pfx.Err(err)
	}

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

// CohortRow is the fully joined subject x sample x count row consumed by the
// ad-hoc explorer.
type CohortRow struct {
	Condition              string `db:"condition"`
	Sex                    string `db:"sex"`
	Age                    int    `db:"age"`
	Sample                 string `db:"sample_id"`
	Subject                string `db:"subject_id"`
	Project                string `db:"project"`
	Treatment              string `db:"treatment"`
	Response               string `db:"response"`
	SampleType             string `db:"sample_type"`
	TimeFromTreatmentStart int    `db:"time_from_treatment_start"`
	Population             string `db:"population"`
	Count                  int    `db:"count"`
}

// CohortRows returns every joined count row matching the filter, ordered by
// (sample, population).
func (db *DB) CohortRows(f cohort.Filter) ([]CohortRow, error) {
	where, args, err := f.Where()
	if err != nil {
		return nil, pfx.Err(err)
	}

	var rows []CohortRow
	query := `SELECT sub.condition, sub.sex, sub.age, s.sample_id, s.subject_id, s.project, s.treatment, s.response, s.sample_type, s.time_from_treatment_start, cc.population, cc.count ` +
		countJoin + `WHERE ` + where + ` ORDER BY s.sample_id, cc.population`
	if err := db.Select(&rows, query, args...); err != nil {
		return nil, pfx.Err(err)
	}

	return rows, nil
}
