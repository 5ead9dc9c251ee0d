// Package breakdown computes categorical group counts over a cohort: samples
// per project, distinct subjects per response, distinct subjects per sex.
// These are pure read-only aggregations with no inference; they exist to
// summarize cohort composition and to cross-check the statistical
// comparator's group sizes.
package breakdown

import (
	"github.com/carbocation/pfx"

	"github.com/loblawbio/trialstats/cohort"
	"github.com/loblawbio/trialstats/db"
)

// ProjectCount is the number of samples (not subjects) a project contributes
// to the cohort.
type ProjectCount struct {
	Project     string `db:"project" json:"project"`
	SampleCount int    `db:"sample_count" json:"sample_count"`
}

// ResponseCount is the number of distinct subjects per response value. A
// subject contributing several samples with the same response is counted
// once.
type ResponseCount struct {
	Response     string `db:"response" json:"response"`
	SubjectCount int    `db:"subject_count" json:"subject_count"`
}

// SexCount is the number of distinct subjects per sex.
type SexCount struct {
	Sex          string `db:"sex" json:"sex"`
	SubjectCount int    `db:"subject_count" json:"subject_count"`
}

// SamplesPerProject counts the cohort's samples grouped by project, ordered
// by project.
func SamplesPerProject(d *db.DB, f cohort.Filter) ([]ProjectCount, error) {
	var out []ProjectCount
	if err := grouped(d, f, `s.project AS project, COUNT(DISTINCT s.sample_id) AS sample_count`, `s.project`, &out); err != nil {
		return nil, pfx.Err(err)
	}
	return out, nil
}

// SubjectsByResponse counts the cohort's distinct subjects grouped by
// response, ordered by response.
func SubjectsByResponse(d *db.DB, f cohort.Filter) ([]ResponseCount, error) {
	var out []ResponseCount
	if err := grouped(d, f, `s.response AS response, COUNT(DISTINCT s.subject_id) AS subject_count`, `s.response`, &out); err != nil {
		return nil, pfx.Err(err)
	}
	return out, nil
}

// SubjectsBySex counts the cohort's distinct subjects grouped by sex, ordered
// by sex.
func SubjectsBySex(d *db.DB, f cohort.Filter) ([]SexCount, error) {
	var out []SexCount
	if err := grouped(d, f, `sub.sex AS sex, COUNT(DISTINCT s.subject_id) AS subject_count`, `sub.sex`, &out); err != nil {
		return nil, pfx.Err(err)
	}
	return out, nil
}

func grouped(d *db.DB, f cohort.Filter, selectList, groupBy string, dest interface{}) error {
	where, args, err := f.Where()
	if err != nil {
		return err
	}

	join := `
FROM samples s
JOIN subjects sub ON s.subject_id = sub.subject_id
`
	if f.NeedsCounts() {
		join += `JOIN cell_counts cc ON cc.sample_id = s.sample_id
`
	}

	query := `SELECT ` + selectList + join + `WHERE ` + where + ` GROUP BY ` + groupBy + ` ORDER BY ` + groupBy

	return d.Select(dest, query, args...)
}
