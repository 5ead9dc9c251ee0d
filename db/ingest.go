package db

import (
	"fmt"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/loblawbio/trialstats"
)

// IngestReport summarizes one ingestion batch. Suppressed duplicate rows with
// conflicting attributes are counted here rather than silently discarded,
// since a conflicting duplicate usually means the source file is wrong.
type IngestReport struct {
	Subjects        int // newly inserted subjects
	Samples         int // newly inserted samples
	CellCounts      int // newly inserted count rows
	DuplicateCounts int // (sample, population) pairs already present

	SubjectConflicts []string // subjects whose duplicate rows disagreed on attributes
	SampleConflicts  []string // samples whose duplicate rows disagreed on attributes

	RowErrors []RowError // records rejected by validation
}

// RowError ties a validation failure to its 1-based record number in the
// batch.
type RowError struct {
	Record int
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Record, e.Err)
}

// Summary is the one-line load report printed after ingestion.
func (rep IngestReport) Summary() string {
	return fmt.Sprintf("loaded %d subjects, %d samples, %d cell count records (%d duplicate count rows ignored, %d subject conflicts, %d sample conflicts, %d rejected records)",
		rep.Subjects, rep.Samples, rep.CellCounts, rep.DuplicateCounts,
		len(rep.SubjectConflicts), len(rep.SampleConflicts), len(rep.RowErrors))
}

type subjectAttrs struct {
	Condition string `db:"condition"`
	Age       int    `db:"age"`
	Sex       string `db:"sex"`
}

type sampleAttrs struct {
	Subject    string `db:"subject_id"`
	Project    string `db:"project"`
	Treatment  string `db:"treatment"`
	Response   string `db:"response"`
	SampleType string `db:"sample_type"`
	Time       int    `db:"time_from_treatment_start"`
}

// Ingest loads a batch of flat source records into the store inside a single
// transaction. The first occurrence of a subject or sample wins; later rows
// with the same identifier are ignored, and ignored rows whose attributes
// disagree with the stored ones are reported as conflicts. Count rows are
// inserted once per (sample, population); reloading an identical batch is a
// no-op. Records that fail validation are rejected individually and reported
// in the returned IngestReport without committing any of their fields.
func (db *DB) Ingest(rows []trialstats.CellCountRow) (IngestReport, error) {
	rep := IngestReport{}

	subjects, samples, counts, err := db.loaded()
	if err != nil {
		return rep, pfx.Err(err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return rep, pfx.Err(err)
	}
	defer tx.Rollback()

	subjectConflicts := map[string]struct{}{}
	sampleConflicts := map[string]struct{}{}

	for i, row := range rows {
		if err := row.Validate(); err != nil {
			rep.RowErrors = append(rep.RowErrors, RowError{Record: i + 1, Err: err})
			continue
		}

		// Subject: first occurrence wins.
		subj := subjectAttrs{Condition: row.Condition, Age: row.Age, Sex: row.Sex}
		if prev, seen := subjects[row.Subject]; !seen {
			if _, err := tx.Exec(
				`INSERT INTO subjects (subject_id, condition, age, sex) VALUES (?, ?, ?, ?)`,
				row.Subject, subj.Condition, subj.Age, subj.Sex,
			); err != nil {
				return rep, pfx.Err(err)
			}
			subjects[row.Subject] = subj
			rep.Subjects++
		} else if prev != subj {
			subjectConflicts[row.Subject] = struct{}{}
		}

		// Sample: same rule.
		samp := sampleAttrs{
			Subject:    row.Subject,
			Project:    row.Project,
			Treatment:  row.Treatment,
			Response:   row.Response,
			SampleType: row.SampleType,
			Time:       row.TimeFromTreatmentStart,
		}
		if prev, seen := samples[row.Sample]; !seen {
			if _, err := tx.Exec(
				`INSERT INTO samples (sample_id, subject_id, project, treatment, response, sample_type, time_from_treatment_start) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				row.Sample, samp.Subject, samp.Project, samp.Treatment, samp.Response, samp.SampleType, samp.Time,
			); err != nil {
				return rep, pfx.Err(err)
			}
			samples[row.Sample] = samp
			rep.Samples++
		} else if prev != samp {
			sampleConflicts[row.Sample] = struct{}{}
		}

		// Count rows, one per recognized population.
		for _, population := range trialstats.Populations {
			key := countKey{Sample: row.Sample, Population: population}
			if _, seen := counts[key]; seen {
				rep.DuplicateCounts++
				continue
			}
			if _, err := tx.Exec(
				`INSERT INTO cell_counts (sample_id, population, count) VALUES (?, ?, ?)`,
				row.Sample, population, row.Counts()[population],
			); err != nil {
				return rep, pfx.Err(err)
			}
			counts[key] = struct{}{}
			rep.CellCounts++
		}
	}

	if err := tx.Commit(); err != nil {
		return rep, pfx.Err(err)
	}

	rep.SubjectConflicts = sortedKeys(subjectConflicts)
	rep.SampleConflicts = sortedKeys(sampleConflicts)

	return rep, nil
}

// InsertCellCounts inserts one count row per population for an
// already-loaded sample, skipping pairs that exist. A sample identifier not
// present in the store is a ReferentialError.
func (db *DB) InsertCellCounts(sampleID string, populationCounts map[string]int) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM samples WHERE sample_id = ?`, sampleID); err != nil {
		return pfx.Err(err)
	}
	if n == 0 {
		return ReferentialError{SampleID: sampleID}
	}

	for population, count := range populationCounts {
		if count < 0 {
			return IntegrityError{SampleID: sampleID, Detail: fmt.Sprintf("negative count %d for population %q", count, population)}
		}
		if _, err := db.Exec(
			`INSERT OR IGNORE INTO cell_counts (sample_id, population, count) VALUES (?, ?, ?)`,
			sampleID, population, count,
		); err != nil {
			return pfx.Err(err)
		}
	}

	return nil
}

type countKey struct {
	Sample     string
	Population string
}

// loaded snapshots the current store contents for first-occurrence and
// duplicate checks.
func (db *DB) loaded() (map[string]subjectAttrs, map[string]sampleAttrs, map[countKey]struct{}, error) {
	subjects := map[string]subjectAttrs{}
	rows, err := db.Queryx(`SELECT subject_id, condition, age, sex FROM subjects`)
	if err != nil {
		return nil, nil, nil, pfx.Err(err)
	}
	for rows.Next() {
		var id string
		var attrs subjectAttrs
		if err := rows.Scan(&id, &attrs.Condition, &attrs.Age, &attrs.Sex); err != nil {
			return nil, nil, nil, pfx.Err(err)
		}
		subjects[id] = attrs
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, pfx.Err(err)
	}

	samples := map[string]sampleAttrs{}
	rows, err = db.Queryx(`SELECT sample_id, subject_id, project, treatment, response, sample_type, time_from_treatment_start FROM samples`)
	if err != nil {
		return nil, nil, nil, pfx.Err(err)
	}
	for rows.Next() {
		var id string
		var attrs sampleAttrs
		if err := rows.Scan(&id, &attrs.Subject, &attrs.Project, &attrs.Treatment, &attrs.Response, &attrs.SampleType, &attrs.Time); err != nil {
			return nil, nil, nil, pfx.Err(err)
		}
		samples[id] = attrs
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, pfx.Err(err)
	}

	counts := map[countKey]struct{}{}
	rows, err = db.Queryx(`SELECT sample_id, population FROM cell_counts`)
	if err != nil {
		return nil, nil, nil, pfx.Err(err)
	}
	for rows.Next() {
		var key countKey
		if err := rows.Scan(&key.Sample, &key.Population); err != nil {
			return nil, nil, nil, pfx.Err(err)
		}
		counts[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, pfx.Err(err)
	}

	return subjects, samples, counts, nil
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
