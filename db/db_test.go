package db

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/loblawbio/trialstats"
)

// fixtureRows is a small cohort: eight melanoma/lung subjects, nine samples,
// counts summing to 100 per sample so percentages are easy to verify.
func fixtureRows() []trialstats.CellCountRow {
	row := func(project, subject, condition string, age int, sex, treatment, response, sample, sampleType string, t, b, cd8, cd4, nk, mono int) trialstats.CellCountRow {
		return trialstats.CellCountRow{
			Project: project, Subject: subject, Condition: condition, Age: age, Sex: sex,
			Treatment: treatment, Response: response, Sample: sample, SampleType: sampleType,
			TimeFromTreatmentStart: t,
			BCell:                  b, CD8TCell: cd8, CD4TCell: cd4, NKCell: nk, Monocyte: mono,
		}
	}

	return []trialstats.CellCountRow{
		row("P1", "sbj1", "melanoma", 62, "F", "miraclib", "yes", "s1", "PBMC", 0, 10, 20, 30, 15, 25),
		row("P1", "sbj1", "melanoma", 62, "F", "miraclib", "yes", "s2", "PBMC", 7, 12, 20, 28, 15, 25),
		row("P1", "sbj2", "melanoma", 55, "M", "miraclib", "no", "s3", "PBMC", 0, 20, 20, 25, 15, 20),
		row("P2", "sbj3", "melanoma", 48, "F", "miraclib", "yes", "s4", "PBMC", 0, 14, 20, 26, 15, 25),
		row("P2", "sbj4", "melanoma", 60, "M", "miraclib", "no", "s5", "PBMC", 0, 22, 20, 23, 15, 20),
		row("P1", "sbj5", "melanoma", 51, "M", "phauximab", "no", "s6", "PBMC", 0, 25, 25, 20, 10, 20),
		row("P2", "sbj6", "lung", 66, "F", "miraclib", "yes", "s7", "PBMC", 0, 30, 20, 20, 10, 20),
		row("P1", "sbj7", "melanoma", 44, "F", "miraclib", "yes", "s8", "tumor", 0, 40, 15, 15, 10, 20),
		row("P1", "sbj8", "melanoma", 58, "M", "miraclib", "no", "s9", "PBMC", 0, 18, 20, 27, 15, 20),
	}
}

func loadedDB(t *testing.T) *DB {
	t.Helper()

	d, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })

	if err := d.Initialize(); err != nil {
		t.Fatal(err)
	}

	if _, err := d.Ingest(fixtureRows()); err != nil {
		t.Fatal(err)
	}

	return d
}

func TestIngest(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if err := d.Initialize(); err != nil {
		t.Fatal(err)
	}

	rep, err := d.Ingest(fixtureRows())
	if err != nil {
		t.Fatal(err)
	}

	if rep.Subjects != 8 || rep.Samples != 9 || rep.CellCounts != 9*len(trialstats.Populations) {
		t.Fatalf("unexpected load report: %s", rep.Summary())
	}
	if len(rep.RowErrors) != 0 || len(rep.SubjectConflicts) != 0 || len(rep.SampleConflicts) != 0 {
		t.Fatalf("unexpected problems in load report: %s", rep.Summary())
	}
}

func TestIngestIdempotent(t *testing.T) {
	d := loadedDB(t)

	rep, err := d.Ingest(fixtureRows())
	if err != nil {
		t.Fatal(err)
	}

	if rep.Subjects != 0 || rep.Samples != 0 || rep.CellCounts != 0 {
		t.Fatalf("reload duplicated rows: %s", rep.Summary())
	}
	if rep.DuplicateCounts != 9*len(trialstats.Populations) {
		t.Fatalf("DuplicateCounts = %d, want %d", rep.DuplicateCounts, 9*len(trialstats.Populations))
	}
	if len(rep.SubjectConflicts) != 0 || len(rep.SampleConflicts) != 0 {
		t.Fatalf("identical reload reported conflicts: %s", rep.Summary())
	}
}

func TestIngestConflictsReported(t *testing.T) {
	d := loadedDB(t)

	// Same identifiers, disagreeing attributes: first occurrence must win,
	// and the suppression must be visible in the report.
	dup := fixtureRows()[0]
	dup.Age = 99
	dup.Response = "no"

	rep, err := d.Ingest([]trialstats.CellCountRow{dup})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(rep.SubjectConflicts, []string{"sbj1"}) {
		t.Errorf("SubjectConflicts = %v, want [sbj1]", rep.SubjectConflicts)
	}
	if !reflect.DeepEqual(rep.SampleConflicts, []string{"s1"}) {
		t.Errorf("SampleConflicts = %v, want [s1]", rep.SampleConflicts)
	}

	// The stored attributes are unchanged.
	var age int
	if err := d.Get(&age, `SELECT age FROM subjects WHERE subject_id = 'sbj1'`); err != nil {
		t.Fatal(err)
	}
	if age != 62 {
		t.Errorf("age = %d after conflicting reload, want 62", age)
	}
}

func TestIngestRejectsMalformedRecord(t *testing.T) {
	d := loadedDB(t)

	bad := fixtureRows()[0]
	bad.Sample = "s_bad"
	bad.Subject = "sbj_bad"
	bad.BCell = -5

	rep, err := d.Ingest([]trialstats.CellCountRow{bad})
	if err != nil {
		t.Fatal(err)
	}

	if len(rep.RowErrors) != 1 {
		t.Fatalf("RowErrors = %v, want one rejection", rep.RowErrors)
	}
	if rep.Subjects != 0 || rep.Samples != 0 || rep.CellCounts != 0 {
		t.Fatalf("malformed record partially committed: %s", rep.Summary())
	}

	var n int
	if err := d.Get(&n, `SELECT COUNT(*) FROM subjects WHERE subject_id = 'sbj_bad'`); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("malformed record's subject was committed")
	}
}

func TestInitializeSchemaError(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if _, err := d.Exec(`CREATE TABLE subjects (something_else TEXT)`); err != nil {
		t.Fatal(err)
	}

	var schemaErr SchemaError
	if err := d.Initialize(); !errors.As(err, &schemaErr) {
		t.Fatalf("Initialize over incompatible table: err = %v, want SchemaError", err)
	}
	if schemaErr.Table != "subjects" {
		t.Errorf("SchemaError.Table = %q, want subjects", schemaErr.Table)
	}
}

func TestReplace(t *testing.T) {
	d := loadedDB(t)

	if err := d.Replace(); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := d.Get(&n, `SELECT COUNT(*) FROM samples`); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d samples survived Replace, want 0", n)
	}
}

func TestInsertCellCountsReferentialError(t *testing.T) {
	d := loadedDB(t)

	var refErr ReferentialError
	err := d.InsertCellCounts("no_such_sample", map[string]int{"b_cell": 5})
	if !errors.As(err, &refErr) {
		t.Fatalf("err = %v, want ReferentialError", err)
	}
	if refErr.SampleID != "no_such_sample" {
		t.Errorf("ReferentialError.SampleID = %q", refErr.SampleID)
	}
}

func TestFrequencyTable(t *testing.T) {
	d := loadedDB(t)

	rows, integrity, err := d.FrequencyTable()
	if err != nil {
		t.Fatal(err)
	}
	if len(integrity) != 0 {
		t.Fatalf("unexpected integrity errors: %v", integrity)
	}

	if want := 9 * len(trialstats.Populations); len(rows) != want {
		t.Fatalf("len(rows) = %d, want %d", len(rows), want)
	}

	// Deterministic (sample, population) ordering and known first row.
	first := rows[0]
	if first.Sample != "s1" || first.Population != "b_cell" {
		t.Errorf("first row = %+v, want s1/b_cell", first)
	}
	if first.TotalCount != 100 || first.Percentage != 10.00 {
		t.Errorf("s1 b_cell: total %d pct %.2f, want 100 and 10.00", first.TotalCount, first.Percentage)
	}

	// Percentages per sample sum to ~100.
	sums := map[string]float64{}
	for _, row := range rows {
		sums[row.Sample] += row.Percentage
	}
	for sample, sum := range sums {
		if math.Abs(sum-100) > 0.1 {
			t.Errorf("sample %s percentages sum to %.3f, want 100 within 0.1", sample, sum)
		}
	}

	// Derivation is idempotent on an unchanged store.
	again, _, err := d.FrequencyTable()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rows, again) {
		t.Error("repeated derivation produced different output")
	}
}

func TestFrequencyTableEvenSplit(t *testing.T) {
	d := loadedDB(t)

	even := fixtureRows()[0]
	even.Subject, even.Sample = "sbj_even", "s_even"
	even.BCell, even.CD8TCell, even.CD4TCell, even.NKCell, even.Monocyte = 50, 50, 0, 0, 0

	if _, err := d.Ingest([]trialstats.CellCountRow{even}); err != nil {
		t.Fatal(err)
	}

	rows, _, err := d.FrequencyTableForSamples([]string{"s_even"})
	if err != nil {
		t.Fatal(err)
	}

	for _, row := range rows {
		want := 0.0
		if row.Population == "b_cell" || row.Population == "cd8_t_cell" {
			want = 50.00
		}
		if row.Percentage != want {
			t.Errorf("%s: percentage = %.2f, want %.2f", row.Population, row.Percentage, want)
		}
	}
}

func TestFrequencyTableZeroTotal(t *testing.T) {
	d := loadedDB(t)

	zero := fixtureRows()[0]
	zero.Subject, zero.Sample = "sbj_zero", "s_zero"
	zero.BCell, zero.CD8TCell, zero.CD4TCell, zero.NKCell, zero.Monocyte = 0, 0, 0, 0, 0

	if _, err := d.Ingest([]trialstats.CellCountRow{zero}); err != nil {
		t.Fatal(err)
	}

	rows, integrity, err := d.FrequencyTable()
	if err != nil {
		t.Fatal(err)
	}

	if len(integrity) != 1 || integrity[0].SampleID != "s_zero" {
		t.Fatalf("integrity = %v, want one error for s_zero", integrity)
	}

	// The zero-total sample is excluded; the rest of the derivation is
	// unaffected.
	for _, row := range rows {
		if row.Sample == "s_zero" {
			t.Fatal("zero-total sample leaked into the frequency table")
		}
	}
	if want := 9 * len(trialstats.Populations); len(rows) != want {
		t.Fatalf("len(rows) = %d, want %d", len(rows), want)
	}
}
