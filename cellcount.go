package trialstats

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// CellCountRow is one flat record from the source cell-count file: subject and
// sample attributes plus the absolute count for each recognized population.
// The csv tags match the source header exactly.
type CellCountRow struct {
	Project                string `csv:"project"`
	Subject                string `csv:"subject"`
	Condition              string `csv:"condition"`
	Age                    int    `csv:"age"`
	Sex                    string `csv:"sex"`
	Treatment              string `csv:"treatment"`
	Response               string `csv:"response"`
	Sample                 string `csv:"sample"`
	SampleType             string `csv:"sample_type"`
	TimeFromTreatmentStart int    `csv:"time_from_treatment_start"`
	BCell                  int    `csv:"b_cell"`
	CD8TCell               int    `csv:"cd8_t_cell"`
	CD4TCell               int    `csv:"cd4_t_cell"`
	NKCell                 int    `csv:"nk_cell"`
	Monocyte               int    `csv:"monocyte"`
}

// Counts maps each recognized population to this row's absolute count.
func (r CellCountRow) Counts() map[string]int {
	return map[string]int{
		"b_cell":     r.BCell,
		"cd4_t_cell": r.CD4TCell,
		"cd8_t_cell": r.CD8TCell,
		"monocyte":   r.Monocyte,
		"nk_cell":    r.NKCell,
	}
}

// Validate checks the row-level constraints that the store will not accept:
// missing identifiers, a non-positive age, or a negative count.
func (r CellCountRow) Validate() error {
	if r.Subject == "" {
		return fmt.Errorf("sample %q has no subject identifier", r.Sample)
	}

	if r.Sample == "" {
		return fmt.Errorf("subject %q has a row with no sample identifier", r.Subject)
	}

	if r.Age <= 0 {
		return fmt.Errorf("subject %q has age %d, want a positive age", r.Subject, r.Age)
	}

	for population, count := range r.Counts() {
		if count < 0 {
			return fmt.Errorf("sample %q population %q has negative count %d", r.Sample, population, count)
		}
	}

	return nil
}

// ReadCellCounts parses an entire source file into typed rows. The delimiter
// is sniffed rather than assumed, since exported spreadsheets arrive both
// comma- and tab-delimited. A malformed numeric field fails the parse with the
// offending line identified; no partial record is returned.
func ReadCellCounts(r io.Reader) ([]CellCountRow, error) {
	fileBytes, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	delim := sniffDelimiter(bytes.NewReader(fileBytes))

	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = delim
		r.LazyQuotes = true
		return r
	})

	records := []CellCountRow{}
	if err := gocsv.UnmarshalBytes(fileBytes, &records); err != nil {
		return nil, pfx.Err(err)
	}

	return records, nil
}
