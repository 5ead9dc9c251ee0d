// Package cohort defines the closed set of attributes a cohort of samples can
// be filtered on, and builds the corresponding SQL predicates. A filter is a
// pure projection over the store: it never mutates anything, and an empty
// result set is a valid outcome, distinct from a misconfigured filter.
package cohort

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/loblawbio/trialstats"
)

// Filter restricts a query to samples (and, for population-level queries,
// count rows) whose attributes fall within the accepted value sets. A nil
// field leaves that attribute unconstrained. A non-nil empty field accepts no
// value at all, which yields an empty result rather than an error.
//
// The field set is closed on purpose: a misspelled attribute name cannot be
// expressed as a Filter, so it can never become a silent no-op predicate.
type Filter struct {
	Condition              []string
	Treatment              []string
	SampleType             []string
	Response               []string
	Sex                    []string
	Project                []string
	TimeFromTreatmentStart []int
	Population             []string
}

// Statistical is the canonical cohort for the responder comparison: melanoma
// subjects treated with miraclib, PBMC samples only.
func Statistical() Filter {
	return Filter{
		Condition:  []string{"melanoma"},
		Treatment:  []string{"miraclib"},
		SampleType: []string{"PBMC"},
	}
}

// Baseline is the statistical cohort restricted to samples taken at treatment
// start (time_from_treatment_start = 0).
func Baseline() Filter {
	f := Statistical()
	f.TimeFromTreatmentStart = []int{0}
	return f
}

// NeedsCounts reports whether the filter constrains a cell_counts column, in
// which case sample-level queries must join the cell_counts table.
func (f Filter) NeedsCounts() bool {
	return f.Population != nil
}

// clause ties a filter attribute to its aliased column in the canonical
// three-way join (subjects sub, samples s, cell_counts cc).
type clause struct {
	column string
	values interface{}
	empty  bool
}

func (f Filter) clauses() []clause {
	return []clause{
		{"sub.condition", f.Condition, f.Condition != nil && len(f.Condition) == 0},
		{"sub.sex", f.Sex, f.Sex != nil && len(f.Sex) == 0},
		{"s.treatment", f.Treatment, f.Treatment != nil && len(f.Treatment) == 0},
		{"s.response", f.Response, f.Response != nil && len(f.Response) == 0},
		{"s.sample_type", f.SampleType, f.SampleType != nil && len(f.SampleType) == 0},
		{"s.project", f.Project, f.Project != nil && len(f.Project) == 0},
		{"s.time_from_treatment_start", f.TimeFromTreatmentStart, f.TimeFromTreatmentStart != nil && len(f.TimeFromTreatmentStart) == 0},
		{"cc.population", f.Population, f.Population != nil && len(f.Population) == 0},
	}
}

func unconstrained(values interface{}) bool {
	switch v := values.(type) {
	case []string:
		return v == nil
	case []int:
		return v == nil
	}
	return true
}

// Where renders the filter as a SQL predicate over the aliased three-way join
// plus its bind arguments. An unconstrained filter renders as "1=1"; a filter
// with an explicitly empty accepted set renders as "1=0".
func (f Filter) Where() (string, []interface{}, error) {
	parts := []string{}
	args := []interface{}{}

	for _, c := range f.clauses() {
		if c.empty {
			// An empty accepted set matches nothing.
			return "1=0", nil, nil
		}
		if unconstrained(c.values) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s IN (?)", c.column))
		args = append(args, c.values)
	}

	if len(parts) == 0 {
		return "1=1", nil, nil
	}

	query, boundArgs, err := sqlx.In(strings.Join(parts, " AND "), args...)
	if err != nil {
		return "", nil, err
	}

	return query, boundArgs, nil
}

// ParseField assigns accepted values to the named attribute, for callers that
// take attribute names at run time (the explorer's -where flags). Unknown
// attribute names and malformed values are ConfigurationErrors, never silent
// no-ops.
func (f *Filter) ParseField(name string, values []string) error {
	switch name {
	case "condition":
		f.Condition = append(f.Condition, values...)
	case "sex":
		f.Sex = append(f.Sex, values...)
	case "treatment":
		f.Treatment = append(f.Treatment, values...)
	case "response":
		f.Response = append(f.Response, values...)
	case "sample_type":
		f.SampleType = append(f.SampleType, values...)
	case "project":
		f.Project = append(f.Project, values...)
	case "time_from_treatment_start":
		for _, v := range values {
			t, err := strconv.Atoi(v)
			if err != nil {
				return ConfigurationError{Attribute: name, Detail: fmt.Sprintf("%q is not an integer timepoint", v)}
			}
			f.TimeFromTreatmentStart = append(f.TimeFromTreatmentStart, t)
		}
	case "population":
		for _, v := range values {
			if !trialstats.KnownPopulation(v) {
				return ConfigurationError{Attribute: name, Detail: fmt.Sprintf("%q is not a recognized population", v)}
			}
		}
		f.Population = append(f.Population, values...)
	default:
		return ConfigurationError{Attribute: name, Detail: "unrecognized filter attribute"}
	}

	return nil
}

// ConfigurationError marks a filter that could never match anything the
// schema describes, as opposed to one that merely matches no rows.
type ConfigurationError struct {
	Attribute string
	Detail    string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("cohort: attribute %q: %s", e.Attribute, e.Detail)
}
