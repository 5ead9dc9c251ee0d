package cohort

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestWhereUnconstrained(t *testing.T) {
	where, args, err := Filter{}.Where()
	if err != nil {
		t.Fatal(err)
	}
	if where != "1=1" || len(args) != 0 {
		t.Errorf("Where() = %q %v, want 1=1 and no args", where, args)
	}
}

func TestWhereEmptyAcceptedSet(t *testing.T) {
	where, args, err := Filter{Treatment: []string{}}.Where()
	if err != nil {
		t.Fatal(err)
	}
	if where != "1=0" || len(args) != 0 {
		t.Errorf("Where() = %q %v, want 1=0 and no args", where, args)
	}
}

func TestWhereStatistical(t *testing.T) {
	where, args, err := Statistical().Where()
	if err != nil {
		t.Fatal(err)
	}

	for _, column := range []string{"sub.condition", "s.treatment", "s.sample_type"} {
		if !strings.Contains(where, column+" IN (?)") {
			t.Errorf("Where() = %q, missing predicate on %s", where, column)
		}
	}
	if !reflect.DeepEqual(args, []interface{}{"melanoma", "miraclib", "PBMC"}) {
		t.Errorf("args = %v", args)
	}
}

func TestWhereBaselineAddsTimepoint(t *testing.T) {
	where, args, err := Baseline().Where()
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(where, "s.time_from_treatment_start IN (?)") {
		t.Errorf("Where() = %q, missing timepoint predicate", where)
	}
	if got := args[len(args)-1]; got != 0 {
		t.Errorf("last arg = %v, want timepoint 0", got)
	}
}

func TestWhereMultipleValues(t *testing.T) {
	where, args, err := Filter{Project: []string{"P1", "P2"}}.Where()
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(where, "s.project IN (?, ?)") {
		t.Errorf("Where() = %q, want expanded IN list", where)
	}
	if !reflect.DeepEqual(args, []interface{}{"P1", "P2"}) {
		t.Errorf("args = %v", args)
	}
}

func TestParseField(t *testing.T) {
	var f Filter

	for name, values := range map[string][]string{
		"condition":                 {"melanoma"},
		"sex":                       {"M", "F"},
		"treatment":                 {"miraclib"},
		"response":                  {"yes"},
		"sample_type":               {"PBMC"},
		"project":                   {"P1"},
		"time_from_treatment_start": {"0", "-7"},
		"population":                {"b_cell"},
	} {
		if err := f.ParseField(name, values); err != nil {
			t.Errorf("ParseField(%q, %v): %v", name, values, err)
		}
	}

	if !reflect.DeepEqual(f.TimeFromTreatmentStart, []int{0, -7}) {
		t.Errorf("TimeFromTreatmentStart = %v", f.TimeFromTreatmentStart)
	}
}

func TestParseFieldUnknownAttribute(t *testing.T) {
	var f Filter

	// A misspelled attribute must fail loudly, never act as a no-op filter.
	err := f.ParseField("conditon", []string{"melanoma"})

	var confErr ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	if confErr.Attribute != "conditon" {
		t.Errorf("ConfigurationError.Attribute = %q", confErr.Attribute)
	}
}

func TestParseFieldBadValues(t *testing.T) {
	var f Filter

	if err := f.ParseField("time_from_treatment_start", []string{"soon"}); err == nil {
		t.Error("non-integer timepoint accepted")
	}
	if err := f.ParseField("population", []string{"t_rex"}); err == nil {
		t.Error("unknown population accepted")
	}
}
