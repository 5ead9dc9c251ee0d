package db

import "fmt"

// SchemaError reports an initialization attempt against a store whose
// existing tables are incompatible with the expected schema. Fatal at
// startup.
type SchemaError struct {
	Table  string
	Detail string
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("db: incompatible schema for table %q: %s", e.Table, e.Detail)
}

// ReferentialError reports a cell-count row referencing a sample that is
// present neither in the store nor in the ingestion batch. Fatal for the
// batch.
type ReferentialError struct {
	SampleID string
}

func (e ReferentialError) Error() string {
	return fmt.Sprintf("db: cell count references unknown sample %q", e.SampleID)
}

// IntegrityError reports a loaded sample whose data cannot be analyzed, e.g.
// a zero total cell count, which indicates an upstream ingestion failure
// rather than a biological measurement. Fatal for that sample's derivation
// only.
type IntegrityError struct {
	SampleID string
	Detail   string
}

func (e IntegrityError) Error() string {
	return fmt.Sprintf("db: sample %q: %s", e.SampleID, e.Detail)
}
