// Package db is the relational store for the clinical trial dataset: three
// normalized tables (subjects, samples, cell_counts) behind a sqlite file,
// append-only after load. All read operations are join-capable projections
// that leave the store untouched, so once loaded they may run in any order.
package db

import (
	"fmt"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sqlite handle. Callers hold it explicitly; there is no
// package-level instance.
type DB struct {
	*sqlx.DB
}

// Open opens (creating if absent) the sqlite store at path. Foreign keys are
// enforced on every pooled connection via the DSN rather than a one-off
// PRAGMA, which would only apply to the connection that happened to run it.
func Open(path string) (*DB, error) {
	dbx, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, pfx.Err(err)
	}

	return &DB{dbx}, nil
}

// OpenMemory opens a fresh in-memory store, used by tests and throwaway
// analyses. The pool is pinned to a single connection: every sqlite
// connection gets its own private :memory: database, so a second pooled
// connection would see an empty store.
func OpenMemory() (*DB, error) {
	db, err := Open(":memory:")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	return db, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS subjects (
    subject_id TEXT PRIMARY KEY,
    condition TEXT NOT NULL,
    age INTEGER NOT NULL,
    sex TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS samples (
    sample_id TEXT PRIMARY KEY,
    subject_id TEXT NOT NULL,
    project TEXT NOT NULL,
    treatment TEXT NOT NULL,
    response TEXT NOT NULL,
    sample_type TEXT NOT NULL,
    time_from_treatment_start INTEGER NOT NULL,
    FOREIGN KEY (subject_id) REFERENCES subjects(subject_id)
);

CREATE TABLE IF NOT EXISTS cell_counts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sample_id TEXT NOT NULL,
    population TEXT NOT NULL,
    count INTEGER NOT NULL,
    FOREIGN KEY (sample_id) REFERENCES samples(sample_id),
    UNIQUE(sample_id, population)
);
`

// expectedColumns is the column set of each table, used to detect a
// preexisting incompatible schema before CREATE IF NOT EXISTS papers over it.
var expectedColumns = map[string][]string{
	"subjects":    {"subject_id", "condition", "age", "sex"},
	"samples":     {"sample_id", "subject_id", "project", "treatment", "response", "sample_type", "time_from_treatment_start"},
	"cell_counts": {"id", "sample_id", "population", "count"},
}

// Initialize creates the three tables. If a table of the same name already
// exists with a different column set, Initialize fails with a SchemaError
// rather than leaving a half-compatible store behind.
func (db *DB) Initialize() error {
	for table, want := range expectedColumns {
		var cols []string
		if err := db.Select(&cols, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table); err != nil {
			return pfx.Err(err)
		}

		if len(cols) == 0 {
			// Table does not exist yet.
			continue
		}

		if !sameColumns(cols, want) {
			return SchemaError{
				Table:  table,
				Detail: fmt.Sprintf("existing columns (%s) do not match expected (%s)", strings.Join(cols, ", "), strings.Join(want, ", ")),
			}
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return pfx.Err(err)
	}

	return nil
}

// Replace drops and recreates the whole store. This is the only way to load a
// different dataset into an existing store; there is no row-level deletion.
func (db *DB) Replace() error {
	for _, table := range []string{"cell_counts", "samples", "subjects"} {
		if _, err := db.Exec(`DROP TABLE IF EXISTS ` + table); err != nil {
			return pfx.Err(err)
		}
	}

	return db.Initialize()
}

func sameColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}

	set := make(map[string]struct{}, len(want))
	for _, w := range want {
		set[w] = struct{}{}
	}
	for _, g := range got {
		if _, ok := set[g]; !ok {
			return false
		}
	}

	return true
}
