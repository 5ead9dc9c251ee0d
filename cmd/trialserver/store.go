package main

import (
	"fmt"
	"os"

	"github.com/loblawbio/trialstats/db"
)

// openStore opens an existing store. Serving an absent or empty store would
// quietly answer every query with nothing, so refuse to start instead.
func openStore(path string) (*db.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("store %q does not exist; run loadcounts first", path)
	}

	return db.Open(path)
}
