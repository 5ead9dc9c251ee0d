package trialstats

import (
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// Cell-count exports arrive comma-, tab-, or semicolon-delimited depending on
// the spreadsheet that produced them. Anything else the detector proposes is
// treated as noise.
var acceptedDelimiters = map[byte]bool{',': true, '\t': true, ';': true}

// sniffDelimiter returns the delimiter most likely separating the values in a
// cell-count export. A comma when detection finds nothing usable.
func sniffDelimiter(r io.Reader) rune {
	d := detector.New()

	for _, candidate := range d.DetectDelimiter(r, '"') {
		if len(candidate) == 1 && acceptedDelimiters[candidate[0]] {
			return rune(candidate[0])
		}
	}

	return ','
}
