package trialstats

import "sort"

// Populations is the fixed set of immune cell populations measured for every
// sample, in ascending order. Adding a population is a schema change: the
// source CSV gains a column, this list gains an entry, and the store is
// rebuilt. It is not a runtime parameter.
var Populations = []string{
	"b_cell",
	"cd4_t_cell",
	"cd8_t_cell",
	"monocyte",
	"nk_cell",
}

// KnownPopulation reports whether name is one of the recognized cell
// populations.
func KnownPopulation(name string) bool {
	i := sort.SearchStrings(Populations, name)
	return i < len(Populations) && Populations[i] == name
}
