// Package mannwhitney implements the two-sided Mann-Whitney U test for two
// independent groups of observations. The null hypothesis is that the two
// groups are drawn from the same distribution. For small tie-free groups the
// p-value is computed from the exact distribution of U; otherwise the normal
// approximation with tie and continuity corrections is used. The resources
// used to create this were Mann & Whitney (1947) for the exact count
// recurrence and the scipy.stats.mannwhitneyu reference implementation for
// sanity checks.
package mannwhitney

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrDegenerate is returned when either group is empty, in which case the
// test is undefined.
var ErrDegenerate = errors.New("mannwhitney: test undefined for an empty group")

// exactMax is the largest per-group size for which the exact distribution is
// enumerated. Beyond this (or in the presence of ties) the normal
// approximation is used, matching the reference implementation's cutoff.
const exactMax = 8

// Result holds the U statistic of the first group and the two-sided p-value.
type Result struct {
	U float64
	P float64
}

// Test computes the two-sided Mann-Whitney U test for groups x and y. The
// returned U is the statistic of x (the first group). Test is deterministic:
// identical inputs always produce identical output, and Test(x, y) and
// Test(y, x) agree on the p-value.
func Test(x, y []float64) (Result, error) {
	n1, n2 := len(x), len(y)
	if n1 == 0 || n2 == 0 {
		return Result{}, ErrDegenerate
	}

	combined := make([]float64, 0, n1+n2)
	combined = append(combined, x...)
	combined = append(combined, y...)

	ranks, tieTerm := tiedRanks(combined)

	var r1 float64
	for i := 0; i < n1; i++ {
		r1 += ranks[i]
	}

	u1 := r1 - float64(n1*(n1+1))/2
	u2 := float64(n1*n2) - u1

	var p float64
	if tieTerm == 0 && n1 <= exactMax && n2 <= exactMax {
		p = exactTwoSided(u1, n1, n2)
	} else {
		p = approxTwoSided(u1, u2, n1, n2, tieTerm)
	}

	return Result{U: u1, P: p}, nil
}

// exactTwoSided computes the exact two-sided p-value by enumerating the null
// distribution of U via the count recurrence
// c(n, m, u) = c(n-1, m, u-m) + c(n, m-1, u).
func exactTwoSided(u1 float64, n1, n2 int) float64 {
	// Tie-free U statistics are integral.
	u := int(math.Round(u1))

	maxU := n1 * n2

	// counts[i][j][k] is the number of arrangements of i group-1 and j
	// group-2 observations yielding U = k.
	counts := make([][][]float64, n1+1)
	for i := range counts {
		counts[i] = make([][]float64, n2+1)
		for j := range counts[i] {
			counts[i][j] = make([]float64, maxU+1)
			if i == 0 || j == 0 {
				counts[i][j][0] = 1
				continue
			}
			for k := 0; k <= i*j; k++ {
				if k >= j {
					counts[i][j][k] += counts[i-1][j][k-j]
				}
				counts[i][j][k] += counts[i][j-1][k]
			}
		}
	}

	var total float64
	for _, c := range counts[n1][n2] {
		total += c
	}

	cdf := func(k int) float64 {
		if k < 0 {
			return 0
		}
		if k > maxU {
			k = maxU
		}
		var sum float64
		for i := 0; i <= k; i++ {
			sum += counts[n1][n2][i]
		}
		return sum / total
	}

	// By symmetry, P(U >= u) = P(U <= n1*n2 - u).
	pLow, pHigh := cdf(u), cdf(maxU-u)

	p := 2 * math.Min(pLow, pHigh)
	if p > 1 {
		p = 1
	}

	return p
}

// approxTwoSided computes the normal-approximation p-value with the usual
// 0.5 continuity correction and the tie correction to the variance.
func approxTwoSided(u1, u2 float64, n1, n2 int, tieTerm float64) float64 {
	n := float64(n1 + n2)
	mu := float64(n1*n2) / 2

	sigma2 := float64(n1*n2) / 12 * ((n + 1) - tieTerm/(n*(n-1)))
	if sigma2 <= 0 {
		// Every observation is tied with every other; the groups are
		// indistinguishable.
		return 1
	}

	z := (math.Max(u1, u2) - mu - 0.5) / math.Sqrt(sigma2)

	p := 2 * distuv.UnitNormal.Survival(z)
	if p > 1 {
		p = 1
	}

	return p
}

// tiedRanks assigns 1-based ranks to v, averaging ranks within tie groups,
// and returns the tie correction term sum(t^3 - t) over all tie groups.
func tiedRanks(v []float64) (ranks []float64, tieTerm float64) {
	n := len(v)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return v[order[i]] < v[order[j]] })

	ranks = make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && v[order[j]] == v[order[i]] {
			j++
		}

		// Average of ranks i+1 .. j (1-based).
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}

		if t := float64(j - i); t > 1 {
			tieTerm += t*t*t - t
		}

		i = j
	}

	return ranks, tieTerm
}
