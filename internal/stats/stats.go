// Package stats holds the pure statistics the cleaning steps need. Every
// function works on a plain slice of non-missing observations and never
// mutates its input.
package stats

import (
	"math"
	"sort"
)

// Median returns the median of x, or ok=false when x is empty.
func Median(x []float64) (float64, bool) {
	n := len(x)
	if n == 0 {
		return 0, false
	}
	cp := sortedCopy(x)
	mid := n >> 1
	if n&1 == 0 {
		return (cp[mid-1] + cp[mid]) * 0.5, true
	}
	return cp[mid], true
}

// Quantile returns the q-th quantile (0 <= q <= 1) of x using linear
// interpolation between order statistics, i.e. rank q*(n-1).
func Quantile(x []float64, q float64) (float64, bool) {
	n := len(x)
	if n == 0 {
		return 0, false
	}
	return quantileSorted(sortedCopy(x), q), true
}

// Quantiles computes several quantiles with a single sort.
func Quantiles(x []float64, qs ...float64) ([]float64, bool) {
	if len(x) == 0 {
		return nil, false
	}
	cp := sortedCopy(x)
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = quantileSorted(cp, q)
	}
	return out, true
}

func quantileSorted(cp []float64, q float64) float64 {
	n := len(cp)
	if q <= 0 {
		return cp[0]
	}
	if q >= 1 {
		return cp[n-1]
	}
	rank := q * float64(n-1)
	lower := int(math.Floor(rank))
	upper := lower + 1
	if upper >= n {
		return cp[lower]
	}
	weight := rank - float64(lower)
	return cp[lower] + (cp[upper]-cp[lower])*weight
}

// Mode returns the most frequent value of x. Ties resolve to the smallest
// value in ascending order, matching a sorted mode listing.
func Mode(x []string) (string, bool) {
	if len(x) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(x))
	for _, v := range x {
		counts[v]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestN := keys[0], counts[keys[0]]
	for _, k := range keys[1:] {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best, true
}

// Clamp limits v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sortedCopy(x []float64) []float64 {
	cp := make([]float64, len(x))
	copy(cp, x)
	sort.Float64s(cp)
	return cp
}
