// Package recall scores an approximate result set against the exhaustive
// linear-scan result set for the same query.
//
// Matching is on distance values, not identifiers: points tied at the k-th
// boundary may legitimately swap between result sets, and the harness counts
// such swaps as hits.
package recall

import "github.com/23skdu/annreports/internal/hits"

// Recall returns |common distances| / k. Both sets are sorted by
// hits.Compare and intersected with a merge walk; each equal pair counts once.
// The result is clamped to [0, 1].
func Recall(approx, exact hits.HitSet, k int) float64 {
	if k <= 0 {
		if len(approx) == 0 && len(exact) == 0 {
			return 1
		}
		return 0
	}

	common := Common(approx.Distances(), exact.Distances())
	r := float64(common) / float64(k)
	if r > 1 {
		return 1
	}
	return r
}

// Range scores a radius search. The expected size is the number of points
// the linear scan found; when it found none, an approximate set that is also
// empty is perfect.
func Range(approx, exact hits.HitSet) float64 {
	if len(exact) == 0 {
		if len(approx) == 0 {
			return 1
		}
		return 0
	}
	return Recall(approx, exact, len(exact))
}

// Common counts matching values of two ascending sequences.
func Common(a, b []float64) int {
	var i, j, n int
	for i < len(a) && j < len(b) {
		switch hits.Compare(a[i], b[j]) {
		case -1:
			i++
		case 1:
			j++
		default:
			n++
			i++
			j++
		}
	}
	return n
}
