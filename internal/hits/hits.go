// Package hits defines search results and the total order over distances
// shared by result ranking and recall evaluation.
package hits

import (
	"math"
	"slices"
)

// Hit is one (identifier, distance) pair returned by a search.
type Hit struct {
	ID       int
	Distance float64
}

// HitSet is the unordered result of a single search call.
type HitSet []Hit

// Compare orders distances totally: NaN sorts below every number and all
// NaNs compare equal to each other, so sorts and merge walks never stall.
func Compare(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CompareHits orders hits by distance, breaking ties by identifier.
func CompareHits(a, b Hit) int {
	if c := Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// Sort orders h in place by CompareHits.
func (h HitSet) Sort() {
	slices.SortFunc(h, CompareHits)
}

// Distances returns a fresh slice of the distances in h sorted by Compare.
func (h HitSet) Distances() []float64 {
	out := make([]float64, len(h))
	for i, hit := range h {
		out[i] = hit.Distance
	}
	slices.SortFunc(out, Compare)
	return out
}

// MaxDistance returns the largest distance in h under Compare, or 0 for an
// empty set.
func (h HitSet) MaxDistance() float64 {
	if len(h) == 0 {
		return 0
	}
	best := h[0].Distance
	for _, hit := range h[1:] {
		if Compare(hit.Distance, best) > 0 {
			best = hit.Distance
		}
	}
	return best
}

// Offset returns a copy of h with every identifier shifted by delta.
func (h HitSet) Offset(delta int) HitSet {
	out := make(HitSet, len(h))
	for i, hit := range h {
		out[i] = Hit{ID: hit.ID + delta, Distance: hit.Distance}
	}
	return out
}

// Nearest returns the k closest hits of h in ascending order. h is sorted in
// place.
func (h HitSet) Nearest(k int) HitSet {
	h.Sort()
	if k < 0 {
		k = 0
	}
	if len(h) > k {
		return h[:k]
	}
	return h
}
