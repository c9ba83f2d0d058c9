package engine

import (
	"container/heap"

	"github.com/23skdu/annreports/internal/hits"
	"github.com/23skdu/annreports/internal/metric"
)

// linearKnn scans every vector keeping the k nearest in a bounded max-heap.
func linearKnn(vectors [][]float32, distance metric.Func, query []float32, k int) hits.HitSet {
	if k > len(vectors) {
		k = len(vectors)
	}
	if k <= 0 {
		return nil
	}
	h := make(farthestFirst, 0, k)
	for id, v := range vectors {
		hit := hits.Hit{ID: id, Distance: distance(query, v)}
		if len(h) < k {
			heap.Push(&h, hit)
			continue
		}
		if hits.CompareHits(hit, h[0]) < 0 {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}
	out := hits.HitSet(h)
	out.Sort()
	return out
}

// linearRnn returns every vector whose distance to query is at most radius.
func linearRnn(vectors [][]float32, distance metric.Func, query []float32, radius float64) hits.HitSet {
	var out hits.HitSet
	for id, v := range vectors {
		if d := distance(query, v); d <= radius {
			out = append(out, hits.Hit{ID: id, Distance: d})
		}
	}
	return out
}

// farthestFirst is a max-heap of hits under hits.CompareHits.
type farthestFirst []hits.Hit

func (h farthestFirst) Len() int           { return len(h) }
func (h farthestFirst) Less(i, j int) bool { return hits.CompareHits(h[i], h[j]) > 0 }
func (h farthestFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *farthestFirst) Push(x any) { *h = append(*h, x.(hits.Hit)) }

func (h *farthestFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
