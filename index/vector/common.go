// Copyright 2026 The Recordcore Authors
// This file is part of recordcore.
//
// Recordcore is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Recordcore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with recordcore. If not, see <http://www.gnu.org/licenses/>.

// Package vector implements the Flat and IVF vector index maintainers:
// fixed-dimension float vectors, k-NN search via a bounded max-heap, and
// IVF's K-means partitioning with nprobe-limited search.
package vector

import (
	"container/heap"
	"math"

	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/kv"
)

// Metric identifies a distance function over equal-length float vectors.
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricEuclidean  Metric = "euclidean"
	MetricDotProduct Metric = "dotProduct"
)

// Distance computes the distance between a and b under m: smaller is
// closer. Cosine and dot-product are negated so that "smaller is closer"
// holds uniformly across metrics.
func Distance(m Metric, a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &apperr.DimensionMismatch{Expected: len(a), Got: len(b)}
	}
	switch m {
	case MetricEuclidean:
		var sum float64
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return math.Sqrt(sum), nil
	case MetricDotProduct:
		var dot float64
		for i := range a {
			dot += a[i] * b[i]
		}
		return -dot, nil
	case MetricCosine, "":
		var dot, normA, normB float64
		for i := range a {
			dot += a[i] * b[i]
			normA += a[i] * a[i]
			normB += b[i] * b[i]
		}
		if normA == 0 || normB == 0 {
			return 1, nil
		}
		return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)), nil
	default:
		return 0, &apperr.InvalidStructure{Reason: "unknown vector metric " + string(m)}
	}
}

// Candidate is one scored vector search result.
type Candidate struct {
	PK       kv.Tuple
	Distance float64
}

// topKHeap is a bounded max-heap over Candidate.Distance: the worst
// (largest-distance) candidate sits at the root so a new element can be
// compared against it in O(1) and, if better, replace it in O(log k).
type topKHeap struct {
	items []Candidate
	k     int
}

func newTopKHeap(k int) *topKHeap { return &topKHeap{k: k} }

func (h *topKHeap) Len() int            { return len(h.items) }
func (h *topKHeap) Less(i, j int) bool  { return h.items[i].Distance > h.items[j].Distance }
func (h *topKHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topKHeap) Push(x any)          { h.items = append(h.items, x.(Candidate)) }
func (h *topKHeap) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	return item
}

// Offer considers c for inclusion in the top-k set.
func (h *topKHeap) Offer(c Candidate) {
	if h.Len() < h.k {
		heap.Push(h, c)
		return
	}
	if h.Len() > 0 && c.Distance < h.items[0].Distance {
		heap.Pop(h)
		heap.Push(h, c)
	}
}

// Sorted drains the heap into ascending-distance order (closest first).
func (h *topKHeap) Sorted() []Candidate {
	out := make([]Candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Candidate)
	}
	return out
}

func packVector(v []float64) kv.Tuple {
	t := make(kv.Tuple, len(v))
	for i, f := range v {
		t[i] = f
	}
	return t
}

func unpackVector(t kv.Tuple) []float64 {
	out := make([]float64, len(t))
	for i, el := range t {
		switch n := el.(type) {
		case float64:
			out[i] = n
		case int64:
			out[i] = float64(n)
		}
	}
	return out
}
