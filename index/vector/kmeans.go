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

package vector

import (
	"math"
	"math/rand"
)

// KMeans partitions vectors into nlist clusters, iterating at most
// maxIterations times or until no point changes cluster. Centroids are
// seeded from a uniform random sample of the input (not k-means++, kept
// simple since retraining already runs offline in its own transaction
// batch).
func KMeans(vectors [][]float64, nlist, maxIterations int, metric Metric) (centroids [][]float64, assignments []int) {
	n := len(vectors)
	if n == 0 || nlist <= 0 {
		return nil, nil
	}
	if nlist > n {
		nlist = n
	}
	dims := len(vectors[0])
	centroids = make([][]float64, nlist)
	perm := rand.Perm(n)
	for i := 0; i < nlist; i++ {
		centroids[i] = append([]float64{}, vectors[perm[i]]...)
	}
	assignments = make([]int, n)

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best, bestDist := 0, mustDistance(metric, v, centroids[0])
			for c := 1; c < nlist; c++ {
				d := mustDistance(metric, v, centroids[c])
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		sums := make([][]float64, nlist)
		counts := make([]int, nlist)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, v := range vectors {
			c := assignments[i]
			counts[c]++
			for d := 0; d < dims; d++ {
				sums[c][d] += v[d]
			}
		}
		for c := 0; c < nlist; c++ {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < dims; d++ {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}

		if !changed && iter > 0 {
			break
		}
	}
	return centroids, assignments
}

func mustDistance(metric Metric, a, b []float64) float64 {
	d, err := Distance(metric, a, b)
	if err != nil {
		panic(err)
	}
	return d
}

// DefaultNList picks nlist ~= 4*sqrt(n), per the preset defaults; callers
// with explicit capability.NList always win over this heuristic.
func DefaultNList(n int) int {
	v := int(4 * math.Sqrt(float64(n)))
	if v < 1 {
		return 1
	}
	return v
}

// DefaultNProbe picks nprobe ~= sqrt(nlist).
func DefaultNProbe(nlist int) int {
	v := int(math.Sqrt(float64(nlist)))
	if v < 1 {
		return 1
	}
	return v
}
