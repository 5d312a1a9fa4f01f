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

package stats_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/recordcore/stats"
)

func TestHyperLogLogCardinalityWithinFivePercent(t *testing.T) {
	h := stats.NewHyperLogLog()
	const n = 50000
	for i := 0; i < n; i++ {
		h.Add(fmt.Sprintf("item-%d", i))
	}
	est := h.Estimate()
	errPct := math.Abs(float64(est)-n) / n
	require.Lessf(t, errPct, 0.05, "estimate %d vs true %d, error %.4f", est, n, errPct)
}

func TestHyperLogLogMergeIdempotentAndUnion(t *testing.T) {
	a := stats.NewHyperLogLog()
	for i := 0; i < 1000; i++ {
		a.Add(fmt.Sprintf("a-%d", i))
	}
	selfMerged := a.Merge(a)
	require.InDelta(t, a.Estimate(), selfMerged.Estimate(), 1, "merge with self must not change estimate")

	b := stats.NewHyperLogLog()
	for i := 0; i < 1000; i++ {
		b.Add(fmt.Sprintf("b-%d", i))
	}
	union := a.Merge(b)
	errPct := math.Abs(float64(union.Estimate())-2000) / 2000
	require.Less(t, errPct, 0.08)
}

func TestTDigestQuantileBounds(t *testing.T) {
	d := stats.NewTDigest(stats.DefaultCompression)
	for i := 1; i <= 1000; i++ {
		d = d.Add(float64(i), 1)
	}
	require.Equal(t, 1.0, d.Quantile(0))
	require.Equal(t, 1000.0, d.Quantile(1))
	median := d.Quantile(0.5)
	require.InDelta(t, 500, median, 50)
}

func TestTDigestMergeCommutative(t *testing.T) {
	a := stats.NewTDigest(stats.DefaultCompression)
	for i := 1; i <= 200; i++ {
		a = a.Add(float64(i), 1)
	}
	b := stats.NewTDigest(stats.DefaultCompression)
	for i := 201; i <= 400; i++ {
		b = b.Add(float64(i), 1)
	}
	ab := a.Merge(b)
	ba := b.Merge(a)
	require.InDelta(t, ab.Quantile(0.5), ba.Quantile(0.5), 5)
	require.Equal(t, ab.Count(), ba.Count())
}
