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

package planner

import (
	"math"

	"github.com/erigontech/recordcore/predicate"
	"github.com/erigontech/recordcore/stats"
)

// Weights are the per-operator cost coefficients the estimator combines
// with cardinality estimates. Defaults are chosen so an index read is far
// cheaper per-row than a full record fetch, matching the intuition that an
// index entry is a handful of bytes while a record fetch is a full KV get.
type Weights struct {
	IndexRead         float64
	Fetch             float64
	PostFilter        float64
	Sort              float64
	RangeInitiation   float64
	Dedup             float64
	Intersection      float64
	IntersectionFetch float64
}

// DefaultWeights mirrors an FDB-backed deployment: range initiation (a
// round trip to establish a cursor) dominates small scans, so the planner
// favors fewer, larger range reads over many small ones.
func DefaultWeights() Weights {
	return Weights{
		IndexRead:         1.0,
		Fetch:             4.0,
		PostFilter:        0.5,
		Sort:              1.5,
		RangeInitiation:   50.0,
		Dedup:             0.3,
		Intersection:      1.0,
		IntersectionFetch: 4.0,
	}
}

// Default selectivities applied when StatsProvider has no data for a field,
// per predicate class.
const (
	defaultEqSelectivity   = 0.1
	defaultRangeSelectivity = 0.3
	defaultLikeSelectivity  = 0.5
	defaultInSelectivity    = 0.2
)

// StatsProvider binds the cost model's selectivity lookups to collected
// statistics: cardinality from HyperLogLog, quantiles from t-digest. A nil
// StatsProvider (or one with no entry for a field) falls back to the
// defaults above.
type StatsProvider interface {
	// Cardinality returns the distinct-value estimate for field, if known.
	Cardinality(field string) (float64, bool)
	// Quantile returns the q-quantile of field's distribution, if known.
	Quantile(field string, q float64) (float64, bool)
}

// MapStatsProvider is a StatsProvider backed by one HyperLogLog and one
// TDigest per tracked field, the shape a catalog populates from collected
// column statistics.
type MapStatsProvider struct {
	Cardinalities map[string]*stats.HyperLogLog
	Quantiles     map[string]*stats.TDigest
}

func (m *MapStatsProvider) Cardinality(field string) (float64, bool) {
	if m == nil || m.Cardinalities == nil {
		return 0, false
	}
	hll, ok := m.Cardinalities[field]
	if !ok {
		return 0, false
	}
	return float64(hll.Estimate()), true
}

func (m *MapStatsProvider) Quantile(field string, q float64) (float64, bool) {
	if m == nil || m.Quantiles == nil {
		return 0, false
	}
	td, ok := m.Quantiles[field]
	if !ok {
		return 0, false
	}
	return td.Quantile(q), true
}

// equalitySelectivity estimates the fraction of rows an equality predicate
// on field retains, as 1/cardinality when known.
func equalitySelectivity(s StatsProvider, field string) float64 {
	if s != nil {
		if card, ok := s.Cardinality(field); ok && card > 0 {
			return 1.0 / card
		}
	}
	return defaultEqSelectivity
}

func rangeSelectivity(s StatsProvider, field string, op predicate.Op, value any) float64 {
	if s == nil {
		return defaultRangeSelectivity
	}
	v, ok := toFloat(value)
	if !ok {
		return defaultRangeSelectivity
	}
	lo, loOK := s.Quantile(field, 0.0)
	hi, hiOK := s.Quantile(field, 1.0)
	if !loOK || !hiOK || hi <= lo {
		return defaultRangeSelectivity
	}
	frac := (v - lo) / (hi - lo)
	switch op {
	case predicate.OpLt, predicate.OpLe:
		return clamp01(frac)
	case predicate.OpGt, predicate.OpGe:
		return clamp01(1 - frac)
	default:
		return defaultRangeSelectivity
	}
}

func selectivityOf(s StatsProvider, p predicate.Predicate) float64 {
	switch p.Kind {
	case predicate.KindComparison:
		switch p.Op {
		case predicate.OpEq:
			return equalitySelectivity(s, p.Field)
		case predicate.OpLike, predicate.OpILike:
			return defaultLikeSelectivity
		case predicate.OpIn:
			return defaultInSelectivity
		case predicate.OpLt, predicate.OpLe, predicate.OpGt, predicate.OpGe:
			return rangeSelectivity(s, p.Field, p.Op, p.Value)
		default:
			return defaultRangeSelectivity
		}
	case predicate.KindAnd:
		sel := 1.0
		for _, c := range p.Children {
			sel *= selectivityOf(s, c)
		}
		return sel
	case predicate.KindOr:
		sel := 0.0
		for _, c := range p.Children {
			sel += selectivityOf(s, c)
		}
		return clamp01(sel)
	case predicate.KindTrue:
		return 1.0
	case predicate.KindFalse:
		return 0.0
	default:
		return defaultRangeSelectivity
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// indexCost estimates reading entries index rows, optionally including a
// one-time range-initiation cost for opening the cursor.
func indexCost(w Weights, entries float64, initiation bool) float64 {
	c := entries * w.IndexRead
	if initiation {
		c += w.RangeInitiation
	}
	return c
}

// fetchCost estimates hydrating n full records from their primary keys.
func fetchCost(w Weights, n float64) float64 {
	return n * w.Fetch
}

// filterCost estimates evaluating a residual predicate over n candidates
// with selectivity s, charging only for the rows the filter rejects.
func filterCost(w Weights, n, s float64) float64 {
	return n * (1 - s) * w.PostFilter
}

// sortCost estimates an in-memory sort of n rows.
func sortCost(w Weights, n float64) float64 {
	if n < 2 {
		n = 2
	}
	return n * math.Log2(n) * w.Sort
}

// dedupCost estimates deduplicating n union candidates.
func dedupCost(w Weights, n float64) float64 {
	return n * w.Dedup
}

// intersectCost sums the per-child index-set costs plus the cost of
// fetching the estimated intersection result.
func intersectCost(w Weights, childCosts []float64, expectedResult float64) float64 {
	total := expectedResult * w.IntersectionFetch
	for _, c := range childCosts {
		total += c * w.Intersection
	}
	return total
}
