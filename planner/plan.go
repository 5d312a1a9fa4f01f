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
	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/predicate"
)

// PlanKind enumerates the physical operators the rule set can produce.
type PlanKind int

const (
	PlanFullScan PlanKind = iota
	PlanIndexSeek
	PlanOrderedIndexScan
	PlanRangeScan
	PlanIntersection
	PlanUnion
	PlanDedup
	PlanRankTopK
	PlanVectorSearch
	PlanFilter
)

// SortKey is one column of a requested sort order.
type SortKey struct {
	Field string
	Desc  bool
}

// RequiredProperties is what the top-level caller asks Optimize to
// satisfy: an optional sort order and an optional row limit (0 meaning
// unbounded).
type RequiredProperties struct {
	SortKeys []SortKey
	Limit    int
}

// PhysicalPlan is one node of a candidate plan tree. Only the fields
// relevant to Kind are populated. Cost is the estimator's total for the
// subtree rooted here (children's costs already folded in), so a parent
// node's cost is always >= the sum of its children's.
type PhysicalPlan struct {
	Kind     PlanKind
	Children []*PhysicalPlan

	// IndexSeek / OrderedIndexScan / RangeScan
	IndexName string
	Equalities []predicate.Predicate
	RangeBound *predicate.RangeBound
	Reverse    bool

	// RankTopK
	K int

	// VectorSearch
	VectorField string
	VectorQuery []float32
	NProbe      int

	// Filter
	Residual []predicate.Predicate

	// estimated number of rows/entries this node yields, used by parent
	// cost computations and by EXPLAIN-style introspection.
	EstimatedRows float64

	Cost float64
}

// IndexInfo is the catalog's view of one available index: the fields it
// covers, in declared order, govern which equality/range/sort prefixes it
// can satisfy.
type IndexInfo struct {
	Descriptor index.Descriptor
	// EstimatedEntries is the index's total entry count, the base for
	// index-read cost estimates absent better statistics.
	EstimatedEntries float64
}

// Catalog is the set of indexes the planner may choose among for one
// table. A Catalog is immutable for the lifetime of an Optimize call.
type Catalog struct {
	Indexes []IndexInfo
}

// ByFieldPrefix returns every index whose FieldNames begins with prefix,
// in declaration order (longest match first is the caller's job to pick).
func (c Catalog) ByFieldPrefix(prefix []string) []IndexInfo {
	var out []IndexInfo
	for _, ix := range c.Indexes {
		if fieldsHavePrefix(ix.Descriptor.FieldNames, prefix) {
			out = append(out, ix)
		}
	}
	return out
}

func fieldsHavePrefix(fields, prefix []string) bool {
	if len(prefix) > len(fields) {
		return false
	}
	for i, f := range prefix {
		if fields[i] != f {
			return false
		}
	}
	return true
}

// singleFieldIndex returns the first scalar index covering exactly field and
// nothing else, the shape Rule 2 (AND -> Intersection) and Rule 3
// (OR -> Union) need.
func (c Catalog) singleFieldIndex(field string) (IndexInfo, bool) {
	for _, ix := range c.Indexes {
		if ix.Descriptor.Kind == index.KindScalar && len(ix.Descriptor.FieldNames) == 1 && ix.Descriptor.FieldNames[0] == field {
			return ix, true
		}
	}
	return IndexInfo{}, false
}

func (c Catalog) rankIndexOn(field string) (IndexInfo, bool) {
	for _, ix := range c.Indexes {
		if ix.Descriptor.Kind == index.KindRank && len(ix.Descriptor.FieldNames) == 1 && ix.Descriptor.FieldNames[0] == field {
			return ix, true
		}
	}
	return IndexInfo{}, false
}

func (c Catalog) vectorIndexOn(field string) []IndexInfo {
	var out []IndexInfo
	for _, ix := range c.Indexes {
		if (ix.Descriptor.Kind == index.KindVectorFlat || ix.Descriptor.Kind == index.KindVectorIVF) && len(ix.Descriptor.FieldNames) == 1 && ix.Descriptor.FieldNames[0] == field {
			out = append(out, ix)
		}
	}
	return out
}
