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

// ruleContext threads the inputs every rule needs: the catalog of
// available indexes, the collected statistics, and the estimated row
// count of the unfiltered table (the full-scan baseline's cost and the
// fallback for indexes the catalog has no entry-count for).
type ruleContext struct {
	catalog  Catalog
	stats    StatsProvider
	weights  Weights
	rowCount float64
}

// fullScanCandidate is the baseline every Optimize call includes: a plain
// table scan with the whole predicate evaluated as a residual filter.
// Without this, a query with no usable index would have no candidate at
// all.
func fullScanCandidate(rc ruleContext, pred predicate.Predicate) *PhysicalPlan {
	sel := selectivityOf(rc.stats, pred)
	plan := &PhysicalPlan{
		Kind:          PlanFilter,
		Residual:      []predicate.Predicate{pred},
		EstimatedRows: rc.rowCount * sel,
	}
	scan := &PhysicalPlan{Kind: PlanFullScan, EstimatedRows: rc.rowCount}
	scan.Cost = fetchCost(rc.weights, rc.rowCount)
	plan.Children = []*PhysicalPlan{scan}
	plan.Cost = scan.Cost + filterCost(rc.weights, rc.rowCount, sel)
	return plan
}

// ruleIndexSeek is Rule 1: Filter(Scan) -> IndexSeek when a scalar index's
// field prefix matches the predicate's leading equalities (plus an
// optional trailing range bound on the next field).
func ruleIndexSeek(rc ruleContext, pred predicate.Predicate) []*PhysicalPlan {
	equalities, rangeBound, rest := pred.EqualityPrefix()
	if len(equalities) == 0 && rangeBound == nil {
		return nil
	}
	prefix := make([]string, 0, len(equalities)+1)
	for _, eq := range equalities {
		prefix = append(prefix, eq.Field)
	}
	if rangeBound != nil {
		prefix = append(prefix, rangeBound.Field)
	}

	var out []*PhysicalPlan
	for _, ix := range rc.catalog.ByFieldPrefix(prefix) {
		entries := ix.EstimatedEntries
		if entries == 0 {
			entries = rc.rowCount
		}
		seekSel := 1.0
		for _, eq := range equalities {
			seekSel *= selectivityOf(rc.stats, eq)
		}
		if rangeBound != nil {
			seekSel *= rangeSelectivity(rc.stats, rangeBound.Field, rangeBound.Op, rangeBound.Value)
		}
		matched := entries * seekSel

		seek := &PhysicalPlan{
			Kind:          PlanIndexSeek,
			IndexName:     ix.Descriptor.Name,
			Equalities:    equalities,
			RangeBound:    rangeBound,
			EstimatedRows: matched,
			Cost:          indexCost(rc.weights, matched, true),
		}

		fetch := &PhysicalPlan{
			Kind:          PlanFilter,
			Children:      []*PhysicalPlan{seek},
			EstimatedRows: matched,
			Cost:          seek.Cost + fetchCost(rc.weights, matched),
		}
		if len(rest) > 0 {
			residualSel := 1.0
			for _, r := range rest {
				residualSel *= selectivityOf(rc.stats, r)
			}
			fetch.Residual = rest
			fetch.EstimatedRows = matched * residualSel
			fetch.Cost += filterCost(rc.weights, matched, residualSel)
		}
		out = append(out, fetch)
	}
	return out
}

// ruleIntersection is Rule 2: Filter(AND) -> Intersection(IndexSeek...)
// when at least two conjuncts each have a dedicated single-column index.
func ruleIntersection(rc ruleContext, pred predicate.Predicate) *PhysicalPlan {
	if pred.Kind != predicate.KindAnd {
		return nil
	}
	var children []*PhysicalPlan
	var childCosts []float64
	var rest []predicate.Predicate
	minRows := rc.rowCount
	for _, c := range pred.Children {
		if c.Kind != predicate.KindComparison || c.Op != predicate.OpEq {
			rest = append(rest, c)
			continue
		}
		ix, ok := rc.catalog.singleFieldIndex(c.Field)
		if !ok {
			rest = append(rest, c)
			continue
		}
		entries := ix.EstimatedEntries
		if entries == 0 {
			entries = rc.rowCount
		}
		matched := entries * selectivityOf(rc.stats, c)
		if matched < minRows {
			minRows = matched
		}
		seek := &PhysicalPlan{
			Kind:          PlanIndexSeek,
			IndexName:     ix.Descriptor.Name,
			Equalities:    []predicate.Predicate{c},
			EstimatedRows: matched,
			Cost:          indexCost(rc.weights, matched, true),
		}
		children = append(children, seek)
		childCosts = append(childCosts, seek.Cost)
	}
	if len(children) < 2 {
		return nil
	}
	inter := &PhysicalPlan{
		Kind:          PlanIntersection,
		Children:      children,
		EstimatedRows: minRows,
		Cost:          intersectCost(rc.weights, childCosts, minRows),
	}
	if len(rest) == 0 {
		return inter
	}
	residualSel := 1.0
	for _, r := range rest {
		residualSel *= selectivityOf(rc.stats, r)
	}
	return &PhysicalPlan{
		Kind:          PlanFilter,
		Children:      []*PhysicalPlan{inter},
		Residual:      rest,
		EstimatedRows: minRows * residualSel,
		Cost:          inter.Cost + filterCost(rc.weights, minRows, residualSel),
	}
}

// ruleUnion is Rule 3: OR -> Union(IndexSeek...) + Dedup when every
// disjunct is index-coverable on its own.
func ruleUnion(rc ruleContext, pred predicate.Predicate) *PhysicalPlan {
	if pred.Kind != predicate.KindOr {
		return nil
	}
	var children []*PhysicalPlan
	var childCosts []float64
	total := 0.0
	for _, d := range pred.Children {
		if d.Kind != predicate.KindComparison || d.Op != predicate.OpEq {
			return nil
		}
		ix, ok := rc.catalog.singleFieldIndex(d.Field)
		if !ok {
			return nil
		}
		entries := ix.EstimatedEntries
		if entries == 0 {
			entries = rc.rowCount
		}
		matched := entries * selectivityOf(rc.stats, d)
		seek := &PhysicalPlan{
			Kind:          PlanIndexSeek,
			IndexName:     ix.Descriptor.Name,
			Equalities:    []predicate.Predicate{d},
			EstimatedRows: matched,
			Cost:          indexCost(rc.weights, matched, true),
		}
		children = append(children, seek)
		childCosts = append(childCosts, seek.Cost)
		total += matched
	}
	if len(children) < 2 {
		return nil
	}
	union := &PhysicalPlan{Kind: PlanUnion, Children: children, EstimatedRows: total}
	for _, c := range childCosts {
		union.Cost += c
	}
	dedup := &PhysicalPlan{
		Kind:          PlanDedup,
		Children:      []*PhysicalPlan{union},
		EstimatedRows: total,
		Cost:          union.Cost + dedupCost(rc.weights, total) + fetchCost(rc.weights, total),
	}
	return dedup
}

// ruleOrderedIndexScan is Rule 4: Sort(Scan) -> OrderedIndexScan when a
// scalar index's field order matches the requested sort prefix, after the
// predicate's leading equalities. An equality prefix plus an ORDER BY on
// the next column is served this way too, since the equality-narrowed
// index range is already in the requested order and needs no separate
// sort step.
func ruleOrderedIndexScan(rc ruleContext, pred predicate.Predicate, sortKeys []SortKey) *PhysicalPlan {
	if len(sortKeys) == 0 {
		return nil
	}
	equalities, rangeBound, rest := pred.EqualityPrefix()
	if rangeBound != nil {
		// a trailing range bound consumes the column that would otherwise
		// need to carry the sort order; this rule only handles the plain
		// equality-prefix + sort case.
		return nil
	}
	prefix := make([]string, 0, len(equalities)+1)
	for _, eq := range equalities {
		prefix = append(prefix, eq.Field)
	}
	prefix = append(prefix, sortKeys[0].Field)

	var best *PhysicalPlan
	for _, ix := range rc.catalog.ByFieldPrefix(prefix) {
		if !sortKeysCompatible(ix.Descriptor.FieldNames, len(equalities), sortKeys) {
			continue
		}
		entries := ix.EstimatedEntries
		if entries == 0 {
			entries = rc.rowCount
		}
		seekSel := 1.0
		for _, eq := range equalities {
			seekSel *= selectivityOf(rc.stats, eq)
		}
		matched := entries * seekSel
		scan := &PhysicalPlan{
			Kind:          PlanOrderedIndexScan,
			IndexName:     ix.Descriptor.Name,
			Equalities:    equalities,
			Reverse:       sortKeys[0].Desc,
			EstimatedRows: matched,
			Cost:          indexCost(rc.weights, matched, true),
		}
		node := &PhysicalPlan{
			Kind:          PlanFilter,
			Children:      []*PhysicalPlan{scan},
			EstimatedRows: matched,
			Cost:          scan.Cost + fetchCost(rc.weights, matched),
		}
		if len(rest) > 0 {
			residualSel := 1.0
			for _, r := range rest {
				residualSel *= selectivityOf(rc.stats, r)
			}
			node.Residual = rest
			node.EstimatedRows = matched * residualSel
			node.Cost += filterCost(rc.weights, matched, residualSel)
		}
		if best == nil || node.Cost < best.Cost {
			best = node
		}
	}
	return best
}

// sortKeysCompatible reports whether index fields, after skipping the
// already-equality-bound leading columns, continue with sortKeys in
// order, each requiring the same direction as the first (a single-column
// index range is inherently sorted in one direction at a time).
func sortKeysCompatible(fields []string, skip int, sortKeys []SortKey) bool {
	if len(fields) < skip+len(sortKeys) {
		return false
	}
	for i, sk := range sortKeys {
		if fields[skip+i] != sk.Field {
			return false
		}
		if sk.Desc != sortKeys[0].Desc {
			return false
		}
	}
	return true
}

// ruleRankTopK is Rule 5: TopK(Sort(...)) -> RankIndexTopK when the sort
// column has a dedicated rank index and no other predicate narrows the
// candidate set (a rank index has no value-prefix scan of its own).
func ruleRankTopK(rc ruleContext, pred predicate.Predicate, sortKeys []SortKey, limit int) *PhysicalPlan {
	if limit <= 0 || len(sortKeys) != 1 {
		return nil
	}
	if pred.Kind != predicate.KindTrue {
		return nil
	}
	ix, ok := rc.catalog.rankIndexOn(sortKeys[0].Field)
	if !ok {
		return nil
	}
	k := float64(limit)
	seek := &PhysicalPlan{
		Kind:          PlanRankTopK,
		IndexName:     ix.Descriptor.Name,
		K:             limit,
		Reverse:       sortKeys[0].Desc,
		EstimatedRows: k,
		Cost:          indexCost(rc.weights, k, true),
	}
	return &PhysicalPlan{
		Kind:          PlanFilter,
		Children:      []*PhysicalPlan{seek},
		EstimatedRows: k,
		Cost:          seek.Cost + fetchCost(rc.weights, k),
	}
}

// ruleVectorSearch is Rule 6: Similar(...) -> VectorIndexSearch, choosing
// among the available Flat/IVF indexes on field by cost (Flat reads all n
// entries, IVF reads nprobe/nlist * n; both pay one range-initiation charge
// and the fetch of k results, so IVF wins whenever nprobe < nlist).
func ruleVectorSearch(rc ruleContext, field string, k int) *PhysicalPlan {
	var best *PhysicalPlan
	for _, ix := range rc.catalog.vectorIndexOn(field) {
		entries := ix.EstimatedEntries
		if entries == 0 {
			entries = rc.rowCount
		}
		var scanned float64
		nprobe := 0
		if ix.Descriptor.Kind == index.KindVectorIVF {
			nlist := ix.Descriptor.Capability.NList
			nprobe = ix.Descriptor.Capability.NProbe
			if nlist <= 0 {
				nlist = 1
			}
			if nprobe <= 0 {
				nprobe = 1
			}
			scanned = entries * float64(nprobe) / float64(nlist)
		} else {
			scanned = entries
		}
		plan := &PhysicalPlan{
			Kind:          PlanVectorSearch,
			IndexName:     ix.Descriptor.Name,
			VectorField:   field,
			NProbe:        nprobe,
			K:             k,
			EstimatedRows: float64(k),
			Cost:          indexCost(rc.weights, scanned, true) + fetchCost(rc.weights, float64(k)),
		}
		if best == nil || plan.Cost < best.Cost {
			best = plan
		}
	}
	return best
}
