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
	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/internal/metrics"
	"github.com/erigontech/recordcore/predicate"
)

// Optimizer is the top-down driver: one Catalog, one set of collected
// Statistics, and the weights the cost model charges against both. An
// Optimizer is reused across queries against the same table; each
// Optimize/OptimizeSimilarity call builds its own Memo.
type Optimizer struct {
	Catalog  Catalog
	Stats    StatsProvider
	Weights  Weights
	RowCount float64
}

// NewOptimizer builds an Optimizer with default weights.
func NewOptimizer(catalog Catalog, stats StatsProvider, rowCount float64) *Optimizer {
	return &Optimizer{Catalog: catalog, Stats: stats, Weights: DefaultWeights(), RowCount: rowCount}
}

// Result is what Optimize returns: the winning physical plan plus the
// Memo it was chosen from, so a caller (or a test asserting property 9)
// can inspect every alternative that was explored.
type Result struct {
	Plan *PhysicalPlan
	Memo *Memo
	Group *Group
}

func (o *Optimizer) ruleContext() ruleContext {
	rc := ruleContext{catalog: o.Catalog, stats: o.Stats, weights: o.Weights, rowCount: o.RowCount}
	if rc.weights == (Weights{}) {
		rc.weights = DefaultWeights()
	}
	if rc.rowCount <= 0 {
		rc.rowCount = 1
	}
	return rc
}

// Optimize finds the minimum-cost physical plan satisfying pred (the
// residual filter every candidate must account for) and, if given, the
// requested sort order and row limit. It always considers the full-scan
// baseline alongside every applicable rule, so the winner is guaranteed
// at least as good as scanning the whole table.
func (o *Optimizer) Optimize(pred predicate.Predicate, req RequiredProperties) (*Result, error) {
	rc := o.ruleContext()
	memo := NewMemo()
	group := memo.NewGroup()
	group.State = Explored

	baseline := fullScanCandidate(rc, pred)
	if len(req.SortKeys) > 0 {
		// a full scan yields rows in primary-key order, so a requested sort
		// order costs an in-memory sort of the filtered rows.
		baseline.Cost += sortCost(rc.weights, baseline.EstimatedRows)
	}
	memo.AddExpression(group, baseline)

	if len(req.SortKeys) > 0 {
		if p := ruleOrderedIndexScan(rc, pred, req.SortKeys); p != nil {
			memo.AddExpression(group, p)
		}
		if p := ruleRankTopK(rc, pred, req.SortKeys, req.Limit); p != nil {
			memo.AddExpression(group, p)
		}
	} else {
		for _, p := range ruleIndexSeek(rc, pred) {
			memo.AddExpression(group, p)
		}
		if p := ruleIntersection(rc, pred); p != nil {
			memo.AddExpression(group, p)
		}
		if p := ruleUnion(rc, pred); p != nil {
			memo.AddExpression(group, p)
		}
	}

	winner := memo.recordWinner(group, req)
	if winner == nil {
		return nil, apperr.NewPlannerError(apperr.NoViablePlan, "no candidate plan produced for predicate %s", pred.String())
	}
	metrics.PlannerWinnerCost.Observe(winner.Cost)
	return &Result{Plan: winner.Plan, Memo: memo, Group: group}, nil
}

// OptimizeSimilarity is the Rule 6 entry point: a nearest-neighbor search
// has a different input shape (field/query/k) than the predicate/sort/
// limit triple Optimize handles, so it is exposed separately rather than
// folded into RequiredProperties.
func (o *Optimizer) OptimizeSimilarity(field string, query []float32, k int) (*Result, error) {
	rc := o.ruleContext()
	memo := NewMemo()
	group := memo.NewGroup()
	group.State = Explored

	plan := ruleVectorSearch(rc, field, k)
	if plan == nil {
		return nil, apperr.NewPlannerError(apperr.NoViablePlan, "no vector index configured for field %q", field)
	}
	plan.VectorQuery = query
	memo.AddExpression(group, plan)

	winner := memo.recordWinner(group, RequiredProperties{Limit: k})
	metrics.PlannerWinnerCost.Observe(winner.Cost)
	return &Result{Plan: winner.Plan, Memo: memo, Group: group}, nil
}
