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

// Package planner implements the Cascades-style top-down query optimizer:
// a memo of equivalent plan alternatives per group, a minimum rule set
// turning predicate/sort/limit requests into physical scans, and a cost
// model driven by collected statistics.
package planner

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// GroupID identifies one memo group.
type GroupID int

// GroupState is a group's position in the Unexplored -> Explored ->
// Implemented -> Optimized(req) progression. This driver does not lazily
// defer exploration the way a full Cascades engine does (every candidate
// rule fires eagerly, since the plan shapes here are shallow), but the
// state is still recorded for introspection.
type GroupState int

const (
	Unexplored GroupState = iota
	Explored
	Implemented
	Optimized
)

// Expression is one candidate alternative living in a Group: always a
// physical plan in this driver (logical rewrites happen inline inside the
// rule functions rather than as separate memo entries), carrying the cost
// the estimator assigned it.
type Expression struct {
	ID   int
	Plan *PhysicalPlan
	Cost float64
}

// Group holds every Expression produced for one optimization request. The
// Winners map records the lowest-cost Expression found per
// required-properties fingerprint; since every Optimize call builds a fresh
// Memo, it holds the single entry for that call's requirements.
type Group struct {
	ID          GroupID
	State       GroupState
	Expressions []*Expression
	Winners     map[string]*Expression
}

// Memo is exclusive to one optimization (spec: "not shared across
// optimizations"): a fresh Memo is built per Optimize/OptimizeSimilarity
// call.
type Memo struct {
	groups      map[GroupID]*Group
	nextGroupID GroupID
	nextExprID  int
	busy        *roaring.Bitmap
}

// NewMemo builds an empty memo.
func NewMemo() *Memo {
	return &Memo{groups: make(map[GroupID]*Group), busy: roaring.New()}
}

// NewGroup allocates a fresh, Unexplored group.
func (m *Memo) NewGroup() *Group {
	id := m.nextGroupID
	m.nextGroupID++
	g := &Group{ID: id, Winners: make(map[string]*Expression)}
	m.groups[id] = g
	return g
}

// AddExpression records a costed physical plan as an alternative in g.
func (m *Memo) AddExpression(g *Group, plan *PhysicalPlan) *Expression {
	e := &Expression{ID: m.nextExprID, Plan: plan, Cost: plan.Cost}
	m.nextExprID++
	g.Expressions = append(g.Expressions, e)
	if g.State < Implemented {
		g.State = Implemented
	}
	return e
}

// Winner returns the lowest-cost Expression recorded in g, or nil if g has
// none. This is the property-9 check: the winner must minimize cost over
// every Expression AddExpression ever added to the group (the "explored
// set"), never just the first or the last candidate generated.
func (g *Group) Winner() *Expression {
	var best *Expression
	for _, e := range g.Expressions {
		if best == nil || e.Cost < best.Cost {
			best = e
		}
	}
	return best
}

// fingerprint renders req into a key for Group.Winners, stable across
// calls with identical requirements.
func (req RequiredProperties) fingerprint() string {
	s := fmt.Sprintf("limit=%d;", req.Limit)
	for _, k := range req.SortKeys {
		s += fmt.Sprintf("%s:%v;", k.Field, k.Desc)
	}
	return s
}

// recordWinner finalizes g against req: it stores the minimum-cost
// Expression under req's fingerprint and marks the group Optimized.
func (m *Memo) recordWinner(g *Group, req RequiredProperties) *Expression {
	w := g.Winner()
	if w != nil {
		g.Winners[req.fingerprint()] = w
	}
	g.State = Optimized
	return w
}

// enterBusy marks id as under active optimization, returning false if it
// was already busy (a cycle, which this driver's acyclic rule set never
// actually produces, but the guard mirrors the spec's per-group busy-set
// bit so a future recursive rule can't deadlock or infinite-loop silently).
func (m *Memo) enterBusy(id GroupID) bool {
	if m.busy.Contains(uint32(id)) {
		return false
	}
	m.busy.Add(uint32(id))
	return true
}

func (m *Memo) exitBusy(id GroupID) {
	m.busy.Remove(uint32(id))
}
