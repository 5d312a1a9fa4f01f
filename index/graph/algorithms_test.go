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

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/recordcore/kv"
)

func TestPageRankRanksHubAboveLeaf(t *testing.T) {
	m, store := newAdjacencyFixture()
	ctx := context.Background()

	// a star: b, c, d all link to a (a hub), and a links back to b.
	edges := [][3]string{
		{"b", "links", "a"},
		{"c", "links", "a"},
		{"d", "links", "a"},
		{"a", "links", "b"},
	}
	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		for _, e := range edges {
			if err := m.Update(ctx, tx, nil, edgeRecord(e[0], e[1], e[2])); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var scores map[string]float64
	err = store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		scores, err = PageRank(ctx, tx, m, PageRankOptions{Predicate: "links", ConvergenceEps: 1e-9})
		return err
	})
	require.NoError(t, err)
	require.Greater(t, scores["a"], scores["c"])
	require.Greater(t, scores["a"], scores["d"])

	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		persisted, err := readScore(ctx, tx, m.desc.Subspace, "a")
		require.NoError(t, err)
		require.InDelta(t, scores["a"], persisted, 1e-12)
		return nil
	})
	require.NoError(t, err)
}

func TestLabelPropagationKeepsTrianglesTogether(t *testing.T) {
	m, store := newAdjacencyFixture()
	ctx := context.Background()

	edges := [][3]string{
		{"a1", "near", "a2"}, {"a2", "near", "a3"}, {"a1", "near", "a3"},
		{"b1", "near", "b2"}, {"b2", "near", "b3"}, {"b1", "near", "b3"},
		{"a3", "near", "b1"},
	}
	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		for _, e := range edges {
			if err := m.Update(ctx, tx, nil, edgeRecord(e[0], e[1], e[2])); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var labels map[string]string
	err = store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		labels, err = LabelPropagation(ctx, tx, m, LabelPropagationOptions{Predicate: "near"})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, labels["a1"], labels["a2"])
	require.Equal(t, labels["a2"], labels["a3"])
	require.Equal(t, labels["b1"], labels["b2"])
	require.Equal(t, labels["b2"], labels["b3"])
}

func TestPageRankNoEdgesReturnsGraphAlgorithmError(t *testing.T) {
	m, store := newAdjacencyFixture()
	ctx := context.Background()
	err := store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		_, err := PageRank(ctx, tx, m, PageRankOptions{Predicate: "missing"})
		return err
	})
	require.Error(t, err)
}
