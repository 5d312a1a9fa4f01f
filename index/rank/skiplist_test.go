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

package rank

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/record"
)

func newTestMaintainer() (*Maintainer, kv.Store) {
	desc := index.Descriptor{
		Name:       "by_score",
		Kind:       index.KindRank,
		FieldNames: []string{"score"},
		Subspace:   kv.NewSubspace([]byte{0x01}),
	}
	return New(desc), kv.NewMemStore()
}

func scoreRecord(score float64, pk string) record.Record {
	table := record.NewFieldTable([]string{"score"})
	return record.NewGeneric("item", kv.Tuple{pk}, table, map[string]record.Value{"score": score})
}

func TestRankTopKAndRank(t *testing.T) {
	m, store := newTestMaintainer()
	ctx := context.Background()

	entries := []struct {
		score float64
		pk    string
	}{
		{100, "p1"},
		{500, "p2"},
		{1000, "p3"},
	}
	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		for _, e := range entries {
			if err := m.Update(ctx, tx, nil, scoreRecord(e.score, e.pk)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		top, err := m.TopK(ctx, tx, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		require.Equal(t, 1000.0, top[0].Score)
		require.Equal(t, kv.Tuple{"p3"}, top[0].PK)
		require.Equal(t, int64(0), top[0].Rank)
		require.Equal(t, 500.0, top[1].Score)
		require.Equal(t, kv.Tuple{"p2"}, top[1].PK)
		require.Equal(t, int64(1), top[1].Rank)

		rank, err := m.GetRank(ctx, tx, 500)
		require.NoError(t, err)
		require.Equal(t, int64(1), rank)
		return nil
	})
	require.NoError(t, err)
}

func TestRankTieBreakAndDelete(t *testing.T) {
	m, store := newTestMaintainer()
	ctx := context.Background()

	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		for _, e := range []struct {
			score float64
			pk    string
		}{{10, "b"}, {10, "a"}, {5, "c"}} {
			if err := m.Update(ctx, tx, nil, scoreRecord(e.score, e.pk)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		top, err := m.TopK(ctx, tx, 3)
		require.NoError(t, err)
		require.Len(t, top, 3)
		require.Equal(t, kv.Tuple{"a"}, top[0].PK)
		require.Equal(t, kv.Tuple{"b"}, top[1].PK)
		require.Equal(t, int64(0), top[1].Rank, "tied scores share the same rank floor")
		require.Equal(t, kv.Tuple{"c"}, top[2].PK)
		require.Equal(t, int64(2), top[2].Rank)
		return nil
	})
	require.NoError(t, err)

	err = store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		return m.Update(ctx, tx, scoreRecord(10, "a"), nil)
	})
	require.NoError(t, err)

	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		top, err := m.TopK(ctx, tx, 3)
		require.NoError(t, err)
		require.Len(t, top, 2)
		require.Equal(t, kv.Tuple{"b"}, top[0].PK)
		require.Equal(t, kv.Tuple{"c"}, top[1].PK)
		require.Equal(t, int64(1), top[1].Rank)
		return nil
	})
	require.NoError(t, err)
}

func TestRankManyEntriesTopKOrdering(t *testing.T) {
	m, store := newTestMaintainer()
	ctx := context.Background()

	const n = 200
	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		for i := 0; i < n; i++ {
			score := float64(n - i)
			pk := fmt.Sprintf("pk-%04d", i)
			if err := m.Update(ctx, tx, nil, scoreRecord(score, pk)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		top, err := m.TopK(ctx, tx, 10)
		require.NoError(t, err)
		require.Len(t, top, 10)
		for i, e := range top {
			require.Equal(t, float64(n-i), e.Score)
			require.Equal(t, int64(i), e.Rank)
		}
		rank, err := m.GetRank(ctx, tx, float64(n-5))
		require.NoError(t, err)
		require.Equal(t, int64(5), rank)
		return nil
	})
	require.NoError(t, err)
}
