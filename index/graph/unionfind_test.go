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
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/recordcore/kv"
)

func TestUnionFindBasic(t *testing.T) {
	store := kv.NewMemStore()
	ctx := context.Background()
	uf := NewUnionFind(kv.NewSubspace([]byte{0x20}))

	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		for _, iri := range []string{"urn:a", "urn:b", "urn:c"} {
			if err := uf.MakeSet(ctx, tx, iri); err != nil {
				return err
			}
		}
		return uf.Union(ctx, tx, "urn:a", "urn:b")
	})
	require.NoError(t, err)

	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		rootA, err := uf.Find(ctx, tx, "urn:a")
		require.NoError(t, err)
		rootB, err := uf.Find(ctx, tx, "urn:b")
		require.NoError(t, err)
		require.Equal(t, rootA, rootB)

		rootC, err := uf.Find(ctx, tx, "urn:c")
		require.NoError(t, err)
		require.NotEqual(t, rootA, rootC)

		members, err := uf.Members(ctx, tx, rootA)
		require.NoError(t, err)
		sort.Strings(members)
		require.Equal(t, []string{"urn:a", "urn:b"}, members)
		return nil
	})
	require.NoError(t, err)
}

func TestUnionFindTieBreakPicksLexicographicallySmallerRoot(t *testing.T) {
	store := kv.NewMemStore()
	ctx := context.Background()
	uf := NewUnionFind(kv.NewSubspace([]byte{0x21}))

	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		if err := uf.MakeSet(ctx, tx, "urn:zulu"); err != nil {
			return err
		}
		return uf.MakeSet(ctx, tx, "urn:alpha")
	})
	require.NoError(t, err)

	err = store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		return uf.Union(ctx, tx, "urn:zulu", "urn:alpha")
	})
	require.NoError(t, err)

	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		root, err := uf.Find(ctx, tx, "urn:zulu")
		require.NoError(t, err)
		require.Equal(t, "urn:alpha", root)
		return nil
	})
	require.NoError(t, err)
}

func TestUnionFindExpand(t *testing.T) {
	store := kv.NewMemStore()
	ctx := context.Background()
	uf := NewUnionFind(kv.NewSubspace([]byte{0x22}))

	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		for _, iri := range []string{"urn:a", "urn:b", "urn:c", "urn:d"} {
			if err := uf.MakeSet(ctx, tx, iri); err != nil {
				return err
			}
		}
		if err := uf.Union(ctx, tx, "urn:a", "urn:b"); err != nil {
			return err
		}
		return uf.Union(ctx, tx, "urn:c", "urn:d")
	})
	require.NoError(t, err)

	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		expanded, err := uf.Expand(ctx, tx, []string{"urn:a", "urn:c"})
		require.NoError(t, err)
		sort.Strings(expanded)
		require.Equal(t, []string{"urn:a", "urn:b", "urn:c", "urn:d"}, expanded)
		return nil
	})
	require.NoError(t, err)
}
