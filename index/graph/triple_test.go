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

	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/record"
)

func tripleRecord(s, p, o string) record.Record {
	table := record.NewFieldTable([]string{"s", "p", "o"})
	return record.NewGeneric("triple", kv.Tuple{s, p, o}, table, map[string]record.Value{"s": s, "p": p, "o": o})
}

func newTripleFixture() (*TripleMaintainer, kv.Store) {
	desc := index.Descriptor{
		Name:       "spo",
		Kind:       index.KindGraphTriple,
		FieldNames: []string{"s", "p", "o"},
		Subspace:   kv.NewSubspace([]byte{0x11}),
	}
	return NewTriple(desc), kv.NewMemStore()
}

func TestTripleAnyTwoBoundPatterns(t *testing.T) {
	m, store := newTripleFixture()
	ctx := context.Background()

	triples := [][3]string{
		{"alice", "knows", "bob"},
		{"alice", "knows", "carol"},
		{"bob", "knows", "carol"},
	}
	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		for _, tr := range triples {
			if err := m.Update(ctx, tx, nil, tripleRecord(tr[0], tr[1], tr[2])); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		bySubject, err := m.BySubject(ctx, tx, "alice")
		require.NoError(t, err)
		require.Len(t, bySubject, 2)

		byPredicate, err := m.ByPredicate(ctx, tx, "knows")
		require.NoError(t, err)
		require.Len(t, byPredicate, 3)

		byObject, err := m.ByObject(ctx, tx, "carol")
		require.NoError(t, err)
		require.Len(t, byObject, 2)

		bySP, err := m.BySubjectPredicate(ctx, tx, "alice", "knows")
		require.NoError(t, err)
		require.ElementsMatch(t, []Triple{
			{S: "alice", P: "knows", O: "bob"},
			{S: "alice", P: "knows", O: "carol"},
		}, bySP)

		byPO, err := m.ByPredicateObject(ctx, tx, "knows", "carol")
		require.NoError(t, err)
		require.ElementsMatch(t, []Triple{
			{S: "alice", P: "knows", O: "carol"},
			{S: "bob", P: "knows", O: "carol"},
		}, byPO)

		byOS, err := m.ByObjectSubject(ctx, tx, "bob", "alice")
		require.NoError(t, err)
		require.Equal(t, []Triple{{S: "alice", P: "knows", O: "bob"}}, byOS)
		return nil
	})
	require.NoError(t, err)
}

func TestTripleComputeKeysCount(t *testing.T) {
	m, _ := newTripleFixture()
	keys, err := m.ComputeKeys(tripleRecord("alice", "knows", "bob"))
	require.NoError(t, err)
	require.Len(t, keys, 3)
}
