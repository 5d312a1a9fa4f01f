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
	"slices"

	"github.com/erigontech/recordcore/kv"

	"golang.org/x/exp/maps"
)

// UnionFind persists disjoint sets of IRIs (owl:sameAs-style equivalence
// classes) under one subspace:
//
//	parent/[individual] -> parent_IRI (self-loop for roots)
//	rank/[individual]   -> i64
//	members/[root]/[member] -> ''
type UnionFind struct {
	sub kv.Subspace
}

func NewUnionFind(sub kv.Subspace) *UnionFind { return &UnionFind{sub: sub} }

func (u *UnionFind) parentKey(iri string) []byte { return u.sub.Sub(kv.Tuple{"parent"}).Pack(kv.Tuple{iri}) }
func (u *UnionFind) rankKey(iri string) []byte   { return u.sub.Sub(kv.Tuple{"rank"}).Pack(kv.Tuple{iri}) }
func (u *UnionFind) memberKey(root, member string) []byte {
	return u.sub.Sub(kv.Tuple{"members", root}).Pack(kv.Tuple{member})
}

func (u *UnionFind) readParent(ctx context.Context, tx kv.Transaction, iri string) (string, bool, error) {
	raw, err := tx.Get(ctx, u.parentKey(iri), false)
	if err != nil {
		return "", false, err
	}
	if raw == nil {
		return "", false, nil
	}
	t, err := kv.Unpack(raw)
	if err != nil {
		return "", false, err
	}
	return t[0].(string), true, nil
}

func (u *UnionFind) writeParent(tx kv.Transaction, iri, parent string) error {
	return tx.Set(u.parentKey(iri), kv.Pack(kv.Tuple{parent}))
}

func (u *UnionFind) readRank(ctx context.Context, tx kv.Transaction, iri string) (int64, error) {
	raw, err := tx.Get(ctx, u.rankKey(iri), false)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	t, err := kv.Unpack(raw)
	if err != nil {
		return 0, err
	}
	return t[0].(int64), nil
}

func (u *UnionFind) writeRank(tx kv.Transaction, iri string, rank int64) error {
	return tx.Set(u.rankKey(iri), kv.Pack(kv.Tuple{rank}))
}

// MakeSet registers iri as its own singleton set if it isn't already
// present under any set.
func (u *UnionFind) MakeSet(ctx context.Context, tx kv.Transaction, iri string) error {
	_, exists, err := u.readParent(ctx, tx, iri)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := u.writeParent(tx, iri, iri); err != nil {
		return err
	}
	if err := u.writeRank(tx, iri, 0); err != nil {
		return err
	}
	return tx.Set(u.memberKey(iri, iri), []byte{})
}

// Find returns iri's set representative, path-compressing every traversed
// node to point directly at the root before returning.
func (u *UnionFind) Find(ctx context.Context, tx kv.Transaction, iri string) (string, error) {
	path := []string{}
	cur := iri
	for {
		parent, exists, err := u.readParent(ctx, tx, cur)
		if err != nil {
			return "", err
		}
		if !exists {
			if err := u.MakeSet(ctx, tx, cur); err != nil {
				return "", err
			}
			parent = cur
		}
		if parent == cur {
			break
		}
		path = append(path, cur)
		cur = parent
	}
	root := cur
	for _, node := range path {
		if err := u.writeParent(tx, node, root); err != nil {
			return "", err
		}
	}
	return root, nil
}

// Union merges the sets containing a and b. The set with higher rank
// becomes the new root; on a tie, the lexicographically smaller IRI wins so
// the outcome is deterministic regardless of call order. Members-index rows
// migrate from the attached root to the new root in the same transaction.
func (u *UnionFind) Union(ctx context.Context, tx kv.Transaction, a, b string) error {
	rootA, err := u.Find(ctx, tx, a)
	if err != nil {
		return err
	}
	rootB, err := u.Find(ctx, tx, b)
	if err != nil {
		return err
	}
	if rootA == rootB {
		return nil
	}
	rankA, err := u.readRank(ctx, tx, rootA)
	if err != nil {
		return err
	}
	rankB, err := u.readRank(ctx, tx, rootB)
	if err != nil {
		return err
	}

	newRoot, attached := rootA, rootB
	switch {
	case rankA > rankB:
		newRoot, attached = rootA, rootB
	case rankB > rankA:
		newRoot, attached = rootB, rootA
	default:
		if rootB < rootA {
			newRoot, attached = rootB, rootA
		}
		if err := u.writeRank(tx, newRoot, rankA+1); err != nil {
			return err
		}
	}

	if err := u.writeParent(tx, attached, newRoot); err != nil {
		return err
	}
	return u.migrateMembers(ctx, tx, attached, newRoot)
}

func (u *UnionFind) migrateMembers(ctx context.Context, tx kv.Transaction, oldRoot, newRoot string) error {
	members, err := u.Members(ctx, tx, oldRoot)
	if err != nil {
		return err
	}
	for _, member := range members {
		if err := tx.Clear(u.memberKey(oldRoot, member)); err != nil {
			return err
		}
		if err := tx.Set(u.memberKey(newRoot, member), []byte{}); err != nil {
			return err
		}
	}
	return nil
}

// Members returns every IRI in root's equivalence class, always including
// root itself.
func (u *UnionFind) Members(ctx context.Context, tx kv.Transaction, root string) ([]string, error) {
	sub := u.sub.Sub(kv.Tuple{"members", root})
	begin, end := sub.Range()
	pairs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(pairs))
	for _, kvPair := range pairs {
		t, err := sub.Unpack(kvPair.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, t[0].(string))
	}
	return out, nil
}

// Expand returns the union of the equivalence classes of every IRI in set.
func (u *UnionFind) Expand(ctx context.Context, tx kv.Transaction, set []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, iri := range set {
		root, err := u.Find(ctx, tx, iri)
		if err != nil {
			return nil, err
		}
		members, err := u.Members(ctx, tx, root)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			seen[m] = struct{}{}
		}
	}
	return slices.Collect(maps.Keys(seen)), nil
}
