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

// Package graph implements the adjacency and triple-store index
// maintainers, persistent union-find for owl:sameAs-style equivalence, and
// the PageRank / label-propagation algorithms that iterate over them.
package graph

import (
	"context"

	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/record"
)

// edgeFields is the (src, predicate, dst) triple a graph record carries,
// named by FieldNames[0..2] in that order.
type edgeFields struct {
	src, predicate, dst string
}

func (m *AdjacencyMaintainer) fields() (edgeFields, bool) {
	if len(m.desc.FieldNames) != 3 {
		return edgeFields{}, false
	}
	return edgeFields{src: m.desc.FieldNames[0], predicate: m.desc.FieldNames[1], dst: m.desc.FieldNames[2]}, true
}

// AdjacencyMaintainer stores each edge twice, under per-ontology (predicate)
// subspaces, so that both out-edges and in-edges resolve via a direct range
// scan instead of a reverse index build:
//
//	fwd/[predicate]/[src]/[dst] -> ''
//	rev/[predicate]/[dst]/[src] -> ''
type AdjacencyMaintainer struct {
	desc index.Descriptor
}

func NewAdjacency(desc index.Descriptor) *AdjacencyMaintainer {
	return &AdjacencyMaintainer{desc: desc}
}

func (m *AdjacencyMaintainer) Descriptor() index.Descriptor { return m.desc }

func (m *AdjacencyMaintainer) edgeOf(rec record.Record) (predicate string, src, dst any, ok bool, err error) {
	f, ok := m.fields()
	if !ok {
		return "", nil, nil, false, nil
	}
	srcV, srcOK := rec.Field(f.src)
	predV, predOK := rec.Field(f.predicate)
	dstV, dstOK := rec.Field(f.dst)
	if !srcOK || !predOK || !dstOK || srcV == nil || predV == nil || dstV == nil {
		return "", nil, nil, false, nil
	}
	p, isStr := predV.(string)
	if !isStr {
		return "", nil, nil, false, &apperr.InvalidStructure{Reason: "edge predicate field is not a string"}
	}
	return p, srcV, dstV, true, nil
}

func (m *AdjacencyMaintainer) fwdKey(predicate string, src, dst any) []byte {
	return m.desc.Subspace.Sub(kv.Tuple{"fwd", predicate}).Pack(kv.Tuple{src, dst})
}

func (m *AdjacencyMaintainer) revKey(predicate string, src, dst any) []byte {
	return m.desc.Subspace.Sub(kv.Tuple{"rev", predicate}).Pack(kv.Tuple{dst, src})
}

func (m *AdjacencyMaintainer) Update(ctx context.Context, tx kv.Transaction, old, new record.Record) error {
	if old != nil {
		if p, src, dst, ok, err := m.edgeOf(old); err != nil {
			return err
		} else if ok {
			if err := tx.Clear(m.fwdKey(p, src, dst)); err != nil {
				return err
			}
			if err := tx.Clear(m.revKey(p, src, dst)); err != nil {
				return err
			}
		}
	}
	if new != nil {
		p, src, dst, ok, err := m.edgeOf(new)
		if err != nil {
			return err
		}
		if ok {
			fwd, rev := m.fwdKey(p, src, dst), m.revKey(p, src, dst)
			if err := kv.ValidateKeySize(fwd); err != nil {
				return err
			}
			if err := kv.ValidateKeySize(rev); err != nil {
				return err
			}
			if err := tx.Set(fwd, []byte{}); err != nil {
				return err
			}
			if err := tx.Set(rev, []byte{}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *AdjacencyMaintainer) ScanItem(ctx context.Context, tx kv.Transaction, rec record.Record, tracker index.ViolationRecorder) error {
	return m.Update(ctx, tx, nil, rec)
}

func (m *AdjacencyMaintainer) ComputeKeys(rec record.Record) ([][]byte, error) {
	p, src, dst, ok, err := m.edgeOf(rec)
	if err != nil || !ok {
		return nil, err
	}
	return [][]byte{m.fwdKey(p, src, dst), m.revKey(p, src, dst)}, nil
}

// Out returns every dst reachable from src via predicate, in ascending dst
// order.
func (m *AdjacencyMaintainer) Out(ctx context.Context, tx kv.Transaction, predicate string, src any) ([]any, error) {
	sub := m.desc.Subspace.Sub(kv.Tuple{"fwd", predicate}).Sub(kv.Tuple{src})
	begin, end := sub.Range()
	pairs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(pairs))
	for _, kvPair := range pairs {
		t, err := sub.Unpack(kvPair.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, t[0])
	}
	return out, nil
}

// In returns every src that reaches dst via predicate, in ascending src
// order.
func (m *AdjacencyMaintainer) In(ctx context.Context, tx kv.Transaction, predicate string, dst any) ([]any, error) {
	sub := m.desc.Subspace.Sub(kv.Tuple{"rev", predicate}).Sub(kv.Tuple{dst})
	begin, end := sub.Range()
	pairs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{})
	if err != nil {
		return nil, err
	}
	in := make([]any, 0, len(pairs))
	for _, kvPair := range pairs {
		t, err := sub.Unpack(kvPair.Key)
		if err != nil {
			return nil, err
		}
		in = append(in, t[0])
	}
	return in, nil
}
