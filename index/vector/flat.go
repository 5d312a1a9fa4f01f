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

package vector

import (
	"context"

	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/record"
)

// FlatMaintainer stores every vector under key = subspace || primary_key,
// value = tuple(f0, ..., f{D-1}). k-NN is a full range scan scored into a
// bounded max-heap of size k.
type FlatMaintainer struct {
	desc index.Descriptor
}

func NewFlat(desc index.Descriptor) *FlatMaintainer { return &FlatMaintainer{desc: desc} }

func (m *FlatMaintainer) Descriptor() index.Descriptor { return m.desc }

func (m *FlatMaintainer) vectorOf(rec record.Record) ([]float64, kv.Tuple, bool, error) {
	if len(m.desc.FieldNames) != 1 {
		return nil, nil, false, nil
	}
	v, ok := rec.Field(m.desc.FieldNames[0])
	if !ok || v == nil {
		return nil, nil, false, nil
	}
	vec, ok := v.(record.Array)
	if !ok {
		return nil, nil, false, &apperr.InvalidStructure{Reason: "vector field is not an array"}
	}
	floats := make([]float64, len(vec))
	for i, el := range vec {
		f, ok := toFloat64(el)
		if !ok {
			return nil, nil, false, &apperr.InvalidStructure{Reason: "vector element is not numeric"}
		}
		floats[i] = f
	}
	if m.desc.Capability.Dimensions != 0 && len(floats) != m.desc.Capability.Dimensions {
		return nil, nil, false, &apperr.DimensionMismatch{Expected: m.desc.Capability.Dimensions, Got: len(floats)}
	}
	return floats, rec.PrimaryKey(), true, nil
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func (m *FlatMaintainer) key(pk kv.Tuple) []byte {
	return m.desc.Subspace.Pack(pk)
}

func (m *FlatMaintainer) Update(ctx context.Context, tx kv.Transaction, old, new record.Record) error {
	if old != nil {
		if _, pk, ok, err := m.vectorOf(old); err != nil {
			return err
		} else if ok {
			if err := tx.Clear(m.key(pk)); err != nil {
				return err
			}
		}
	}
	if new != nil {
		vec, pk, ok, err := m.vectorOf(new)
		if err != nil {
			return err
		}
		if ok {
			if err := tx.Set(m.key(pk), kv.Pack(packVector(vec))); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *FlatMaintainer) ScanItem(ctx context.Context, tx kv.Transaction, rec record.Record, tracker index.ViolationRecorder) error {
	return m.Update(ctx, tx, nil, rec)
}

func (m *FlatMaintainer) ComputeKeys(rec record.Record) ([][]byte, error) {
	_, pk, ok, err := m.vectorOf(rec)
	if err != nil || !ok {
		return nil, err
	}
	return [][]byte{m.key(pk)}, nil
}

// Search returns the k nearest vectors to query under the index's metric.
func (m *FlatMaintainer) Search(ctx context.Context, tx kv.Transaction, query []float64, k int) ([]Candidate, error) {
	if m.desc.Capability.Dimensions != 0 && len(query) != m.desc.Capability.Dimensions {
		return nil, &apperr.DimensionMismatch{Expected: m.desc.Capability.Dimensions, Got: len(query)}
	}
	begin, end := m.desc.Subspace.Range()
	pairs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{})
	if err != nil {
		return nil, err
	}
	h := newTopKHeap(k)
	for _, kvPair := range pairs {
		pk, err := m.desc.Subspace.Unpack(kvPair.Key)
		if err != nil {
			return nil, err
		}
		valTuple, err := kv.Unpack(kvPair.Value)
		if err != nil {
			return nil, err
		}
		vec := unpackVector(valTuple)
		dist, err := Distance(Metric(m.desc.Capability.Metric), query, vec)
		if err != nil {
			return nil, err
		}
		h.Offer(Candidate{PK: kv.Tuple(pk), Distance: dist})
	}
	return h.Sorted(), nil
}
