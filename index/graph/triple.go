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

	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/record"
)

// TripleMaintainer emits every edge under three orderings so any query with
// two of {subject, predicate, object} bound resolves via a direct range
// scan rather than a full scan plus filter:
//
//	spo/[s]/[p]/[o] -> ''
//	pos/[p]/[o]/[s] -> ''
//	osp/[o]/[s]/[p] -> ''
type TripleMaintainer struct {
	desc index.Descriptor
}

func NewTriple(desc index.Descriptor) *TripleMaintainer {
	return &TripleMaintainer{desc: desc}
}

func (m *TripleMaintainer) Descriptor() index.Descriptor { return m.desc }

func (m *TripleMaintainer) tripleOf(rec record.Record) (s, p, o any, ok bool, err error) {
	if len(m.desc.FieldNames) != 3 {
		return nil, nil, nil, false, nil
	}
	sv, sok := rec.Field(m.desc.FieldNames[0])
	pv, pok := rec.Field(m.desc.FieldNames[1])
	ov, ook := rec.Field(m.desc.FieldNames[2])
	if !sok || !pok || !ook || sv == nil || pv == nil || ov == nil {
		return nil, nil, nil, false, nil
	}
	return sv, pv, ov, true, nil
}

func (m *TripleMaintainer) spoKey(s, p, o any) []byte {
	return m.desc.Subspace.Sub(kv.Tuple{"spo"}).Pack(kv.Tuple{s, p, o})
}

func (m *TripleMaintainer) posKey(s, p, o any) []byte {
	return m.desc.Subspace.Sub(kv.Tuple{"pos"}).Pack(kv.Tuple{p, o, s})
}

func (m *TripleMaintainer) ospKey(s, p, o any) []byte {
	return m.desc.Subspace.Sub(kv.Tuple{"osp"}).Pack(kv.Tuple{o, s, p})
}

func (m *TripleMaintainer) keysFor(s, p, o any) [][]byte {
	return [][]byte{m.spoKey(s, p, o), m.posKey(s, p, o), m.ospKey(s, p, o)}
}

func (m *TripleMaintainer) Update(ctx context.Context, tx kv.Transaction, old, new record.Record) error {
	if old != nil {
		if s, p, o, ok, err := m.tripleOf(old); err != nil {
			return err
		} else if ok {
			for _, k := range m.keysFor(s, p, o) {
				if err := tx.Clear(k); err != nil {
					return err
				}
			}
		}
	}
	if new != nil {
		s, p, o, ok, err := m.tripleOf(new)
		if err != nil {
			return err
		}
		if ok {
			for _, k := range m.keysFor(s, p, o) {
				if err := kv.ValidateKeySize(k); err != nil {
					return err
				}
				if err := tx.Set(k, []byte{}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (m *TripleMaintainer) ScanItem(ctx context.Context, tx kv.Transaction, rec record.Record, tracker index.ViolationRecorder) error {
	return m.Update(ctx, tx, nil, rec)
}

func (m *TripleMaintainer) ComputeKeys(rec record.Record) ([][]byte, error) {
	s, p, o, ok, err := m.tripleOf(rec)
	if err != nil || !ok {
		return nil, err
	}
	return m.keysFor(s, p, o), nil
}

// Triple is one (subject, predicate, object) match.
type Triple struct {
	S, P, O any
}

// scanOrdering range-scans one of the three orderings under a fixed prefix
// of bound components, decoding each match back into (s, p, o) order.
func (m *TripleMaintainer) scanOrdering(ctx context.Context, tx kv.Transaction, ordering string, bound kv.Tuple, decode func(kv.Tuple) Triple) ([]Triple, error) {
	sub := m.desc.Subspace.Sub(kv.Tuple{ordering}).Sub(bound)
	begin, end := sub.Range()
	pairs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]Triple, 0, len(pairs))
	for _, kvPair := range pairs {
		t, err := sub.Unpack(kvPair.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, decode(t))
	}
	return out, nil
}

// BySubject returns every (p, o) pair for a bound subject.
func (m *TripleMaintainer) BySubject(ctx context.Context, tx kv.Transaction, s any) ([]Triple, error) {
	return m.scanOrdering(ctx, tx, "spo", kv.Tuple{s}, func(rest kv.Tuple) Triple {
		return Triple{S: s, P: rest[0], O: rest[1]}
	})
}

// ByPredicate returns every (o, s) pair for a bound predicate.
func (m *TripleMaintainer) ByPredicate(ctx context.Context, tx kv.Transaction, p any) ([]Triple, error) {
	return m.scanOrdering(ctx, tx, "pos", kv.Tuple{p}, func(rest kv.Tuple) Triple {
		return Triple{S: rest[1], P: p, O: rest[0]}
	})
}

// ByObject returns every (s, p) pair for a bound object.
func (m *TripleMaintainer) ByObject(ctx context.Context, tx kv.Transaction, o any) ([]Triple, error) {
	return m.scanOrdering(ctx, tx, "osp", kv.Tuple{o}, func(rest kv.Tuple) Triple {
		return Triple{S: rest[0], P: rest[1], O: o}
	})
}

// BySubjectPredicate binds two components (subject, predicate) and returns
// every matching object.
func (m *TripleMaintainer) BySubjectPredicate(ctx context.Context, tx kv.Transaction, s, p any) ([]Triple, error) {
	return m.scanOrdering(ctx, tx, "spo", kv.Tuple{s, p}, func(rest kv.Tuple) Triple {
		return Triple{S: s, P: p, O: rest[0]}
	})
}

// ByPredicateObject binds (predicate, object) and returns every matching
// subject.
func (m *TripleMaintainer) ByPredicateObject(ctx context.Context, tx kv.Transaction, p, o any) ([]Triple, error) {
	return m.scanOrdering(ctx, tx, "pos", kv.Tuple{p, o}, func(rest kv.Tuple) Triple {
		return Triple{S: rest[0], P: p, O: o}
	})
}

// ByObjectSubject binds (object, subject) and returns every matching
// predicate.
func (m *TripleMaintainer) ByObjectSubject(ctx context.Context, tx kv.Transaction, o, s any) ([]Triple, error) {
	return m.scanOrdering(ctx, tx, "osp", kv.Tuple{o, s}, func(rest kv.Tuple) Triple {
		return Triple{S: s, P: rest[0], O: o}
	})
}
