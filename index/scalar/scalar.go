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

// Package scalar implements the B-tree-like scalar IndexMaintainer:
// key = index_subspace || field1 || ... || fieldN || primary_key,
// value = empty or a covering-value payload.
package scalar

import (
	"bytes"
	"context"
	"fmt"

	"github.com/erigontech/recordcore/covering"
	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/record"
	"github.com/erigontech/recordcore/rhash"
)

// Maintainer is the scalar index implementation.
type Maintainer struct {
	desc index.Descriptor
}

// New builds a scalar maintainer for desc. desc.Kind must be
// index.KindScalar.
func New(desc index.Descriptor) *Maintainer { return &Maintainer{desc: desc} }

func (m *Maintainer) Descriptor() index.Descriptor { return m.desc }

// entry is one (field-value tuple, covering value) pair to be written,
// after array expansion.
type entry struct {
	fields kv.Tuple
	cover  []byte
}

// buildEntries resolves rec's indexed fields into zero or more entries. For
// a single-column index over an array field, one entry is produced per
// distinct array element (deduplicated within the record); otherwise
// exactly one entry is produced, unless the sparse rule suppresses it.
func (m *Maintainer) buildEntries(rec record.Record) ([]entry, error) {
	if len(m.desc.FieldNames) == 1 {
		if v, ok := rec.Field(m.desc.FieldNames[0]); ok {
			if arr, isArray := v.(record.Array); isArray {
				return m.buildArrayEntries(rec, arr)
			}
		}
	}

	fields := make(kv.Tuple, len(m.desc.FieldNames))
	anyNull := false
	for i, name := range m.desc.FieldNames {
		v, _ := rec.Field(name)
		if v == nil {
			anyNull = true
		}
		fields[i] = v
	}
	if m.desc.Sparse && anyNull {
		return nil, nil
	}
	cover, err := m.coveringValue(rec)
	if err != nil {
		return nil, err
	}
	return []entry{{fields: fields, cover: cover}}, nil
}

func (m *Maintainer) buildArrayEntries(rec record.Record, arr record.Array) ([]entry, error) {
	if m.desc.Sparse && len(arr) == 0 {
		return nil, nil
	}
	cover, err := m.coveringValue(rec)
	if err != nil {
		return nil, err
	}
	seen := map[uint64]bool{}
	var out []entry
	for _, el := range arr {
		if el == nil {
			continue
		}
		h := rhash.HashValue(el)
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, entry{fields: kv.Tuple{el}, cover: cover})
	}
	return out, nil
}

func (m *Maintainer) coveringValue(rec record.Record) ([]byte, error) {
	if len(m.desc.StoredFieldNames) == 0 {
		return []byte{}, nil
	}
	return covering.Encode(m.desc.StoredFieldNames, func(name string) (any, bool) { return rec.Field(name) })
}

func (m *Maintainer) entryKey(e entry, pk kv.Tuple) []byte {
	full := append(append(kv.Tuple{}, e.fields...), pk...)
	key := m.desc.Subspace.Pack(full)
	return key
}

// Update reconciles old -> new under tx.
func (m *Maintainer) Update(ctx context.Context, tx kv.Transaction, old, new record.Record) error {
	var oldEntries, newEntries []entry
	var pk kv.Tuple
	var err error
	if old != nil {
		pk = old.PrimaryKey()
		if oldEntries, err = m.buildEntries(old); err != nil {
			return err
		}
	}
	if new != nil {
		pk = new.PrimaryKey()
		if newEntries, err = m.buildEntries(new); err != nil {
			return err
		}
	}

	toDelete := diffEntries(oldEntries, newEntries)
	toInsert := diffEntries(newEntries, oldEntries)

	for _, e := range toDelete {
		if err := tx.Clear(m.entryKey(e, pk)); err != nil {
			return err
		}
	}
	for _, e := range toInsert {
		if m.desc.Unique {
			if err := m.checkUnique(ctx, tx, e, pk); err != nil {
				return err
			}
		}
		key := m.entryKey(e, pk)
		if err := kv.ValidateKeySize(key); err != nil {
			return err
		}
		if err := tx.Set(key, e.cover); err != nil {
			return err
		}
	}
	return nil
}

// ScanItem is equivalent to Update(nil, rec) but records uniqueness
// violations instead of failing.
func (m *Maintainer) ScanItem(ctx context.Context, tx kv.Transaction, rec record.Record, tracker index.ViolationRecorder) error {
	entries, err := m.buildEntries(rec)
	if err != nil {
		return err
	}
	pk := rec.PrimaryKey()
	for _, e := range entries {
		if m.desc.Unique {
			if existingPK, conflict, err := m.findConflict(ctx, tx, e, pk); err != nil {
				return err
			} else if conflict {
				valueKey := m.desc.Subspace.Pack(e.fields)
				if err := tracker.Record(ctx, tx, m.desc.Name, valueKey, existingPK, pk); err != nil {
					return err
				}
				continue
			}
		}
		key := m.entryKey(e, pk)
		if err := kv.ValidateKeySize(key); err != nil {
			return err
		}
		if err := tx.Set(key, e.cover); err != nil {
			return err
		}
	}
	return nil
}

// ComputeKeys is pure, used by the scrubber.
func (m *Maintainer) ComputeKeys(rec record.Record) ([][]byte, error) {
	entries, err := m.buildEntries(rec)
	if err != nil {
		return nil, err
	}
	pk := rec.PrimaryKey()
	keys := make([][]byte, len(entries))
	for i, e := range entries {
		keys[i] = m.entryKey(e, pk)
	}
	return keys, nil
}

func (m *Maintainer) checkUnique(ctx context.Context, tx kv.Transaction, e entry, newPK kv.Tuple) error {
	existingPK, conflict, err := m.findConflict(ctx, tx, e, newPK)
	if err != nil {
		return err
	}
	if conflict {
		return &apperr.UniquenessViolation{
			Index:      m.desc.Name,
			Value:      fmt.Sprintf("%v", []any(e.fields)),
			ExistingPK: fmt.Sprintf("%v", []any(existingPK)),
			NewPK:      fmt.Sprintf("%v", []any(newPK)),
		}
	}
	return nil
}

// findConflict scans the value-prefix range for any entry whose primary-key
// tail differs from newPK.
func (m *Maintainer) findConflict(ctx context.Context, tx kv.Transaction, e entry, newPK kv.Tuple) (kv.Tuple, bool, error) {
	prefix := m.desc.Subspace.Sub(e.fields)
	begin, end := prefix.Range()
	kvs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{Limit: 2})
	if err != nil {
		return nil, false, err
	}
	for _, kvPair := range kvs {
		tup, err := prefix.Unpack(kvPair.Key)
		if err != nil {
			return nil, false, err
		}
		existingPK := kv.Tuple(tup)
		if !tupleEqual(existingPK, newPK) {
			return existingPK, true, nil
		}
	}
	return nil, false, nil
}

func diffEntries(a, b []entry) []entry {
	bKeys := map[string]bool{}
	for _, e := range b {
		bKeys[string(kv.Pack(e.fields))] = true
	}
	var out []entry
	for _, e := range a {
		if !bKeys[string(kv.Pack(e.fields))] {
			out = append(out, e)
		}
	}
	return out
}

func tupleEqual(a, b kv.Tuple) bool {
	return bytes.Equal(kv.Pack(a), kv.Pack(b))
}

