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

package kv

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"

	"github.com/google/btree"
)

type memEntry struct {
	key   []byte
	value []byte
}

func lessEntry(a, b memEntry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// MemStore is an in-memory Store backed by a google/btree generic BTreeG so
// range scans observe true ascending/descending key order instead of a
// sorted-slice approximation. One global mutex serializes transactions,
// which is sufficient for unit tests (no genuine conflict/retry modeling).
type MemStore struct {
	mu   sync.Mutex
	tree *btree.BTreeG[memEntry]
	rv   int64
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tree: btree.NewG(32, lessEntry)}
}

type memTx struct {
	store *MemStore
}

func (s *MemStore) Update(_ context.Context, _ TxConfig, fn func(Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rv++
	return fn(&memTx{store: s})
}

func (s *MemStore) View(_ context.Context, _ TxConfig, fn func(Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{store: s})
}

func (s *MemStore) Close() error { return nil }

func (t *memTx) Get(_ context.Context, key []byte, _ bool) ([]byte, error) {
	if v, ok := t.store.tree.Get(memEntry{key: key}); ok {
		return append([]byte{}, v.value...), nil
	}
	return nil, nil
}

func (t *memTx) GetRange(_ context.Context, begin, end []byte, _ bool, opts RangeOptions) ([]KeyValue, error) {
	var out []KeyValue
	visit := func(e memEntry) bool {
		out = append(out, KeyValue{Key: append([]byte{}, e.key...), Value: append([]byte{}, e.value...)})
		return opts.Limit <= 0 || len(out) < opts.Limit
	}
	if opts.Reverse {
		t.store.tree.DescendRange(memEntry{key: end}, memEntry{key: begin}, visit)
	} else {
		t.store.tree.AscendRange(memEntry{key: begin}, memEntry{key: end}, visit)
	}
	return out, nil
}

func (t *memTx) Set(key, value []byte) error {
	if err := ValidateKeySize(key); err != nil {
		return err
	}
	if err := ValidateValueSize(value); err != nil {
		return err
	}
	t.store.tree.ReplaceOrInsert(memEntry{key: append([]byte{}, key...), value: append([]byte{}, value...)})
	return nil
}

func (t *memTx) Clear(key []byte) error {
	t.store.tree.Delete(memEntry{key: key})
	return nil
}

func (t *memTx) ClearRange(begin, end []byte) error {
	var toDelete []memEntry
	t.store.tree.AscendRange(memEntry{key: begin}, memEntry{key: end}, func(e memEntry) bool {
		toDelete = append(toDelete, e)
		return true
	})
	for _, e := range toDelete {
		t.store.tree.Delete(e)
	}
	return nil
}

func (t *memTx) Add(key []byte, delta int64) error {
	cur := int64(0)
	if v, ok := t.store.tree.Get(memEntry{key: key}); ok && len(v.value) == 8 {
		cur = int64(binary.LittleEndian.Uint64(v.value))
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(cur+delta))
	t.store.tree.ReplaceOrInsert(memEntry{key: append([]byte{}, key...), value: buf})
	return nil
}

func (t *memTx) GetReadVersion(_ context.Context) (int64, error) { return t.store.rv, nil }
func (t *memTx) SetReadVersion(v int64)                          { t.store.rv = v }
