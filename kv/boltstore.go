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

	bolt "go.etcd.io/bbolt"

	"github.com/erigontech/recordcore/internal/apperr"
)

// BoltStore is a durable, single-process, no-cgo Store backed by
// go.etcd.io/bbolt. All keys live in one flat bucket so Subspace prefixing
// does the logical partitioning, matching how the rest of the module treats
// the keyspace as a single ordered namespace.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBoltStore opens (creating if absent) a bbolt-backed store at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, WrapBoltErr(err)
	}
	bucket := []byte("recordcore")
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucket)
		return e
	})
	if err != nil {
		return nil, WrapBoltErr(err)
	}
	return &BoltStore{db: db, bucket: bucket}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

type boltTx struct {
	tx     *bolt.Tx
	bucket []byte
}

func (s *BoltStore) Update(_ context.Context, _ TxConfig, fn func(Transaction) error) error {
	return WrapBoltErr(s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx, bucket: s.bucket})
	}))
}

func (s *BoltStore) View(_ context.Context, _ TxConfig, fn func(Transaction) error) error {
	return WrapBoltErr(s.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx, bucket: s.bucket})
	}))
}

func (t *boltTx) b() *bolt.Bucket { return t.tx.Bucket(t.bucket) }

func (t *boltTx) Get(_ context.Context, key []byte, _ bool) ([]byte, error) {
	v := t.b().Get(key)
	if v == nil {
		return nil, nil
	}
	return append([]byte{}, v...), nil
}

func (t *boltTx) GetRange(_ context.Context, begin, end []byte, _ bool, opts RangeOptions) ([]KeyValue, error) {
	c := t.b().Cursor()
	var out []KeyValue
	push := func(k, v []byte) bool {
		out = append(out, KeyValue{Key: append([]byte{}, k...), Value: append([]byte{}, v...)})
		return opts.Limit <= 0 || len(out) < opts.Limit
	}
	if opts.Reverse {
		k, v := c.Seek(end)
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		for ; k != nil && bytes.Compare(k, begin) >= 0; k, v = c.Prev() {
			if !push(k, v) {
				break
			}
		}
		return out, nil
	}
	for k, v := c.Seek(begin); k != nil && bytes.Compare(k, end) < 0; k, v = c.Next() {
		if !push(k, v) {
			break
		}
	}
	return out, nil
}

func (t *boltTx) Set(key, value []byte) error {
	if err := ValidateKeySize(key); err != nil {
		return err
	}
	if err := ValidateValueSize(value); err != nil {
		return err
	}
	return WrapBoltErr(t.b().Put(key, value))
}

func (t *boltTx) Clear(key []byte) error { return WrapBoltErr(t.b().Delete(key)) }

func (t *boltTx) ClearRange(begin, end []byte) error {
	c := t.b().Cursor()
	var toDelete [][]byte
	for k, _ := c.Seek(begin); k != nil && bytes.Compare(k, end) < 0; k, _ = c.Next() {
		toDelete = append(toDelete, append([]byte{}, k...))
	}
	for _, k := range toDelete {
		if err := t.b().Delete(k); err != nil {
			return WrapBoltErr(err)
		}
	}
	return nil
}

func (t *boltTx) Add(key []byte, delta int64) error {
	cur := int64(0)
	if v := t.b().Get(key); len(v) == 8 {
		cur = int64(binary.LittleEndian.Uint64(v))
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(cur+delta))
	return WrapBoltErr(t.b().Put(key, buf))
}

func (t *boltTx) GetReadVersion(_ context.Context) (int64, error) { return int64(t.tx.ID()), nil }
func (t *boltTx) SetReadVersion(_ int64)                          {}

// WrapBoltErr classifies a bbolt error into the KV transient/fatal taxonomy.
// bbolt itself single-writers its way out of conflicts, so nearly everything
// it returns is fatal (disk/IO/corruption); ErrTimeout from a contended
// flock is the one retryable case.
func WrapBoltErr(err error) error {
	if err == nil {
		return nil
	}
	if err == bolt.ErrTimeout {
		return apperr.WrapTransient(err)
	}
	return apperr.WrapFatal(err)
}
