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

//go:build cgo

// MdbxStore is the production Store adapter: an ordered, transactional,
// MVCC KV engine built on github.com/erigontech/mdbx-go. It requires cgo and
// a built libmdbx; the cgo build tag above leaves it out only of builds with
// cgo disabled. No test uses it; the tests run against MemStore.
package kv

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/erigontech/mdbx-go/mdbx"

	"github.com/erigontech/recordcore/internal/apperr"
)

const mdbxDBIName = "recordcore"

// MdbxStore wraps a single libmdbx environment and DBI as a Store.
type MdbxStore struct {
	env *mdbx.Env
	dbi mdbx.DBI
}

// OpenMdbxStore opens (creating if absent) an MDBX environment at path.
func OpenMdbxStore(path string, maxSizeBytes int64) (*MdbxStore, error) {
	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, apperr.WrapFatal(err)
	}
	if err := env.SetGeometry(-1, -1, int(maxSizeBytes), -1, -1, -1); err != nil {
		return nil, apperr.WrapFatal(err)
	}
	if err := env.Open(path, mdbx.NoSubdir|mdbx.Coalesce|mdbx.LifoReclaim, 0o664); err != nil {
		return nil, apperr.WrapFatal(err)
	}
	s := &MdbxStore{env: env}
	err = env.Update(func(txn *mdbx.Txn) error {
		dbi, e := txn.OpenDBISimple(mdbxDBIName, mdbx.Create)
		if e != nil {
			return e
		}
		s.dbi = dbi
		return nil
	})
	if err != nil {
		return nil, apperr.WrapFatal(err)
	}
	return s, nil
}

func (s *MdbxStore) Close() error {
	s.env.Close()
	return nil
}

type mdbxTx struct {
	txn *mdbx.Txn
	dbi mdbx.DBI
}

func (s *MdbxStore) Update(_ context.Context, _ TxConfig, fn func(Transaction) error) error {
	return classifyMdbxErr(s.env.Update(func(txn *mdbx.Txn) error {
		return fn(&mdbxTx{txn: txn, dbi: s.dbi})
	}))
}

func (s *MdbxStore) View(_ context.Context, _ TxConfig, fn func(Transaction) error) error {
	return classifyMdbxErr(s.env.View(func(txn *mdbx.Txn) error {
		return fn(&mdbxTx{txn: txn, dbi: s.dbi})
	}))
}

func classifyMdbxErr(err error) error {
	if err == nil {
		return nil
	}
	switch err {
	case mdbx.MapResized, mdbx.ErrBusy, mdbx.NotFound:
		return apperr.WrapTransient(err)
	default:
		return apperr.WrapFatal(err)
	}
}

func (t *mdbxTx) Get(_ context.Context, key []byte, _ bool) ([]byte, error) {
	v, err := t.txn.Get(t.dbi, key)
	if mdbx.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyMdbxErr(err)
	}
	return append([]byte{}, v...), nil
}

func (t *mdbxTx) GetRange(_ context.Context, begin, end []byte, _ bool, opts RangeOptions) ([]KeyValue, error) {
	cur, err := t.txn.OpenCursor(t.dbi)
	if err != nil {
		return nil, classifyMdbxErr(err)
	}
	defer cur.Close()

	var out []KeyValue
	push := func(k, v []byte) bool {
		out = append(out, KeyValue{Key: append([]byte{}, k...), Value: append([]byte{}, v...)})
		return opts.Limit <= 0 || len(out) < opts.Limit
	}
	if opts.Reverse {
		k, v, err := cur.Get(end, nil, mdbx.SetRange)
		if mdbx.IsNotFound(err) {
			k, v, err = cur.Get(nil, nil, mdbx.Last)
		} else if err == nil && bytes.Equal(k, end) {
			k, v, err = cur.Get(nil, nil, mdbx.Prev)
		}
		for ; err == nil && bytes.Compare(k, begin) >= 0; k, v, err = cur.Get(nil, nil, mdbx.Prev) {
			if !push(k, v) {
				break
			}
		}
		return out, nil
	}
	for k, v, err := cur.Get(begin, nil, mdbx.SetRange); err == nil && bytes.Compare(k, end) < 0; k, v, err = cur.Get(nil, nil, mdbx.Next) {
		if !push(k, v) {
			break
		}
	}
	return out, nil
}

func (t *mdbxTx) Set(key, value []byte) error {
	if err := ValidateKeySize(key); err != nil {
		return err
	}
	if err := ValidateValueSize(value); err != nil {
		return err
	}
	return classifyMdbxErr(t.txn.Put(t.dbi, key, value, 0))
}

func (t *mdbxTx) Clear(key []byte) error {
	err := t.txn.Del(t.dbi, key, nil)
	if mdbx.IsNotFound(err) {
		return nil
	}
	return classifyMdbxErr(err)
}

func (t *mdbxTx) ClearRange(begin, end []byte) error {
	cur, err := t.txn.OpenCursor(t.dbi)
	if err != nil {
		return classifyMdbxErr(err)
	}
	defer cur.Close()
	var keys [][]byte
	for k, _, err := cur.Get(begin, nil, mdbx.SetRange); err == nil && bytes.Compare(k, end) < 0; k, _, err = cur.Get(nil, nil, mdbx.Next) {
		keys = append(keys, append([]byte{}, k...))
	}
	for _, k := range keys {
		if err := t.txn.Del(t.dbi, k, nil); err != nil && !mdbx.IsNotFound(err) {
			return classifyMdbxErr(err)
		}
	}
	return nil
}

func (t *mdbxTx) Add(key []byte, delta int64) error {
	cur := int64(0)
	if v, err := t.txn.Get(t.dbi, key); err == nil && len(v) == 8 {
		cur = int64(binary.LittleEndian.Uint64(v))
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(cur+delta))
	return classifyMdbxErr(t.txn.Put(t.dbi, key, buf, 0))
}

func (t *mdbxTx) GetReadVersion(_ context.Context) (int64, error) { return int64(t.txn.ID()), nil }
func (t *mdbxTx) SetReadVersion(_ int64)                          {}
