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

import "context"

// KeyValue is a single ordered KV pair returned from a range scan.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// RangeOptions controls a GetRange call. Reverse scans descend; Limit <= 0
// means unbounded (bounded instead by the caller's transaction/time budget).
type RangeOptions struct {
	Reverse bool
	Limit   int
}

// CachePolicy selects how a transaction's read version is obtained.
type CachePolicy int

const (
	CachePolicyServer CachePolicy = iota
	CachePolicyCached
	CachePolicyStale // N versions stale; see ReadVersionCache.
)

// TxConfig is the per-transaction configuration.
type TxConfig struct {
	TimeoutMS   int64
	RetryLimit  int
	Priority    int
	CachePolicy CachePolicy
	StaleN      int64
}

// DefaultTxConfig mirrors FDB's conservative defaults.
func DefaultTxConfig() TxConfig {
	return TxConfig{TimeoutMS: 5000, RetryLimit: 100, CachePolicy: CachePolicyServer}
}

// Transaction is the mutable, snapshot-consistent view of the store for the
// lifetime of one commit. All reads inside a transaction observe all of that
// transaction's own prior writes (read-your-writes).
type Transaction interface {
	// Get returns nil, nil if key is absent.
	Get(ctx context.Context, key []byte, snapshot bool) ([]byte, error)
	// GetRange streams ordered key-value pairs in [begin, end).
	GetRange(ctx context.Context, begin, end []byte, snapshot bool, opts RangeOptions) ([]KeyValue, error)
	Set(key, value []byte) error
	Clear(key []byte) error
	ClearRange(begin, end []byte) error
	// Add performs an atomic little-endian i64 add on the counter stored at
	// key.
	Add(key []byte, delta int64) error
	GetReadVersion(ctx context.Context) (int64, error)
	SetReadVersion(v int64)
}

// Store opens transactions against a backing ordered KV engine.
type Store interface {
	// Update runs fn inside a read-write transaction and commits it. The
	// caller is responsible for retrying on a transient error; use
	// WithRetry for that.
	Update(ctx context.Context, cfg TxConfig, fn func(Transaction) error) error
	// View runs fn inside a read-only (snapshot) transaction.
	View(ctx context.Context, cfg TxConfig, fn func(Transaction) error) error
	Close() error
}
