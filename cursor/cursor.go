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

package cursor

import (
	"context"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/erigontech/recordcore/internal/metrics"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/rhash"
)

// NoNextReason names why a cursor has no further items.
type NoNextReason int

const (
	SourceExhausted NoNextReason = iota
	ReturnLimitReached
	TimeLimitReached
	TransactionLimitReached
	ScanLimitReached
)

// Item is one row a plan yields: Key is the raw KV key used for
// key-based resumption, Value is whatever the plan surfaces (a record, a
// projected tuple, a vector Candidate, ...).
type Item struct {
	Key   []byte
	Value any
}

// Executor is the narrow contract a physical plan exposes to a Cursor.
// Execute must return at most limit items in the plan's natural order
// (respecting reverse), strictly after afterKey (nil meaning "from the
// start").
type Executor interface {
	ScanType() ScanType
	PlanFingerprint() []byte
	Reverse() bool
	Execute(ctx context.Context, tx kv.Transaction, afterKey []byte, limit int) ([]Item, error)
}

// Page is the result of one Cursor.Next call.
type Page struct {
	Items     []Item
	Done      bool
	Reason    NoNextReason // meaningful iff Done
	NextToken string       // meaningful iff !Done
}

// Cursor wraps a plan Executor with continuation-token pagination. A
// Cursor's state is guarded by a short-critical-section mutex taken only
// around state reads/writes; I/O against the store runs outside the lock,
// matching the module's cooperative-task concurrency model.
type Cursor struct {
	mu        sync.Mutex
	exec      Executor
	batchSize int
	store     kv.Store
	txConfig  kv.TxConfig

	state     State
	exhausted bool
	started   bool
}

// New builds a Cursor over exec. originalLimit <= 0 means unlimited.
func New(exec Executor, store kv.Store, txConfig kv.TxConfig, batchSize int, originalLimit int64) *Cursor {
	remaining := Unlimited
	if originalLimit > 0 {
		remaining = originalLimit
	}
	return &Cursor{
		exec:      exec,
		batchSize: batchSize,
		store:     store,
		txConfig:  txConfig,
		state: State{
			Version:         CurrentVersion,
			ScanType:        exec.ScanType(),
			Reverse:         exec.Reverse(),
			RemainingLimit:  remaining,
			OriginalLimit:   remaining,
			PlanFingerprint: exec.PlanFingerprint(),
		},
	}
}

// Resume rebuilds a Cursor from a previously issued token.
func Resume(exec Executor, store kv.Store, txConfig kv.TxConfig, batchSize int, token string) (*Cursor, error) {
	state, eor, err := Decode(token, exec.ScanType(), exec.PlanFingerprint())
	if err != nil {
		return nil, err
	}
	c := &Cursor{exec: exec, batchSize: batchSize, store: store, txConfig: txConfig, started: true}
	if eor {
		c.exhausted = true
		return c, nil
	}
	c.state = state
	return c, nil
}

func dedupSetFromOperatorState(raw []byte) *roaring.Bitmap {
	bm := roaring.New()
	if len(raw) > 0 {
		_, _ = bm.FromBuffer(raw)
	}
	return bm
}

func keyDedupID(key []byte) uint32 {
	h := rhash.Sum64(key)
	return uint32(h ^ (h >> 32))
}

// Next executes exactly one page per the five-step protocol: exhausted
// check, effective-limit computation, plan execution with limit+1 to detect
// exhaustion, then either Done or a More page with an encoded continuation
// token.
func (c *Cursor) Next(ctx context.Context) (Page, error) {
	c.mu.Lock()
	if c.exhausted {
		c.mu.Unlock()
		return Page{Done: true, Reason: SourceExhausted}, nil
	}
	state := c.state
	c.started = true
	c.mu.Unlock()

	effectiveLimit := c.batchSize
	if state.RemainingLimit != Unlimited {
		if int64(effectiveLimit) > state.RemainingLimit {
			effectiveLimit = int(state.RemainingLimit)
		}
	}
	if effectiveLimit <= 0 {
		c.mu.Lock()
		c.exhausted = true
		c.mu.Unlock()
		return Page{Done: true, Reason: ReturnLimitReached}, nil
	}

	start := time.Now()
	var raw []Item
	var dedup *roaring.Bitmap
	if c.exec.ScanType() == ScanTypeUnion {
		dedup = dedupSetFromOperatorState(state.OperatorState)
	}

	err := c.store.View(ctx, c.txConfig, func(tx kv.Transaction) error {
		var execErr error
		raw, execErr = c.exec.Execute(ctx, tx, state.LastKey, effectiveLimit+1)
		return execErr
	})
	metrics.CursorPageLatency.WithLabelValues(scanTypeLabel(c.exec.ScanType())).Observe(time.Since(start).Seconds())
	if err != nil {
		return Page{}, err
	}

	// The underlying scan position always advances by up to effectiveLimit
	// raw items, regardless of how many survive dedup filtering: dedup only
	// thins the output, it never changes where the next page resumes.
	if len(raw) <= effectiveLimit {
		c.mu.Lock()
		c.exhausted = true
		c.mu.Unlock()
		return Page{Items: applyDedup(dedup, raw), Done: true, Reason: SourceExhausted}, nil
	}

	consumed := raw[:effectiveLimit]
	out := applyDedup(dedup, consumed)

	newState := state
	newState.LastKey = consumed[len(consumed)-1].Key
	if newState.RemainingLimit != Unlimited {
		newState.RemainingLimit -= int64(len(out))
	}
	if dedup != nil {
		buf, err := dedup.ToBytes()
		if err != nil {
			return Page{}, err
		}
		newState.OperatorState = buf
	}

	c.mu.Lock()
	c.state = newState
	c.mu.Unlock()

	return Page{Items: out, Done: false, NextToken: Encode(newState)}, nil
}

// applyDedup filters items already present in dedup, adding every new item's
// id as it's kept. A nil dedup is a no-op passthrough.
func applyDedup(dedup *roaring.Bitmap, items []Item) []Item {
	if dedup == nil {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		id := keyDedupID(it.Key)
		if dedup.Contains(id) {
			continue
		}
		dedup.Add(id)
		out = append(out, it)
	}
	return out
}

func scanTypeLabel(st ScanType) string {
	switch st {
	case ScanTypeIndexSeek:
		return "index_seek"
	case ScanTypeRangeScan:
		return "range_scan"
	case ScanTypeUnion:
		return "union"
	case ScanTypeIntersection:
		return "intersection"
	case ScanTypeRankTopK:
		return "rank_top_k"
	case ScanTypeVectorSearch:
		return "vector_search"
	default:
		return "unknown"
	}
}
