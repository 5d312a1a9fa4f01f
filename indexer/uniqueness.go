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

// Package indexer implements the online (resumable, non-blocking) index
// builder and the uniqueness-violation tracker it writes to in place of
// failing a build outright.
package indexer

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/erigontech/recordcore/internal/applog"
	"github.com/erigontech/recordcore/internal/metrics"
	"github.com/erigontech/recordcore/kv"
)

var uniqLog = applog.Named("uniqueness")

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Violation is one uniqueness conflict recorded against an index: two or
// more primary keys mapping to the same value under a unique index.
type Violation struct {
	Index       string    `json:"index_name"`
	Type        string    `json:"type"`
	ValueKey    []byte    `json:"value_key"`
	PrimaryKeys [][]byte  `json:"primary_keys"`
	DetectedAt  time.Time `json:"detected_at"`
}

// Tracker persists uniqueness violations under
// metadata/_violations/[index_name]/[value_key] so an online build can keep
// scanning past a conflict instead of aborting, and an operator can later
// inspect and resolve them.
type Tracker struct {
	sub kv.Subspace
}

// NewTracker builds a Tracker rooted at sub (typically metadata's
// "_violations" child subspace).
func NewTracker(sub kv.Subspace) *Tracker {
	return &Tracker{sub: sub}
}

func (t *Tracker) indexSub(indexName string) kv.Subspace {
	return t.sub.Sub(kv.Tuple{indexName})
}

func (t *Tracker) key(indexName string, valueKey []byte) []byte {
	return t.indexSub(indexName).Pack(kv.Tuple{valueKey})
}

func containsBytes(bs [][]byte, b []byte) bool {
	for _, x := range bs {
		if string(x) == string(b) {
			return true
		}
	}
	return false
}

// Record implements index.ViolationRecorder: it appends newPK to the
// violation row for (indexName, value), creating the row (seeded with
// existingPK) if this is the first conflict observed for that value.
func (t *Tracker) Record(ctx context.Context, tx kv.Transaction, indexName string, value []byte, existingPK, newPK kv.Tuple) error {
	key := t.key(indexName, value)
	raw, err := tx.Get(ctx, key, false)
	if err != nil {
		return err
	}

	newPKPacked := kv.Pack(newPK)
	if raw == nil {
		v := Violation{
			Index:       indexName,
			Type:        "uniqueness",
			ValueKey:    value,
			PrimaryKeys: [][]byte{kv.Pack(existingPK), newPKPacked},
			DetectedAt:  time.Now().UTC(),
		}
		buf, err := jsonAPI.Marshal(v)
		if err != nil {
			return err
		}
		metrics.IndexerViolationsRecorded.WithLabelValues(indexName).Inc()
		uniqLog.Infow("uniqueness violation recorded", "index", indexName)
		return tx.Set(key, buf)
	}

	var v Violation
	if err := jsonAPI.Unmarshal(raw, &v); err != nil {
		return err
	}
	if !containsBytes(v.PrimaryKeys, newPKPacked) {
		v.PrimaryKeys = append(v.PrimaryKeys, newPKPacked)
	}
	buf, err := jsonAPI.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Set(key, buf)
}

// Scan returns up to limit violations recorded for indexName, in key order.
// limit <= 0 means unbounded.
func (t *Tracker) Scan(ctx context.Context, tx kv.Transaction, indexName string, limit int) ([]Violation, error) {
	sub := t.indexSub(indexName)
	begin, end := sub.Range()
	kvs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]Violation, 0, len(kvs))
	for _, pair := range kvs {
		var v Violation
		if err := jsonAPI.Unmarshal(pair.Value, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// VerifyResolution re-checks whether a recorded violation is still live by
// counting entries the value currently owns inside valueSub (the maintainer's
// value-prefix subspace, i.e. desc.Subspace.Sub(fields)). A count <= 1 means
// the conflict resolved (one writer won, or all lost writers were deleted);
// the violation row is left untouched either way, the caller decides whether
// to Clear it.
func (t *Tracker) VerifyResolution(ctx context.Context, tx kv.Transaction, valueSub kv.Subspace) (resolved bool, livePKs []kv.Tuple, err error) {
	begin, end := valueSub.Range()
	kvs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{})
	if err != nil {
		return false, nil, err
	}
	pks := make([]kv.Tuple, 0, len(kvs))
	for _, pair := range kvs {
		tup, err := valueSub.Unpack(pair.Key)
		if err != nil {
			return false, nil, err
		}
		pks = append(pks, kv.Tuple(tup))
	}
	return len(pks) <= 1, pks, nil
}

// Clear removes the violation row for (indexName, value), if any.
func (t *Tracker) Clear(ctx context.Context, tx kv.Transaction, indexName string, value []byte) error {
	return tx.Clear(t.key(indexName, value))
}

// ClearAll removes every violation row recorded for indexName.
func (t *Tracker) ClearAll(ctx context.Context, tx kv.Transaction, indexName string) error {
	begin, end := t.indexSub(indexName).Range()
	return tx.ClearRange(begin, end)
}
