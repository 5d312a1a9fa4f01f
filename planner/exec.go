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

package planner

import (
	"context"

	"github.com/erigontech/recordcore/cursor"
	"github.com/erigontech/recordcore/kv"
)

// IndexScanExecutor bridges a single IndexSeek/OrderedIndexScan leaf to a
// cursor.Executor: both node kinds reduce to the same operation, a range
// scan over the index's value-prefix subspace, strictly after the
// previous page's last key. IndexRange computes that range from the
// maintainer's own descriptor subspace and the plan's equality values, so
// callers build one per winning plan rather than this package re-deriving
// the index's key layout.
type IndexScanExecutor struct {
	scanType    cursor.ScanType
	fingerprint []byte
	reverse     bool
	begin, end  []byte
}

// NewIndexScanExecutor builds an executor scanning [begin, end) in the
// plan's order. fingerprint should uniquely identify the winning plan
// (e.g. the packed index name plus equality values) so a continuation
// token decoded later is checked against the same plan shape it was
// issued for.
func NewIndexScanExecutor(plan *PhysicalPlan, begin, end, fingerprint []byte) *IndexScanExecutor {
	st := cursor.ScanTypeIndexSeek
	if plan.Kind == PlanOrderedIndexScan {
		st = cursor.ScanTypeRangeScan
	}
	return &IndexScanExecutor{scanType: st, fingerprint: fingerprint, reverse: plan.Reverse, begin: begin, end: end}
}

func (e *IndexScanExecutor) ScanType() cursor.ScanType   { return e.scanType }
func (e *IndexScanExecutor) PlanFingerprint() []byte      { return e.fingerprint }
func (e *IndexScanExecutor) Reverse() bool                { return e.reverse }

// Execute scans up to limit entries from e's range, strictly after
// afterKey in the executor's direction (nil meaning "from the edge of the
// range"). Value on each Item is the raw index entry value (the covering
// bytes, if any); callers needing full records still need to fetch them
// by the primary key suffix of Key.
//
// Resuming narrows the scanned range itself rather than over-fetching and
// filtering: a forward scan moves begin to the lexicographic successor of
// afterKey, a reverse scan moves end to afterKey (already exclusive), so
// every call only ever touches keys not yet returned.
func (e *IndexScanExecutor) Execute(ctx context.Context, tx kv.Transaction, afterKey []byte, limit int) ([]cursor.Item, error) {
	begin, end := e.begin, e.end
	if afterKey != nil {
		if e.reverse {
			end = afterKey
		} else {
			begin = successor(afterKey)
		}
	}
	kvs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{Reverse: e.reverse, Limit: limit})
	if err != nil {
		return nil, err
	}
	items := make([]cursor.Item, 0, len(kvs))
	for _, pair := range kvs {
		items = append(items, cursor.Item{Key: pair.Key, Value: pair.Value})
	}
	return items, nil
}

// successor returns the smallest byte string strictly greater than key,
// the same boundary trick kv.Subspace.Range uses for its exclusive upper
// bound: key with a trailing 0x00 compares greater than key itself and no
// greater than any byte string that is.
func successor(key []byte) []byte {
	out := make([]byte, len(key)+1)
	copy(out, key)
	return out
}

// IndexRange computes the [begin, end) byte range a plan's IndexSeek or
// OrderedIndexScan node should be executed over: the index's subspace
// extended by the plan's bound equality values.
func IndexRange(sub kv.Subspace, equalityValues kv.Tuple) (begin, end []byte) {
	return sub.Sub(equalityValues).Range()
}
