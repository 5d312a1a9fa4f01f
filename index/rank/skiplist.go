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

// Package rank implements an order-statistics index over a multiset of
// (score, primary_key) pairs, persisted as a skip list with span counters so
// get_rank and top_k never require a full scan. Ordering is descending by
// score, ascending by primary key on ties.
package rank

import (
	"bytes"
	"context"
	"math/rand"

	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/record"
)

const (
	maxLevel = 32
	levelP   = 0.25
)

// Maintainer is the skip-list rank index implementation. desc.FieldNames
// must name exactly one field: the score.
type Maintainer struct {
	desc index.Descriptor
}

func New(desc index.Descriptor) *Maintainer { return &Maintainer{desc: desc} }

func (m *Maintainer) Descriptor() index.Descriptor { return m.desc }

// Entry is one (score, primary_key, rank) result row.
type Entry struct {
	Score float64
	PK    kv.Tuple
	Rank  int64
}

func sampleHeight() int {
	h := 1
	for rand.Float64() < levelP && h < maxLevel {
		h++
	}
	return h
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
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

// ref identifies a position in the skip list: either the head sentinel or a
// real node keyed by (sortKey, pk).
type ref struct {
	isHead  bool
	sortKey float64
	pk      kv.Tuple
}

func headRef() ref { return ref{isHead: true} }

// forwardPtr is the value stored at one (level, ref) position: the distance
// (in level-0 hops) to the next node at this level, and that node's
// identity, or hasNext=false at the tail.
type forwardPtr struct {
	span      int64
	hasNext   bool
	nextScore float64
	nextPK    kv.Tuple
}

func encodeForward(fp forwardPtr) []byte {
	if !fp.hasNext {
		return kv.Pack(kv.Tuple{fp.span, false, nil, nil})
	}
	return kv.Pack(kv.Tuple{fp.span, true, fp.nextScore, fp.nextPK})
}

func decodeForward(data []byte) (forwardPtr, error) {
	if len(data) == 0 {
		return forwardPtr{}, nil
	}
	t, err := kv.Unpack(data)
	if err != nil {
		return forwardPtr{}, err
	}
	if len(t) != 4 {
		return forwardPtr{}, apperr.NewCodecError(apperr.CorruptedTuple, "rank forward pointer has %d elements, want 4", len(t))
	}
	span, _ := t[0].(int64)
	hasNext, _ := t[1].(bool)
	fp := forwardPtr{span: span, hasNext: hasNext}
	if hasNext {
		fp.nextScore, _ = t[2].(float64)
		if pk, ok := t[3].(kv.Tuple); ok {
			fp.nextPK = pk
		}
	}
	return fp, nil
}

func (m *Maintainer) countKey() []byte  { return m.desc.Subspace.Pack(kv.Tuple{"c"}) }
func (m *Maintainer) heightKey() []byte { return m.desc.Subspace.Pack(kv.Tuple{"ht"}) }

func (m *Maintainer) fwdKey(level int, r ref) []byte {
	if r.isHead {
		return m.desc.Subspace.Pack(kv.Tuple{"h", int64(level)})
	}
	full := append(kv.Tuple{"n", int64(level), -r.sortKey}, r.pk...)
	return m.desc.Subspace.Pack(full)
}

func (m *Maintainer) readForward(ctx context.Context, tx kv.Transaction, level int, r ref) (forwardPtr, error) {
	data, err := tx.Get(ctx, m.fwdKey(level, r), false)
	if err != nil {
		return forwardPtr{}, err
	}
	return decodeForward(data)
}

func (m *Maintainer) writeForward(tx kv.Transaction, level int, r ref, fp forwardPtr) error {
	return tx.Set(m.fwdKey(level, r), encodeForward(fp))
}

func (m *Maintainer) currentHeight(ctx context.Context, tx kv.Transaction) (int, error) {
	data, err := tx.Get(ctx, m.heightKey(), false)
	if err != nil {
		return 0, err
	}
	if data == nil {
		return 0, nil
	}
	t, err := kv.Unpack(data)
	if err != nil || len(t) != 1 {
		return 0, apperr.NewCodecError(apperr.CorruptedTuple, "rank height record malformed")
	}
	h, _ := t[0].(int64)
	return int(h), nil
}

func (m *Maintainer) setHeight(tx kv.Transaction, h int) error {
	return tx.Set(m.heightKey(), kv.Pack(kv.Tuple{int64(h)}))
}

// lessRef reports whether (aScore, aPK) sorts before (bScore, bPK) in
// descending-score/ascending-pk order, i.e. whether a belongs strictly to
// the left of b in the skip list.
func lessRef(aScore float64, aPK kv.Tuple, bScore float64, bPK kv.Tuple) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return bytes.Compare(kv.Pack(aPK), kv.Pack(bPK)) < 0
}

// search walks top-down, returning, for each level, the predecessor ref
// (the rightmost node whose (score,pk) sorts strictly before target) and the
// level-0 rank distance from head to that predecessor.
func (m *Maintainer) search(ctx context.Context, tx kv.Transaction, height int, targetScore float64, targetPK kv.Tuple) ([]ref, []int64, error) {
	update := make([]ref, maxLevel)
	rankAt := make([]int64, maxLevel)
	cur := headRef()
	var traveled int64
	for l := height - 1; l >= 0; l-- {
		for {
			fp, err := m.readForward(ctx, tx, l, cur)
			if err != nil {
				return nil, nil, err
			}
			if !fp.hasNext || !lessRef(fp.nextScore, fp.nextPK, targetScore, targetPK) {
				break
			}
			traveled += fp.span
			cur = ref{sortKey: fp.nextScore, pk: fp.nextPK}
		}
		update[l] = cur
		rankAt[l] = traveled
	}
	return update, rankAt, nil
}

func (m *Maintainer) insert(ctx context.Context, tx kv.Transaction, score float64, pk kv.Tuple) error {
	height, err := m.currentHeight(ctx, tx)
	if err != nil {
		return err
	}
	update, rankAt, err := m.search(ctx, tx, height, score, pk)
	if err != nil {
		return err
	}

	newHeight := sampleHeight()
	if newHeight > height {
		for l := height; l < newHeight; l++ {
			update[l] = headRef()
			rankAt[l] = 0
		}
		if err := m.setHeight(tx, newHeight); err != nil {
			return err
		}
		height = newHeight
	}

	baseRank := rankAt[0]
	for l := 0; l < newHeight; l++ {
		predFp, err := m.readForward(ctx, tx, l, update[l])
		if err != nil {
			return err
		}
		steps := baseRank - rankAt[l]
		newFp := forwardPtr{span: predFp.span - steps, hasNext: predFp.hasNext, nextScore: predFp.nextScore, nextPK: predFp.nextPK}
		if err := m.writeForward(tx, l, ref{sortKey: score, pk: pk}, newFp); err != nil {
			return err
		}
		predFp = forwardPtr{span: steps + 1, hasNext: true, nextScore: score, nextPK: pk}
		if err := m.writeForward(tx, l, update[l], predFp); err != nil {
			return err
		}
	}
	for l := newHeight; l < height; l++ {
		predFp, err := m.readForward(ctx, tx, l, update[l])
		if err != nil {
			return err
		}
		predFp.span++
		if err := m.writeForward(tx, l, update[l], predFp); err != nil {
			return err
		}
	}
	return tx.Add(m.countKey(), 1)
}

func (m *Maintainer) delete(ctx context.Context, tx kv.Transaction, score float64, pk kv.Tuple) error {
	height, err := m.currentHeight(ctx, tx)
	if err != nil {
		return err
	}
	if height == 0 {
		return nil
	}
	update, _, err := m.search(ctx, tx, height, score, pk)
	if err != nil {
		return err
	}
	for l := 0; l < height; l++ {
		predFp, err := m.readForward(ctx, tx, l, update[l])
		if err != nil {
			return err
		}
		present := predFp.hasNext && predFp.nextScore == score && bytes.Equal(kv.Pack(predFp.nextPK), kv.Pack(pk))
		if !present {
			// The deleted node was never promoted to this level, but every
			// span spanning over it still shrinks by one level-0 hop.
			predFp.span--
			if err := m.writeForward(tx, l, update[l], predFp); err != nil {
				return err
			}
			continue
		}
		nodeFp, err := m.readForward(ctx, tx, l, ref{sortKey: score, pk: pk})
		if err != nil {
			return err
		}
		merged := forwardPtr{span: predFp.span + nodeFp.span - 1, hasNext: nodeFp.hasNext, nextScore: nodeFp.nextScore, nextPK: nodeFp.nextPK}
		if err := m.writeForward(tx, l, update[l], merged); err != nil {
			return err
		}
		if err := tx.Clear(m.fwdKey(l, ref{sortKey: score, pk: pk})); err != nil {
			return err
		}
	}
	return tx.Add(m.countKey(), -1)
}

// GetRank returns the number of entries with strictly greater score than
// score (descending rank, 0-based). Ties share the same rank floor.
func (m *Maintainer) GetRank(ctx context.Context, tx kv.Transaction, score float64) (int64, error) {
	height, err := m.currentHeight(ctx, tx)
	if err != nil {
		return 0, err
	}
	cur := headRef()
	var traveled int64
	for l := height - 1; l >= 0; l-- {
		for {
			fp, err := m.readForward(ctx, tx, l, cur)
			if err != nil {
				return 0, err
			}
			if !fp.hasNext || fp.nextScore <= score {
				break
			}
			traveled += fp.span
			cur = ref{sortKey: fp.nextScore, pk: fp.nextPK}
		}
	}
	return traveled, nil
}

// TopK returns the k lexicographically-first entries: descending by score,
// ascending by primary key on ties, with each entry's rank floor.
func (m *Maintainer) TopK(ctx context.Context, tx kv.Transaction, k int) ([]Entry, error) {
	begin := m.desc.Subspace.Sub(kv.Tuple{"n", int64(0)})
	rangeBegin, rangeEnd := begin.Range()
	pairs, err := tx.GetRange(ctx, rangeBegin, rangeEnd, false, kv.RangeOptions{Limit: k})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(pairs))
	var prevScore float64
	var prevRank int64
	haveScore := false
	for i, kvPair := range pairs {
		tup, err := begin.Unpack(kvPair.Key)
		if err != nil {
			return nil, err
		}
		if len(tup) < 1 {
			return nil, apperr.NewCodecError(apperr.CorruptedTuple, "malformed rank node key")
		}
		sortKey, _ := tup[0].(float64)
		pk := kv.Tuple(tup[1:])
		score := -sortKey
		var rank int64
		if haveScore && score == prevScore {
			rank = prevRank
		} else {
			rank = int64(i)
		}
		out = append(out, Entry{Score: score, PK: pk, Rank: rank})
		prevScore, prevRank, haveScore = score, rank, true
	}
	return out, nil
}

// Update reconciles old -> new under tx: delete removes the old (score, pk)
// entry, insert adds the new one.
func (m *Maintainer) Update(ctx context.Context, tx kv.Transaction, old, new record.Record) error {
	if old != nil {
		if score, pk, ok := m.scoreOf(old); ok {
			if err := m.delete(ctx, tx, score, pk); err != nil {
				return err
			}
		}
	}
	if new != nil {
		if score, pk, ok := m.scoreOf(new); ok {
			if err := m.insert(ctx, tx, score, pk); err != nil {
				return err
			}
		}
	}
	return nil
}

// ScanItem is equivalent to Update(nil, rec); the rank index has no
// uniqueness notion, so tracker is unused.
func (m *Maintainer) ScanItem(ctx context.Context, tx kv.Transaction, rec record.Record, tracker index.ViolationRecorder) error {
	if score, pk, ok := m.scoreOf(rec); ok {
		return m.insert(ctx, tx, score, pk)
	}
	return nil
}

// ComputeKeys returns the level-0 node key for rec, used by the scrubber.
func (m *Maintainer) ComputeKeys(rec record.Record) ([][]byte, error) {
	score, pk, ok := m.scoreOf(rec)
	if !ok {
		return nil, nil
	}
	return [][]byte{m.fwdKey(0, ref{sortKey: score, pk: pk})}, nil
}

func (m *Maintainer) scoreOf(rec record.Record) (float64, kv.Tuple, bool) {
	if len(m.desc.FieldNames) != 1 {
		return 0, nil, false
	}
	v, ok := rec.Field(m.desc.FieldNames[0])
	if !ok || v == nil {
		return 0, nil, false
	}
	score, ok := toFloat64(v)
	if !ok {
		return 0, nil, false
	}
	return score, rec.PrimaryKey(), true
}
