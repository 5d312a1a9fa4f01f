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

package indexer

import (
	"bytes"
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/index/scalar"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/record"
)

// sliceSource replays a fixed, PK-sorted record set, the role a primary
// table scan plays in production.
type sliceSource struct {
	records  []record.Record
	recorded []kv.Tuple
}

func (s *sliceSource) calls() []kv.Tuple { return s.recorded }

func (s *sliceSource) Scan(ctx context.Context, tx kv.Transaction, afterPK kv.Tuple, limit int) ([]record.Record, error) {
	s.recorded = append(s.recorded, afterPK)
	start := 0
	if afterPK != nil {
		after := kv.Pack(afterPK)
		for i, r := range s.records {
			if bytes.Compare(kv.Pack(r.PrimaryKey()), after) > 0 {
				start = i
				goto found
			}
		}
		return nil, nil
	found:
	}
	end := start + limit
	if end > len(s.records) {
		end = len(s.records)
	}
	if start >= len(s.records) {
		return nil, nil
	}
	return s.records[start:end], nil
}

func emailRecord(id, email string) record.Record {
	table := record.NewFieldTable([]string{"email"})
	return record.NewGeneric("user", kv.Tuple{id}, table, map[string]record.Value{"email": email})
}

func newBuilderFixture(batchSize, concurrency int) (*Builder, kv.Store, *Tracker) {
	desc := index.Descriptor{
		Name:       "users_email",
		Kind:       index.KindScalar,
		FieldNames: []string{"email"},
		Unique:     true,
		Subspace:   kv.NewSubspace([]byte{0x20}),
	}
	store := kv.NewMemStore()
	maintainer := scalar.New(desc)
	tracker := NewTracker(kv.NewSubspace([]byte{0x21}))
	stateSub := kv.NewSubspace([]byte{0x22})
	progressSub := kv.NewSubspace([]byte{0x23})
	src := &sliceSource{}
	b := NewBuilder(desc, maintainer, src, tracker, stateSub, progressSub, store, kv.DefaultTxConfig(), batchSize, concurrency)
	return b, store, tracker
}

func setWriteOnly(t *testing.T, b *Builder, store kv.Store) {
	t.Helper()
	err := store.Update(context.Background(), kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		return b.states.Set(context.Background(), tx, b.desc.Name, index.StateWriteOnly)
	})
	require.NoError(t, err)
}

// TestOnlineBuildReachesReadableAndRecordsViolation exercises scenario (A):
// a unique index on email sees u1 and u2 both writing "a@x" during a scan,
// which must surface as a recorded violation rather than aborting the build.
func TestOnlineBuildReachesReadableAndRecordsViolation(t *testing.T) {
	b, store, tracker := newBuilderFixture(2, 2)
	src := b.source.(*sliceSource)
	src.records = []record.Record{
		emailRecord("u1", "a@x"),
		emailRecord("u2", "a@x"),
		emailRecord("u3", "c@x"),
	}
	setWriteOnly(t, b, store)
	ctx := context.Background()

	require.NoError(t, b.Run(ctx))

	var state index.State
	err := store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		state, err = b.states.Get(ctx, tx, "users_email")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, index.StateReadable, state)

	var violations []Violation
	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		violations, err = tracker.Scan(ctx, tx, "users_email", 0)
		return err
	})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	require.Equal(t, "users_email", violations[0].Index)
	require.Equal(t, kv.Pack(kv.Tuple{"u1"}), violations[0].PrimaryKeys[0])
	require.Equal(t, kv.Pack(kv.Tuple{"u2"}), violations[0].PrimaryKeys[1])
}

// crashAfterSource wraps a sliceSource, failing the call whose index matches
// failOn and forwarding every other call (whose afterPK the sliceSource
// records), to
// simulate a process crash partway through a build.
type crashAfterSource struct {
	sliceSource
	failOn    int
	callCount int
}

var errSimulatedCrash = context.Canceled

func (s *crashAfterSource) Scan(ctx context.Context, tx kv.Transaction, afterPK kv.Tuple, limit int) ([]record.Record, error) {
	if s.callCount == s.failOn {
		s.callCount++
		return nil, errSimulatedCrash
	}
	s.callCount++
	return s.sliceSource.Scan(ctx, tx, afterPK, limit)
}

// TestOnlineBuildResumesAfterInterruption simulates a crash mid-backlog: a
// fresh Builder sharing the same store picks up from the persisted
// progress key (the last committed round's final primary key) instead of
// rescanning already-committed records.
func TestOnlineBuildResumesAfterInterruption(t *testing.T) {
	desc := index.Descriptor{
		Name:       "users_email",
		Kind:       index.KindScalar,
		FieldNames: []string{"email"},
		Subspace:   kv.NewSubspace([]byte{0x20}),
	}
	store := kv.NewMemStore()
	maintainer := scalar.New(desc)
	tracker := NewTracker(kv.NewSubspace([]byte{0x21}))
	stateSub := kv.NewSubspace([]byte{0x22})
	progressSub := kv.NewSubspace([]byte{0x23})

	all := []record.Record{
		emailRecord("u1", "a@x"),
		emailRecord("u2", "b@x"),
		emailRecord("u3", "c@x"),
		emailRecord("u4", "d@x"),
	}

	crashing := &crashAfterSource{sliceSource: sliceSource{records: all}, failOn: 1}
	b1 := NewBuilder(desc, maintainer, crashing, tracker, stateSub, progressSub, store, kv.DefaultTxConfig(), 2, 1)
	setWriteOnly(t, b1, store)
	ctx := context.Background()

	err := b1.Run(ctx)
	require.ErrorIs(t, err, errSimulatedCrash)

	var progress kv.Tuple
	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		progress, err = b1.progress.get(ctx, tx, "users_email")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, kv.Tuple{"u2"}, progress)

	var state index.State
	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		state, err = b1.states.Get(ctx, tx, "users_email")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, index.StateWriteOnly, state, "a crash mid-build must not advance past write_only")

	resumed := &sliceSource{records: all}
	b2 := NewBuilder(desc, maintainer, resumed, tracker, stateSub, progressSub, store, kv.DefaultTxConfig(), 2, 1)
	require.NoError(t, b2.Run(ctx))
	// The first call after resuming must ask for records strictly after the
	// last committed round, not from the start.
	require.Equal(t, kv.Tuple{"u2"}, resumed.calls()[0])

	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		state, err = b2.states.Get(ctx, tx, "users_email")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, index.StateReadable, state)

	var keys []string
	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		begin, end := desc.Subspace.Range()
		kvs, err := tx.GetRange(ctx, begin, end, false, kv.RangeOptions{})
		if err != nil {
			return err
		}
		for _, pair := range kvs {
			tup, err := desc.Subspace.Unpack(pair.Key)
			if err != nil {
				return err
			}
			keys = append(keys, tup[0].(string)+"/"+tup[1].(string))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(keys)
	require.Equal(t, []string{"a@x/u1", "b@x/u2", "c@x/u3", "d@x/u4"}, keys)
}
