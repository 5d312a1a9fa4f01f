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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/recordcore/kv"
)

func newTrackerFixture() (*Tracker, kv.Store) {
	return NewTracker(kv.NewSubspace([]byte{0x01})), kv.NewMemStore()
}

// TestUniquenessViolationRecordScanClear exercises the literal scenario: a
// unique index on email sees u1 and u2 both writing "a@x".
func TestUniquenessViolationRecordScanClear(t *testing.T) {
	tracker, store := newTrackerFixture()
	ctx := context.Background()
	value := []byte("a@x")

	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		return tracker.Record(ctx, tx, "users_email", value, kv.Tuple{"u1"}, kv.Tuple{"u2"})
	})
	require.NoError(t, err)

	var violations []Violation
	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		violations, err = tracker.Scan(ctx, tx, "users_email", 0)
		return err
	})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	require.Equal(t, "users_email", violations[0].Index)
	require.Equal(t, "uniqueness", violations[0].Type)
	require.Len(t, violations[0].PrimaryKeys, 2)
	require.Equal(t, kv.Pack(kv.Tuple{"u1"}), violations[0].PrimaryKeys[0])
	require.Equal(t, kv.Pack(kv.Tuple{"u2"}), violations[0].PrimaryKeys[1])

	err = store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		return tracker.Clear(ctx, tx, "users_email", value)
	})
	require.NoError(t, err)

	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		violations, err = tracker.Scan(ctx, tx, "users_email", 0)
		return err
	})
	require.NoError(t, err)
	require.Empty(t, violations)
}

func TestUniquenessRecordAppendsThirdConflictingWriter(t *testing.T) {
	tracker, store := newTrackerFixture()
	ctx := context.Background()
	value := []byte("a@x")

	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		if err := tracker.Record(ctx, tx, "users_email", value, kv.Tuple{"u1"}, kv.Tuple{"u2"}); err != nil {
			return err
		}
		return tracker.Record(ctx, tx, "users_email", value, kv.Tuple{"u1"}, kv.Tuple{"u3"})
	})
	require.NoError(t, err)

	var violations []Violation
	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		violations, err = tracker.Scan(ctx, tx, "users_email", 0)
		return err
	})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	require.Len(t, violations[0].PrimaryKeys, 3)
}

func TestVerifyResolutionTrueWhenAtMostOneLivePK(t *testing.T) {
	tracker, store := newTrackerFixture()
	ctx := context.Background()

	valueSub := kv.NewSubspace([]byte{0x01}).Sub(kv.Tuple{"a@x"})
	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		return tx.Set(valueSub.Pack(kv.Tuple{"u2"}), []byte{})
	})
	require.NoError(t, err)

	var resolved bool
	var live []kv.Tuple
	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		resolved, live, err = tracker.VerifyResolution(ctx, tx, valueSub)
		return err
	})
	require.NoError(t, err)
	require.True(t, resolved)
	require.Len(t, live, 1)
}

func TestVerifyResolutionFalseWhenStillConflicting(t *testing.T) {
	tracker, store := newTrackerFixture()
	ctx := context.Background()

	valueSub := kv.NewSubspace([]byte{0x01}).Sub(kv.Tuple{"a@x"})
	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		if err := tx.Set(valueSub.Pack(kv.Tuple{"u1"}), []byte{}); err != nil {
			return err
		}
		return tx.Set(valueSub.Pack(kv.Tuple{"u2"}), []byte{})
	})
	require.NoError(t, err)

	var resolved bool
	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		resolved, _, err = tracker.VerifyResolution(ctx, tx, valueSub)
		return err
	})
	require.NoError(t, err)
	require.False(t, resolved)
}

func TestClearAllRemovesEveryViolationForIndex(t *testing.T) {
	tracker, store := newTrackerFixture()
	ctx := context.Background()

	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		if err := tracker.Record(ctx, tx, "users_email", []byte("a@x"), kv.Tuple{"u1"}, kv.Tuple{"u2"}); err != nil {
			return err
		}
		return tracker.Record(ctx, tx, "users_email", []byte("b@x"), kv.Tuple{"u4"}, kv.Tuple{"u5"})
	})
	require.NoError(t, err)

	err = store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		return tracker.ClearAll(ctx, tx, "users_email")
	})
	require.NoError(t, err)

	var violations []Violation
	err = store.View(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		var err error
		violations, err = tracker.Scan(ctx, tx, "users_email", 0)
		return err
	})
	require.NoError(t, err)
	require.Empty(t, violations)
}
