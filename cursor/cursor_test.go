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
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/recordcore/kv"
)

// sliceExecutor replays a fixed, pre-sorted key space, used to drive the
// cursor state machine without a real index behind it.
type sliceExecutor struct {
	keys       [][]byte
	scanType   ScanType
	fingerprint []byte
}

func (s *sliceExecutor) ScanType() ScanType        { return s.scanType }
func (s *sliceExecutor) PlanFingerprint() []byte   { return s.fingerprint }
func (s *sliceExecutor) Reverse() bool             { return false }

func (s *sliceExecutor) Execute(ctx context.Context, tx kv.Transaction, afterKey []byte, limit int) ([]Item, error) {
	start := 0
	if afterKey != nil {
		for i, k := range s.keys {
			if bytesEqual(k, afterKey) {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(s.keys) {
		end = len(s.keys)
	}
	out := make([]Item, 0, end-start)
	for _, k := range s.keys[start:end] {
		out = append(out, Item{Key: k, Value: string(k)})
	}
	return out, nil
}

func makeKeys(n int) [][]byte {
	keys := make([][]byte, n)
	for i := 0; i < n; i++ {
		keys[i] = []byte(fmt.Sprintf("k%04d", i))
	}
	return keys
}

func TestCursorPaginationConcatenatesToFullScan(t *testing.T) {
	exec := &sliceExecutor{keys: makeKeys(25), scanType: ScanTypeRangeScan, fingerprint: []byte("fp")}
	store := kv.NewMemStore()
	c := New(exec, store, kv.DefaultTxConfig(), 10, 0)
	ctx := context.Background()

	var all []Item
	for i := 0; i < 10; i++ {
		page, err := c.Next(ctx)
		require.NoError(t, err)
		all = append(all, page.Items...)
		if page.Done {
			require.Equal(t, SourceExhausted, page.Reason)
			break
		}
	}
	require.Len(t, all, 25)
	for i, it := range all {
		require.Equal(t, fmt.Sprintf("k%04d", i), string(it.Value.(string)))
	}
}

func TestCursorThreePageScenario(t *testing.T) {
	exec := &sliceExecutor{keys: makeKeys(25), scanType: ScanTypeRangeScan, fingerprint: []byte("fp")}
	store := kv.NewMemStore()
	c := New(exec, store, kv.DefaultTxConfig(), 10, 0)
	ctx := context.Background()

	p1, err := c.Next(ctx)
	require.NoError(t, err)
	require.False(t, p1.Done)
	require.Len(t, p1.Items, 10)
	require.NotEmpty(t, p1.NextToken)

	state, eor, err := Decode(p1.NextToken, ScanTypeRangeScan, []byte("fp"))
	require.NoError(t, err)
	require.False(t, eor)
	require.Equal(t, Unlimited, state.RemainingLimit)
	require.Equal(t, "k0009", string(state.LastKey))

	p2, err := c.Next(ctx)
	require.NoError(t, err)
	require.False(t, p2.Done)
	require.Len(t, p2.Items, 10)

	p3, err := c.Next(ctx)
	require.NoError(t, err)
	require.True(t, p3.Done)
	require.Equal(t, SourceExhausted, p3.Reason)
	require.Len(t, p3.Items, 5)
}

func TestCursorPlanMismatchOnResume(t *testing.T) {
	exec := &sliceExecutor{keys: makeKeys(25), scanType: ScanTypeRangeScan, fingerprint: []byte("fp")}
	store := kv.NewMemStore()
	c := New(exec, store, kv.DefaultTxConfig(), 10, 0)
	ctx := context.Background()
	page, err := c.Next(ctx)
	require.NoError(t, err)

	otherExec := &sliceExecutor{keys: makeKeys(25), scanType: ScanTypeRangeScan, fingerprint: []byte("different")}
	_, err = Resume(otherExec, store, kv.DefaultTxConfig(), 10, page.NextToken)
	require.Error(t, err)
}

func TestCursorReturnLimitReached(t *testing.T) {
	exec := &sliceExecutor{keys: makeKeys(25), scanType: ScanTypeRangeScan, fingerprint: []byte("fp")}
	store := kv.NewMemStore()
	c := New(exec, store, kv.DefaultTxConfig(), 10, 5)
	ctx := context.Background()

	page, err := c.Next(ctx)
	require.NoError(t, err)
	require.False(t, page.Done)
	require.Len(t, page.Items, 5)

	page, err = c.Next(ctx)
	require.NoError(t, err)
	require.True(t, page.Done)
	require.Equal(t, ReturnLimitReached, page.Reason)
	require.Empty(t, page.Items)
}

func TestCursorUnionDedupAcrossPages(t *testing.T) {
	keys := makeKeys(6)
	dup := append(append([][]byte{}, keys...), keys[0], keys[1])
	exec := &sliceExecutor{keys: dup, scanType: ScanTypeUnion, fingerprint: []byte("fp")}
	store := kv.NewMemStore()
	c := New(exec, store, kv.DefaultTxConfig(), 3, 0)
	ctx := context.Background()

	var all []Item
	for {
		page, err := c.Next(ctx)
		require.NoError(t, err)
		all = append(all, page.Items...)
		if page.Done {
			break
		}
	}
	require.Len(t, all, 6)
}

func TestEndOfResultsToken(t *testing.T) {
	_, eor, err := Decode(EndOfResultsToken, ScanTypeRangeScan, []byte("fp"))
	require.NoError(t, err)
	require.True(t, eor)
}
