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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/recordcore/cursor"
	"github.com/erigontech/recordcore/index"
	"github.com/erigontech/recordcore/index/scalar"
	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/predicate"
	"github.com/erigontech/recordcore/record"
)

func orderRecord(id string, customerID, status string, createdAt int64) record.Record {
	table := record.NewFieldTable([]string{"customer_id", "status", "created_at"})
	return record.NewGeneric("order", kv.Tuple{id}, table, map[string]record.Value{
		"customer_id": customerID,
		"status":      status,
		"created_at":  createdAt,
	})
}

// TestIndexScanExecutorPaginatesWinningPlan runs the Optimize winner from
// scenario (B) against a real scalar index and a real cursor, confirming
// the planner's chosen OrderedIndexScan plan actually produces the
// expected page through the continuation-token machinery rather than
// just being cheap on paper.
func TestIndexScanExecutorPaginatesWinningPlan(t *testing.T) {
	desc := index.Descriptor{
		Name:       "orders_customer_status_created",
		Kind:       index.KindScalar,
		FieldNames: []string{"customer_id", "status", "created_at"},
		Subspace:   kv.NewSubspace([]byte{0x70}),
	}
	maintainer := scalar.New(desc)
	store := kv.NewMemStore()
	ctx := context.Background()

	rows := []record.Record{
		orderRecord("o1", "C1", "pending", 3),
		orderRecord("o2", "C1", "pending", 5),
		orderRecord("o3", "C1", "done", 4),
		orderRecord("o4", "C2", "pending", 2),
	}
	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		for _, r := range rows {
			if err := maintainer.Update(ctx, tx, nil, r); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	// the optimizer sees scenario (B)'s table size; at only four rows the
	// index scan's range-initiation charge would make the full scan cheaper.
	catalog := Catalog{Indexes: []IndexInfo{{Descriptor: desc, EstimatedEntries: 1000}}}
	opt := NewOptimizer(catalog, nil, 1000)

	pred := predicate.And(
		predicate.Comparison("customer_id", predicate.OpEq, "C1"),
		predicate.Comparison("status", predicate.OpEq, "pending"),
	)
	req := RequiredProperties{SortKeys: []SortKey{{Field: "created_at", Desc: true}}, Limit: 2}
	result, err := opt.Optimize(pred, req)
	require.NoError(t, err)

	var scanNode *PhysicalPlan
	var walk func(*PhysicalPlan)
	walk = func(p *PhysicalPlan) {
		if p.Kind == PlanOrderedIndexScan {
			scanNode = p
		}
		for _, c := range p.Children {
			walk(c)
		}
	}
	walk(result.Plan)
	require.NotNil(t, scanNode)

	begin, end := desc.Subspace.Sub(kv.Tuple{"C1", "pending"}).Range()
	exec := NewIndexScanExecutor(scanNode, begin, end, []byte("orders_customer_status_created:C1:pending"))
	cur := cursor.New(exec, store, kv.DefaultTxConfig(), 2, int64(req.Limit))

	page, err := cur.Next(ctx)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	var createdAts []int64
	for _, item := range page.Items {
		tup, err := desc.Subspace.Unpack(item.Key)
		require.NoError(t, err)
		createdAts = append(createdAts, tup[2].(int64))
	}
	require.Equal(t, []int64{5, 3}, createdAts)
}

// TestIndexScanExecutorMultiPageNoGaps is testable property 8:
// concatenating every page a Cursor yields over several batches must
// equal one full scan of the matched range, with no gaps and no repeats
// in either scan direction.
func TestIndexScanExecutorMultiPageNoGaps(t *testing.T) {
	desc := index.Descriptor{
		Name:       "orders_customer_status_created",
		Kind:       index.KindScalar,
		FieldNames: []string{"customer_id", "status", "created_at"},
		Subspace:   kv.NewSubspace([]byte{0x71}),
	}
	maintainer := scalar.New(desc)
	store := kv.NewMemStore()
	ctx := context.Background()

	rows := []record.Record{
		orderRecord("o1", "C1", "pending", 1),
		orderRecord("o2", "C1", "pending", 2),
		orderRecord("o3", "C1", "pending", 3),
		orderRecord("o4", "C1", "pending", 4),
		orderRecord("o5", "C1", "pending", 5),
		orderRecord("o6", "C1", "done", 6),
		orderRecord("o7", "C2", "pending", 7),
	}
	err := store.Update(ctx, kv.DefaultTxConfig(), func(tx kv.Transaction) error {
		for _, r := range rows {
			if err := maintainer.Update(ctx, tx, nil, r); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	begin, end := desc.Subspace.Sub(kv.Tuple{"C1", "pending"}).Range()

	for _, reverse := range []bool{false, true} {
		plan := &PhysicalPlan{Kind: PlanOrderedIndexScan, Reverse: reverse}
		exec := NewIndexScanExecutor(plan, begin, end, []byte("fingerprint"))
		cur := cursor.New(exec, store, kv.DefaultTxConfig(), 2, 0)

		var createdAts []int64
		for {
			page, err := cur.Next(ctx)
			require.NoError(t, err)
			for _, item := range page.Items {
				tup, err := desc.Subspace.Unpack(item.Key)
				require.NoError(t, err)
				createdAts = append(createdAts, tup[2].(int64))
			}
			if page.Done {
				break
			}
		}

		want := []int64{1, 2, 3, 4, 5}
		if reverse {
			want = []int64{5, 4, 3, 2, 1}
		}
		require.Equal(t, want, createdAts, "reverse=%v", reverse)
	}
}
