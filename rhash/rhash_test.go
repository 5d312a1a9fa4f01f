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

package rhash_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/recordcore/rhash"
)

func TestHashValueDeterministic(t *testing.T) {
	a := rhash.HashValue([]any{"x", int64(1), 2.5, nil, true})
	b := rhash.HashValue([]any{"x", int64(1), 2.5, nil, true})
	require.Equal(t, a, b)

	c := rhash.HashValue([]any{"x", int64(2), 2.5, nil, true})
	require.NotEqual(t, a, c)
}

func TestPlanFingerprintOrderInsensitiveToIndexNameOrder(t *testing.T) {
	f1 := rhash.PlanFingerprint("IndexSeek", []string{"b_idx", "a_idx"}, []rhash.SortField{{Field: "created_at", Direction: "desc"}})
	f2 := rhash.PlanFingerprint("IndexSeek", []string{"a_idx", "b_idx"}, []rhash.SortField{{Field: "created_at", Direction: "desc"}})
	require.Equal(t, f1, f2, "fingerprint sorts index names before hashing")

	f3 := rhash.PlanFingerprint("IndexSeek", []string{"a_idx", "b_idx"}, []rhash.SortField{{Field: "created_at", Direction: "asc"}})
	require.NotEqual(t, f1, f3)
}
