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

package kv_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/erigontech/recordcore/kv"
)

func TestTupleRoundTrip(t *testing.T) {
	cases := []kv.Tuple{
		{nil},
		{true, false},
		{int64(0), int64(-1), int64(1 << 40), int64(-(1 << 40))},
		{3.14, -3.14, 0.0},
		{"hello", ""},
		{[]byte{0x00, 0x01, 0xFF}},
		{kv.Tuple{"nested", int64(1), kv.Tuple{"deep"}}},
		{"a", int64(1), true, nil, 2.5, []byte("x")},
	}
	for _, tup := range cases {
		packed := kv.Pack(tup)
		got, err := kv.Unpack(packed)
		require.NoError(t, err)
		require.Equal(t, normalize(tup), normalize(got))
	}
}

// normalize copies t, recursing into nested tuples; values are kept as they
// are, so the fixtures above spell out int64/float64 to match what Unpack
// returns.
func normalize(t kv.Tuple) kv.Tuple {
	out := make(kv.Tuple, len(t))
	for i, v := range t {
		switch x := v.(type) {
		case kv.Tuple:
			out[i] = normalize(x)
		default:
			out[i] = x
		}
	}
	return out
}

func TestTupleOrderPreserving(t *testing.T) {
	pairs := [][2]kv.Tuple{
		{{int64(-5)}, {int64(5)}},
		{{int64(1)}, {int64(2)}},
		{{-1.5}, {1.5}},
		{{"a"}, {"b"}},
		{{"a"}, {"aa"}},
		{{"a", int64(1)}, {"a", int64(2)}},
		{{false}, {true}},
		{{nil}, {false}},
		{{[]byte{0x00}}, {[]byte{0x00, 0x00}}},
	}
	for _, p := range pairs {
		a, b := kv.Pack(p[0]), kv.Pack(p[1])
		require.True(t, bytes.Compare(a, b) < 0, "expected %v < %v", p[0], p[1])
	}
}

func TestUnpackCorruptedTuple(t *testing.T) {
	_, err := kv.Unpack([]byte{0xEE})
	require.Error(t, err)

	_, err = kv.Unpack([]byte{0x04, 0x01}) // int tag truncated
	require.Error(t, err)

	_, err = kv.Unpack([]byte{0x08, 0x04, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}) // unterminated nested tuple
	require.Error(t, err)
}

func TestTupleRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(tt, "n")
		tup := make(kv.Tuple, n)
		for i := range tup {
			switch rapid.IntRange(0, 5).Draw(tt, "kind") {
			case 0:
				tup[i] = nil
			case 1:
				tup[i] = rapid.Bool().Draw(tt, "b")
			case 2:
				tup[i] = rapid.Int64().Draw(tt, "i")
			case 3:
				f := rapid.Float64().Draw(tt, "f")
				for math.IsNaN(f) {
					f = rapid.Float64().Draw(tt, "f")
				}
				tup[i] = f
			case 4:
				tup[i] = rapid.String().Draw(tt, "s")
			case 5:
				tup[i] = []byte(rapid.String().Draw(tt, "bs"))
			}
		}
		packed := kv.Pack(tup)
		got, err := kv.Unpack(packed)
		require.NoError(tt, err)
		require.Equal(tt, normalize(tup), normalize(got))
	})
}
