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

package covering_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/recordcore/covering"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fields := []string{"name", "age", "email"}
	values := map[string]any{"name": "alice", "email": "a@x"}
	encoded, err := covering.Encode(fields, func(n string) (any, bool) {
		v, ok := values[n]
		return v, ok
	})
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := covering.Decode(fields, encoded)
	require.NoError(t, err)
	require.Equal(t, "alice", decoded["name"])
	require.Equal(t, "a@x", decoded["email"])
	_, hasAge := decoded["age"]
	require.False(t, hasAge)
}

func TestEncodeAllNilYieldsEmptyBytes(t *testing.T) {
	encoded, err := covering.Encode([]string{"a", "b"}, func(string) (any, bool) { return nil, false })
	require.NoError(t, err)
	require.Empty(t, encoded)

	decoded, err := covering.Decode([]string{"a", "b"}, encoded)
	require.NoError(t, err)
	require.Empty(t, decoded)
}

func TestDecodeCorrupted(t *testing.T) {
	_, err := covering.Decode([]string{"a"}, []byte{0xEE})
	require.Error(t, err)
}
