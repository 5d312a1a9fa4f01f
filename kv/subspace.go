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

package kv

import "bytes"

// Subspace is a byte-prefix plus the tuple codec. Subspaces compose:
// parent.Sub(x) extends the prefix, the way Erigon's table layout nests
// logical prefixes inside a single flat keyspace.
type Subspace struct {
	prefix []byte
}

// NewSubspace creates a root subspace under the given raw byte prefix.
func NewSubspace(prefix []byte) Subspace {
	cp := make([]byte, len(prefix))
	copy(cp, prefix)
	return Subspace{prefix: cp}
}

// Sub extends this subspace with an additional tuple segment, e.g.
// indexSubspace.Sub(kv.Tuple{"centroids", clusterID}).
func (s Subspace) Sub(t Tuple) Subspace {
	return Subspace{prefix: append(append([]byte{}, s.prefix...), Pack(t)...)}
}

// Pack yields subspace-prefixed key bytes for t.
func (s Subspace) Pack(t Tuple) []byte {
	return append(append([]byte{}, s.prefix...), Pack(t)...)
}

// Unpack strips the subspace prefix from key and decodes the remainder.
// It fails if key is not contained in the subspace.
func (s Subspace) Unpack(key []byte) (Tuple, error) {
	if !s.Contains(key) {
		return nil, &ErrNotInSubspace{Prefix: s.prefix, Key: key}
	}
	return Unpack(key[len(s.prefix):])
}

// Contains is a pure byte-prefix check.
func (s Subspace) Contains(key []byte) bool {
	return bytes.HasPrefix(key, s.prefix)
}

// Range returns (begin, end) bounding all keys under this subspace: begin is
// the prefix itself, end is the prefix incremented so that end is an
// exclusive upper bound over every key sharing the prefix.
func (s Subspace) Range() (begin, end []byte) {
	begin = append([]byte{}, s.prefix...)
	end = Strinc(s.prefix)
	return begin, end
}

// Bytes returns the raw prefix.
func (s Subspace) Bytes() []byte { return append([]byte{}, s.prefix...) }

// Strinc returns the lexicographically smallest byte string strictly greater
// than every string with prefix b; the standard "increment the last non-0xFF
// byte and truncate" trick used for building exclusive range ends.
func Strinc(b []byte) []byte {
	out := append([]byte{}, b...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	// All bytes were 0xFF: no byte string bounds every key with this prefix.
	// The value returned is b followed by two 0x00 bytes, which is greater
	// than b itself but not than longer keys under b.
	return append(out, 0x00, 0x00)
}

// ErrNotInSubspace reports a key that does not belong to the subspace it was
// unpacked against.
type ErrNotInSubspace struct {
	Prefix []byte
	Key    []byte
}

func (e *ErrNotInSubspace) Error() string {
	return "key does not belong to subspace"
}
