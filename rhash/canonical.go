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

// Package rhash implements the deterministic MurmurHash3-64 hashing used
// throughout the module for plan fingerprints and probabilistic structures.
// Canonicalization is independent of the kv tuple codec: it optimizes for a
// simple, unambiguous byte stream rather than for order preservation, since
// hashes are never compared lexicographically.
package rhash

import (
	"encoding/binary"
	"math"
)

// Canonical value type tags: each value is prefixed by one of these.
const (
	TagNull   byte = 0x00
	TagBool   byte = 0x01
	TagInt    byte = 0x02
	TagDouble byte = 0x03
	TagString byte = 0x04
	TagBytes  byte = 0x05
	TagArray  byte = 0x06
)

// Canonicalize produces the canonical byte stream for v, recursively. Arrays
// carry a length prefix followed by per-element length-prefixed encodings;
// Int widens to 64 bits; Double hashes its IEEE-754 bit pattern verbatim (no
// order-preserving transform needed here).
func Canonicalize(v any) []byte {
	buf := make([]byte, 0, 16)
	return appendCanonical(buf, v)
}

func appendCanonical(buf []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(buf, TagNull)
	case bool:
		b := byte(0)
		if x {
			b = 1
		}
		return append(buf, TagBool, b)
	case int:
		return appendInt64(buf, int64(x))
	case int32:
		return appendInt64(buf, int64(x))
	case int64:
		return appendInt64(buf, x)
	case float32:
		return appendDouble(buf, float64(x))
	case float64:
		return appendDouble(buf, x)
	case string:
		return appendLenPrefixed(buf, TagString, []byte(x))
	case []byte:
		return appendLenPrefixed(buf, TagBytes, x)
	case []any:
		buf = append(buf, TagArray)
		var lenBuf [8]byte
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(x)))
		buf = append(buf, lenBuf[:]...)
		for _, el := range x {
			elBytes := appendCanonical(nil, el)
			var elLen [8]byte
			binary.LittleEndian.PutUint64(elLen[:], uint64(len(elBytes)))
			buf = append(buf, elLen[:]...)
			buf = append(buf, elBytes...)
		}
		return buf
	default:
		panic("rhash: unsupported canonical value type")
	}
}

func appendInt64(buf []byte, v int64) []byte {
	buf = append(buf, TagInt)
	var enc [8]byte
	binary.LittleEndian.PutUint64(enc[:], uint64(v))
	return append(buf, enc[:]...)
}

func appendDouble(buf []byte, v float64) []byte {
	buf = append(buf, TagDouble)
	var enc [8]byte
	binary.LittleEndian.PutUint64(enc[:], math.Float64bits(v))
	return append(buf, enc[:]...)
}

func appendLenPrefixed(buf []byte, tag byte, payload []byte) []byte {
	buf = append(buf, tag)
	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, payload...)
}
