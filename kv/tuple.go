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

// Package kv implements the ordered tuple codec and subspace abstraction,
// plus the KV store contract and a handful of concrete store backends.
//
// Tuple encoding guarantees lexicographic byte order equals logical order
// over nested tuples of {nil, bool, int64, float64, string, []byte, Tuple}.
// Every element is tagged (tags start at 0x01 so 0x00 is reserved as an
// unambiguous terminator/escape byte); strings and byte slices escape literal
// 0x00 bytes as 0x00,0xFF and terminate with 0x00,0x00; nested tuples
// terminate with a bare 0x00, which is safe because decoding always knows the
// exact width of the element it is looking at and only ever tests for 0x00 at
// a position where a fresh tag is expected.
package kv

import (
	"encoding/binary"
	"math"

	"github.com/erigontech/recordcore/internal/apperr"
)

// MaxKeySize is the key size ceiling.
const MaxKeySize = 10 * 1024

// MaxValueSize is the value size ceiling (larger payloads are handled by an
// out-of-scope envelope splitter).
const MaxValueSize = 100 * 1024

const (
	tagNull   byte = 0x01
	tagFalse  byte = 0x02
	tagTrue   byte = 0x03
	tagInt    byte = 0x04
	tagDouble byte = 0x05
	tagString byte = 0x06
	tagBytes  byte = 0x07
	tagTuple  byte = 0x08

	terminator byte = 0x00
	escapeFF   byte = 0xFF
)

// Tuple is an ordered sequence of elements, each one of:
// nil, bool, int64 (or int, coerced), float64, string, []byte, Tuple.
type Tuple []any

// Pack encodes t into an ordered byte string. Pack is a total function over
// the supported element types; an unsupported element type panics, since it
// represents a programming error in a maintainer, not a data error.
func Pack(t Tuple) []byte {
	buf := make([]byte, 0, 32*len(t))
	for _, el := range t {
		buf = appendElement(buf, el)
	}
	return buf
}

// Unpack is the inverse of Pack. It fails with CorruptedTuple on malformed
// input.
func Unpack(data []byte) (Tuple, error) {
	out := Tuple{}
	pos := 0
	for pos < len(data) {
		v, n, err := decodeElement(data[pos:])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		pos += n
	}
	return out, nil
}

// ValidateKeySize enforces the 10 KB key bound.
func ValidateKeySize(key []byte) error {
	if len(key) > MaxKeySize {
		return apperr.NewCodecError(apperr.KeyTooLarge, "key is %d bytes, max %d", len(key), MaxKeySize)
	}
	return nil
}

// ValidateValueSize enforces the 100 KB value bound.
func ValidateValueSize(value []byte) error {
	if len(value) > MaxValueSize {
		return apperr.NewCodecError(apperr.KeyTooLarge, "value is %d bytes, max %d", len(value), MaxValueSize)
	}
	return nil
}

func appendElement(buf []byte, el any) []byte {
	switch v := el.(type) {
	case nil:
		return append(buf, tagNull)
	case bool:
		if v {
			return append(buf, tagTrue)
		}
		return append(buf, tagFalse)
	case int:
		return appendInt(buf, int64(v))
	case int32:
		return appendInt(buf, int64(v))
	case int64:
		return appendInt(buf, v)
	case float32:
		return appendDouble(buf, float64(v))
	case float64:
		return appendDouble(buf, v)
	case string:
		return appendEscaped(buf, tagString, []byte(v))
	case []byte:
		return appendEscaped(buf, tagBytes, v)
	case Tuple:
		buf = append(buf, tagTuple)
		for _, child := range v {
			buf = appendElement(buf, child)
		}
		return append(buf, terminator)
	default:
		panic(apperr.NewCodecError(apperr.UnsupportedType, "unsupported tuple element type %T", el))
	}
}

func appendInt(buf []byte, v int64) []byte {
	buf = append(buf, tagInt)
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], uint64(v)^0x8000000000000000)
	return append(buf, enc[:]...)
}

func appendDouble(buf []byte, v float64) []byte {
	buf = append(buf, tagDouble)
	bits := math.Float64bits(v)
	if bits&0x8000000000000000 != 0 {
		bits = ^bits
	} else {
		bits |= 0x8000000000000000
	}
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], bits)
	return append(buf, enc[:]...)
}

func appendEscaped(buf []byte, tag byte, payload []byte) []byte {
	buf = append(buf, tag)
	for _, b := range payload {
		if b == terminator {
			buf = append(buf, terminator, escapeFF)
		} else {
			buf = append(buf, b)
		}
	}
	return append(buf, terminator, terminator)
}

func decodeElement(data []byte) (any, int, error) {
	if len(data) == 0 {
		return nil, 0, apperr.NewCodecError(apperr.CorruptedTuple, "empty input")
	}
	tag := data[0]
	switch tag {
	case tagNull:
		return nil, 1, nil
	case tagFalse:
		return false, 1, nil
	case tagTrue:
		return true, 1, nil
	case tagInt:
		if len(data) < 9 {
			return nil, 0, apperr.NewCodecError(apperr.CorruptedTuple, "truncated int")
		}
		raw := binary.BigEndian.Uint64(data[1:9])
		return int64(raw ^ 0x8000000000000000), 9, nil
	case tagDouble:
		if len(data) < 9 {
			return nil, 0, apperr.NewCodecError(apperr.CorruptedTuple, "truncated double")
		}
		bits := binary.BigEndian.Uint64(data[1:9])
		if bits&0x8000000000000000 != 0 {
			bits &^= 0x8000000000000000
		} else {
			bits = ^bits
		}
		return math.Float64frombits(bits), 9, nil
	case tagString:
		payload, n, err := decodeEscaped(data[1:])
		if err != nil {
			return nil, 0, err
		}
		return string(payload), n + 1, nil
	case tagBytes:
		payload, n, err := decodeEscaped(data[1:])
		if err != nil {
			return nil, 0, err
		}
		return payload, n + 1, nil
	case tagTuple:
		pos := 1
		children := Tuple{}
		for {
			if pos >= len(data) {
				return nil, 0, apperr.NewCodecError(apperr.CorruptedTuple, "unterminated nested tuple")
			}
			if data[pos] == terminator {
				pos++
				return children, pos, nil
			}
			v, n, err := decodeElement(data[pos:])
			if err != nil {
				return nil, 0, err
			}
			children = append(children, v)
			pos += n
		}
	default:
		return nil, 0, apperr.NewCodecError(apperr.CorruptedTuple, "unknown tag byte 0x%02x", tag)
	}
}

func decodeEscaped(data []byte) ([]byte, int, error) {
	out := make([]byte, 0, len(data))
	pos := 0
	for {
		if pos >= len(data) {
			return nil, 0, apperr.NewCodecError(apperr.CorruptedTuple, "unterminated string/bytes element")
		}
		b := data[pos]
		if b != terminator {
			out = append(out, b)
			pos++
			continue
		}
		if pos+1 >= len(data) {
			return nil, 0, apperr.NewCodecError(apperr.CorruptedTuple, "truncated escape sequence")
		}
		switch data[pos+1] {
		case escapeFF:
			out = append(out, terminator)
			pos += 2
		case terminator:
			return out, pos + 2, nil
		default:
			return nil, 0, apperr.NewCodecError(apperr.CorruptedTuple, "invalid escape sequence 0x00 0x%02x", data[pos+1])
		}
	}
}
