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

// Package covering implements the presence-bitmap + tuple payload codec for
// covering index entries: value = tuple(presenceBitmap:u64,
// present_values...). Up to 64 stored fields.
package covering

import (
	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/kv"
)

// MaxStoredFields is the presence bitmap's bit width.
const MaxStoredFields = 64

// Encode builds a covering value for storedFieldNames given a field
// accessor. Bit i is set iff storedFieldNames[i] resolved to a non-nil
// value; only non-nil values are appended to the payload tuple, in order.
// An empty byte slice ("no covering fields") is returned when every bit is
// clear, matching the "empty byte array means no covering fields" rule.
func Encode(storedFieldNames []string, field func(name string) (any, bool)) ([]byte, error) {
	if len(storedFieldNames) > MaxStoredFields {
		return nil, apperr.NewCodecError(apperr.UnsupportedType, "covering index supports at most %d stored fields, got %d", MaxStoredFields, len(storedFieldNames))
	}
	var bitmap uint64
	payload := kv.Tuple{}
	for i, name := range storedFieldNames {
		v, ok := field(name)
		if !ok || v == nil {
			continue
		}
		bitmap |= 1 << uint(i)
		payload = append(payload, v)
	}
	if bitmap == 0 {
		return []byte{}, nil
	}
	full := append(kv.Tuple{int64(bitmap)}, payload...)
	return kv.Pack(full), nil
}

// Decode parses a covering value back into a name->value map over
// storedFieldNames. An empty byte value decodes to an empty map.
func Decode(storedFieldNames []string, value []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(value) == 0 {
		return out, nil
	}
	tup, err := kv.Unpack(value)
	if err != nil {
		return nil, err
	}
	if len(tup) == 0 {
		return nil, apperr.NewCodecError(apperr.CorruptedCoveringValue, "missing presence bitmap")
	}
	bitmapVal, ok := tup[0].(int64)
	if !ok {
		return nil, apperr.NewCodecError(apperr.CorruptedCoveringValue, "presence bitmap is not an integer")
	}
	bitmap := uint64(bitmapVal)
	payload := tup[1:]
	pi := 0
	for i, name := range storedFieldNames {
		if bitmap&(1<<uint(i)) == 0 {
			continue
		}
		if pi >= len(payload) {
			return nil, apperr.NewCodecError(apperr.CorruptedCoveringValue, "bitmap set with no matching element at field %q", name)
		}
		out[name] = payload[pi]
		pi++
	}
	return out, nil
}
