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

// Package record defines the typed record contract: a stable primary key, a
// field-name -> typed Value mapping, and a type identity.
package record

// Value holds one of: nil, bool, int64, float64, string, []byte, or Array.
// It is a plain `any` rather than a closed interface type because every
// consumer (maintainers, the predicate IR, the tuple codec) already does a
// type switch over exactly this set; wrapping it in an interface would only
// add an indirection with no new safety.
type Value = any

// Array is the multi-valued field variant.
type Array []Value

// IsNull reports whether v represents the Record data model's null.
func IsNull(v Value) bool { return v == nil }
