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

package record

// FieldTable maps a field name to its declaration order, so per-type record
// structs build one FieldTable once, at init time, and every Field(name)
// call thereafter is a map lookup rather than a reflective walk.
type FieldTable struct {
	order  []string
	byName map[string]int
}

// NewFieldTable builds a table over fieldNames in declaration order; the
// field names read by a maintainer, in the order it reads them, should be
// passed in that order.
func NewFieldTable(fieldNames []string) *FieldTable {
	t := &FieldTable{order: append([]string{}, fieldNames...), byName: make(map[string]int, len(fieldNames))}
	for i, n := range fieldNames {
		t.byName[n] = i
	}
	return t
}

// Names returns the fields in declaration order.
func (t *FieldTable) Names() []string { return append([]string{}, t.order...) }

// Index returns the declaration-order index of name, or -1 if absent.
func (t *FieldTable) Index(name string) int {
	if i, ok := t.byName[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of declared fields.
func (t *FieldTable) Len() int { return len(t.order) }
