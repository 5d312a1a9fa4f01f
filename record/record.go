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

import "github.com/erigontech/recordcore/kv"

// Record is the contract maintainers, the planner and the online indexer
// consume. TypeName and PrimaryKey are cheap; Field is backed by a per-type
// FieldTable rather than runtime reflection.
type Record interface {
	TypeName() string
	PrimaryKey() kv.Tuple
	Field(name string) (Value, bool)
	FieldNames() []string
}

// Generic is a FieldTable-backed Record implementation usable directly by
// tests and simple callers instead of generating a bespoke struct per type.
type Generic struct {
	typeName   string
	primaryKey kv.Tuple
	table      *FieldTable
	values     map[string]Value
}

// NewGeneric builds a Generic record. values need not include every field
// named by table; absent fields resolve to (nil, false) from Field, which
// maintainers treat identically to an explicit null for sparse-index
// purposes except that Field's second return distinguishes "absent" from
// "present and null" when a maintainer cares to.
func NewGeneric(typeName string, primaryKey kv.Tuple, table *FieldTable, values map[string]Value) *Generic {
	return &Generic{typeName: typeName, primaryKey: primaryKey, table: table, values: values}
}

func (g *Generic) TypeName() string        { return g.typeName }
func (g *Generic) PrimaryKey() kv.Tuple     { return g.primaryKey }
func (g *Generic) FieldNames() []string     { return g.table.Names() }
func (g *Generic) Field(name string) (Value, bool) {
	v, ok := g.values[name]
	return v, ok
}
