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

package rhash

import (
	"encoding/binary"
	"sort"
)

// SortField is one element of a plan's sort-key list, used only for
// fingerprinting here; both Field and Direction feed the fingerprint.
type SortField struct {
	Field     string
	Direction string
}

// PlanFingerprint computes the deterministic hash identifying a query plan
// shape for continuation-token validation:
// hash(operatorDescription || sorted(indexNames) || sortFields).
func PlanFingerprint(operatorDescription string, indexNames []string, sortFields []SortField) []byte {
	sorted := append([]string{}, indexNames...)
	sort.Strings(sorted)

	elems := []any{operatorDescription}
	for _, n := range sorted {
		elems = append(elems, n)
	}
	for _, sf := range sortFields {
		elems = append(elems, sf.Field, sf.Direction)
	}

	h := HashValue(elems)
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, h)
	return out
}
