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

import "github.com/spaolacci/murmur3"

// Seed is fixed so that hashes are reproducible across processes and across
// runs of the same process, since fingerprints and bucketing decisions are
// persisted and later compared against freshly computed hashes.
const Seed uint32 = 0x52434f52 // "RCOR"

// Sum64 hashes raw bytes with the module-wide fixed seed. Every multi-byte
// integer a caller folds into data should be little-endian, so hashes are
// stable across platforms.
func Sum64(data []byte) uint64 {
	return murmur3.Sum64WithSeed(data, Seed)
}

// HashValue canonicalizes v and hashes the result. Used by HyperLogLog.Add
// and PlanFingerprint, which need a deterministic hash of an arbitrary
// value.
func HashValue(v any) uint64 {
	return Sum64(Canonicalize(v))
}
