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

// Package index defines the IndexMaintainer protocol shared by every
// concrete index kind, plus the index descriptor and its invariants.
package index

import (
	"context"

	"github.com/erigontech/recordcore/kv"
	"github.com/erigontech/recordcore/record"
)

// Kind enumerates the closed set of index kinds: a sum type over the
// maintainer variants rather than an open, dynamically-registered set.
type Kind int

const (
	KindScalar Kind = iota
	KindRank
	KindVectorFlat
	KindVectorIVF
	KindGraphAdjacency
	KindGraphTriple
)

// Capability carries kind-specific parameters: vector dimensions/metric,
// IVF nlist/nprobe, rank bucket_size, and so on. Only the
// fields relevant to Kind are populated; the rest are zero values.
type Capability struct {
	Dimensions    int
	Metric        string // cosine | euclidean | dotProduct
	NList, NProbe int
	KMeansIters   int
	BucketSize    int // rank skip-list history aggregation bucket, default 100
}

// Descriptor is the immutable configuration of one index.
type Descriptor struct {
	Name              string
	Kind              Kind
	FieldNames        []string
	Unique            bool
	Sparse            bool
	StoredFieldNames  []string
	Capability        Capability
	Subspace          kv.Subspace
}

// State is the online-build state machine:
// disabled -> write_only -> readable_write -> readable, one-way except
// readable -> disabled via drop.
type State int

const (
	StateDisabled State = iota
	StateWriteOnly
	StateReadableWrite
	StateReadable
)

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	if next == StateDisabled {
		return s == StateReadable || s == StateDisabled
	}
	return next == s+1
}

// Maintainer is the protocol every index kind implements.
type Maintainer interface {
	Descriptor() Descriptor

	// Update reconciles old -> new under tx. (nil, r) is insert, (r, nil) is
	// delete, (r, r') is update; effects are idempotent across retries and
	// fully transactional.
	Update(ctx context.Context, tx kv.Transaction, old, new record.Record) error

	// ScanItem is used by the online builder: equivalent to
	// Update(nil, rec) but skips uniqueness checks, recording violations via
	// tracker instead of failing the transaction.
	ScanItem(ctx context.Context, tx kv.Transaction, rec record.Record, tracker ViolationRecorder) error

	// ComputeKeys is pure; used by the scrubber to verify entries exist.
	ComputeKeys(rec record.Record) ([][]byte, error)
}

// ViolationRecorder is the narrow contract ScanItem needs from the
// uniqueness tracker: violations found during a scan are appended to a
// tracker subspace rather than failing the scan. Kept here rather than
// importing package indexer to avoid a dependency cycle (indexer imports
// index).
type ViolationRecorder interface {
	Record(ctx context.Context, tx kv.Transaction, indexName string, value []byte, existingPK, newPK kv.Tuple) error
}
