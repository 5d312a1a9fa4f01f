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

// Package stats implements the two mergeable estimators the cost model's
// selectivities are built from: HyperLogLog cardinality estimation and a
// t-digest quantile sketch. Both have value semantics — Merge returns a new
// estimator rather than mutating in place.
package stats

import (
	"math"
	"math/bits"

	"github.com/erigontech/recordcore/rhash"
)

// Precision is fixed at 14 (16384 registers).
const Precision = 14

// NumRegisters is 2^Precision.
const NumRegisters = 1 << Precision

// HyperLogLog is a precision-14 cardinality estimator over 8-bit registers.
type HyperLogLog struct {
	registers [NumRegisters]uint8
}

// NewHyperLogLog returns an empty estimator.
func NewHyperLogLog() *HyperLogLog {
	return &HyperLogLog{}
}

// Add folds a value into the sketch.
func (h *HyperLogLog) Add(v any) {
	h.AddHash(rhash.HashValue(v))
}

// AddHash folds a precomputed 64-bit hash into the sketch; exposed so
// callers who already hash a value once (e.g. to also dedup) don't pay for
// hashing twice.
func (h *HyperLogLog) AddHash(hash uint64) {
	idx := hash >> (64 - Precision)
	rest := hash << Precision // remaining (64-Precision) bits, left-justified
	rho := uint8(bits.LeadingZeros64(rest)) + 1
	if rho > h.registers[idx] {
		h.registers[idx] = rho
	}
}

// alpha is the bias-correction constant for m=16384 registers:
// alpha ≈ 0.7213 / (1 + 1.079/m).
func alpha() float64 {
	m := float64(NumRegisters)
	return 0.7213 / (1 + 1.079/m)
}

// Estimate returns the cardinality estimate, applying small/large range
// corrections around the raw harmonic-mean estimator.
func (h *HyperLogLog) Estimate() uint64 {
	m := float64(NumRegisters)
	sum := 0.0
	zeros := 0
	for _, r := range h.registers {
		sum += 1.0 / math.Pow(2, float64(r))
		if r == 0 {
			zeros++
		}
	}
	raw := alpha() * m * m / sum

	switch {
	case raw <= 2.5*m && zeros > 0:
		return uint64(m * math.Log(m/float64(zeros)))
	case raw <= math.Pow(2, 32)/30:
		return uint64(raw)
	default:
		// Large-range correction for 64-bit hashes.
		return uint64(-math.Pow(2, 64) * math.Log(1-raw/math.Pow(2, 64)))
	}
}

// Merge returns a new sketch whose registers are the element-wise max of h
// and other, the standard HLL merge rule. Mergeable and idempotent:
// h.Merge(h) == h.
func (h *HyperLogLog) Merge(other *HyperLogLog) *HyperLogLog {
	out := &HyperLogLog{}
	for i := range h.registers {
		m := h.registers[i]
		if other.registers[i] > m {
			m = other.registers[i]
		}
		out.registers[i] = m
	}
	return out
}

// Clone returns an independent copy, preserving value semantics for callers
// that want to keep accumulating into a fresh sketch.
func (h *HyperLogLog) Clone() *HyperLogLog {
	out := &HyperLogLog{}
	out.registers = h.registers
	return out
}

// MarshalBinary serializes the raw register array for persistence.
func (h *HyperLogLog) MarshalBinary() ([]byte, error) {
	return append([]byte{}, h.registers[:]...), nil
}

// UnmarshalBinary is the inverse of MarshalBinary.
func (h *HyperLogLog) UnmarshalBinary(data []byte) error {
	if len(data) != NumRegisters {
		return errRegisterCount
	}
	copy(h.registers[:], data)
	return nil
}

var errRegisterCount = registerCountError{}

type registerCountError struct{}

func (registerCountError) Error() string { return "hyperloglog: register array has wrong length" }
