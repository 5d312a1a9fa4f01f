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

// Package apperr implements the error taxonomy of the persistence core:
// KV transient/fatal, codec, maintenance, cursor, planner and graph-algorithm
// errors, all wrapped with github.com/pkg/errors so a stack trace survives
// across transaction retries.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// KVError classifies an error raised by the KV store contract. Transient
// errors (conflict, commit-unknown, timeout) are retryable; fatal errors
// (corruption, permission) propagate immediately.
type KVError struct {
	Transient bool
	cause     error
}

func (e *KVError) Error() string {
	if e.Transient {
		return fmt.Sprintf("kv: transient: %v", e.cause)
	}
	return fmt.Sprintf("kv: fatal: %v", e.cause)
}

func (e *KVError) Unwrap() error { return e.cause }

// Retryable reports whether err should be retried by the backoff wrapper.
func Retryable(err error) bool {
	var kv *KVError
	if errors.As(err, &kv) {
		return kv.Transient
	}
	return false
}

// WrapTransient marks err as a retryable KV error.
func WrapTransient(err error) error {
	if err == nil {
		return nil
	}
	return &KVError{Transient: true, cause: errors.WithStack(err)}
}

// WrapFatal marks err as a non-retryable KV error.
func WrapFatal(err error) error {
	if err == nil {
		return nil
	}
	return &KVError{Transient: false, cause: errors.WithStack(err)}
}

// CodecError kinds.
type CodecErrorKind int

const (
	CorruptedTuple CodecErrorKind = iota
	KeyTooLarge
	UnsupportedType
	CorruptedCoveringValue
)

func (k CodecErrorKind) String() string {
	switch k {
	case CorruptedTuple:
		return "CorruptedTuple"
	case KeyTooLarge:
		return "KeyTooLarge"
	case UnsupportedType:
		return "UnsupportedType"
	case CorruptedCoveringValue:
		return "CorruptedCoveringValue"
	default:
		return "UnknownCodecError"
	}
}

type CodecError struct {
	Kind CodecErrorKind
	Msg  string
}

func (e *CodecError) Error() string { return fmt.Sprintf("codec: %s: %s", e.Kind, e.Msg) }

func NewCodecError(kind CodecErrorKind, format string, args ...any) error {
	return errors.WithStack(&CodecError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// Maintenance-time error types.
type UniquenessViolation struct {
	Index      string
	Value      string
	ExistingPK string
	NewPK      string
}

func (e *UniquenessViolation) Error() string {
	return fmt.Sprintf("uniqueness violation on index %q for value %q: existing pk %q, new pk %q",
		e.Index, e.Value, e.ExistingPK, e.NewPK)
}

type DimensionMismatch struct {
	Index    string
	Expected int
	Got      int
}

func (e *DimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch on index %q: expected %d, got %d", e.Index, e.Expected, e.Got)
}

type InvalidStructure struct {
	Reason string
}

func (e *InvalidStructure) Error() string { return fmt.Sprintf("invalid structure: %s", e.Reason) }

// CursorError kinds.
type CursorErrorKind int

const (
	InvalidTokenFormat CursorErrorKind = iota
	VersionMismatch
	CorruptedToken
	PlanMismatch
	ScanTypeMismatch
)

func (k CursorErrorKind) String() string {
	switch k {
	case InvalidTokenFormat:
		return "InvalidTokenFormat"
	case VersionMismatch:
		return "VersionMismatch"
	case CorruptedToken:
		return "CorruptedToken"
	case PlanMismatch:
		return "PlanMismatch"
	case ScanTypeMismatch:
		return "ScanTypeMismatch"
	default:
		return "UnknownCursorError"
	}
}

type CursorError struct {
	Kind CursorErrorKind
	Msg  string
}

func (e *CursorError) Error() string { return fmt.Sprintf("cursor: %s: %s", e.Kind, e.Msg) }

func NewCursorError(kind CursorErrorKind, format string, args ...any) error {
	return errors.WithStack(&CursorError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// PlannerError kinds.
type PlannerErrorKind int

const (
	NoViablePlan PlannerErrorKind = iota
	UnsupportedExpression
)

func (k PlannerErrorKind) String() string {
	switch k {
	case NoViablePlan:
		return "NoViablePlan"
	case UnsupportedExpression:
		return "UnsupportedExpression"
	default:
		return "UnknownPlannerError"
	}
}

type PlannerError struct {
	Kind PlannerErrorKind
	Msg  string
}

func (e *PlannerError) Error() string { return fmt.Sprintf("planner: %s: %s", e.Kind, e.Msg) }

func NewPlannerError(kind PlannerErrorKind, format string, args ...any) error {
	return errors.WithStack(&PlannerError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// GraphAlgorithmError kinds.
type GraphAlgorithmErrorKind int

const (
	IndexNotConfigured GraphAlgorithmErrorKind = iota
	IndexNotFound
)

func (k GraphAlgorithmErrorKind) String() string {
	switch k {
	case IndexNotConfigured:
		return "IndexNotConfigured"
	case IndexNotFound:
		return "IndexNotFound"
	default:
		return "UnknownGraphAlgorithmError"
	}
}

type GraphAlgorithmError struct {
	Kind GraphAlgorithmErrorKind
	Msg  string
}

func (e *GraphAlgorithmError) Error() string { return fmt.Sprintf("graph: %s: %s", e.Kind, e.Msg) }

func NewGraphAlgorithmError(kind GraphAlgorithmErrorKind, format string, args ...any) error {
	return errors.WithStack(&GraphAlgorithmError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}
