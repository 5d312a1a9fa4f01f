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

// Package cursor implements the continuation-token wire format and the
// Cursor state machine that wraps a physical plan with paginated,
// transaction-bounded execution.
package cursor

import (
	"encoding/base64"

	"github.com/erigontech/recordcore/internal/apperr"
	"github.com/erigontech/recordcore/kv"
)

// CurrentVersion is the only continuation-state wire version this build
// writes or accepts.
const CurrentVersion = 1

// ScanType identifies which physical operator produced a continuation
// state, so a decoded token can be validated against the plan resuming it.
type ScanType uint8

const (
	ScanTypeIndexSeek ScanType = iota
	ScanTypeRangeScan
	ScanTypeUnion
	ScanTypeIntersection
	ScanTypeRankTopK
	ScanTypeVectorSearch
)

// State is the decoded continuation state carried between cursor pages.
type State struct {
	Version         uint8
	ScanType        ScanType
	LastKey         []byte
	Reverse         bool
	RemainingLimit  int64 // -1 = unlimited
	OriginalLimit   int64
	PlanFingerprint []byte
	OperatorState   []byte // optional, operator-specific (e.g. Union's seen-set)
}

// Unlimited is the sentinel RemainingLimit value meaning "no limit".
const Unlimited int64 = -1

// Encode packs s into the tuple wire format and base64url-encodes it for
// transport. An empty byte slice (before encoding) represents end-of-results
// and must be produced only via EndOfResultsToken.
func Encode(s State) string {
	t := kv.Tuple{
		int64(s.Version),
		int64(s.ScanType),
		[]byte(s.LastKey),
		s.Reverse,
		s.RemainingLimit,
		s.OriginalLimit,
		[]byte(s.PlanFingerprint),
	}
	if s.OperatorState != nil {
		t = append(t, []byte(s.OperatorState))
	}
	return base64.URLEncoding.EncodeToString(kv.Pack(t))
}

// EndOfResultsToken is the special token whose decoded wire bytes are
// empty, representing EndOfResults regardless of any other field.
const EndOfResultsToken = ""

// Decode parses token and validates it against the resuming plan's
// scanType and planFingerprint. An EndOfResultsToken decodes to
// (State{}, true, nil); any other malformed input is a CursorError.
func Decode(token string, scanType ScanType, planFingerprint []byte) (state State, endOfResults bool, err error) {
	if token == EndOfResultsToken {
		return State{}, true, nil
	}
	raw, decErr := base64.URLEncoding.DecodeString(token)
	if decErr != nil {
		return State{}, false, apperr.NewCursorError(apperr.InvalidTokenFormat, "base64 decode failed: %v", decErr)
	}
	if len(raw) == 0 {
		return State{}, true, nil
	}
	t, unpackErr := kv.Unpack(raw)
	if unpackErr != nil {
		return State{}, false, apperr.NewCursorError(apperr.CorruptedToken, "tuple decode failed: %v", unpackErr)
	}
	if len(t) != 7 && len(t) != 8 {
		return State{}, false, apperr.NewCursorError(apperr.CorruptedToken, "expected 7 or 8 tuple elements, got %d", len(t))
	}

	version, ok := t[0].(int64)
	if !ok {
		return State{}, false, apperr.NewCursorError(apperr.CorruptedToken, "version field is not an integer")
	}
	if version != CurrentVersion {
		return State{}, false, apperr.NewCursorError(apperr.VersionMismatch, "token version %d != current %d", version, CurrentVersion)
	}

	rawScanType, ok := t[1].(int64)
	if !ok {
		return State{}, false, apperr.NewCursorError(apperr.CorruptedToken, "scan_type field is not an integer")
	}
	if ScanType(rawScanType) != scanType {
		return State{}, false, apperr.NewCursorError(apperr.ScanTypeMismatch, "token scan_type %d != plan scan_type %d", rawScanType, scanType)
	}

	lastKey, _ := t[2].([]byte)
	reverse, ok := t[3].(bool)
	if !ok {
		return State{}, false, apperr.NewCursorError(apperr.CorruptedToken, "reverse field is not a bool")
	}
	remaining, ok := t[4].(int64)
	if !ok {
		return State{}, false, apperr.NewCursorError(apperr.CorruptedToken, "remaining_limit field is not an integer")
	}
	original, ok := t[5].(int64)
	if !ok {
		return State{}, false, apperr.NewCursorError(apperr.CorruptedToken, "original_limit field is not an integer")
	}
	fingerprint, _ := t[6].([]byte)
	if !bytesEqual(fingerprint, planFingerprint) {
		return State{}, false, apperr.NewCursorError(apperr.PlanMismatch, "token plan_fingerprint does not match resuming plan")
	}

	var operatorState []byte
	if len(t) == 8 {
		operatorState, _ = t[7].([]byte)
	}

	return State{
		Version:         uint8(version),
		ScanType:        scanType,
		LastKey:         lastKey,
		Reverse:         reverse,
		RemainingLimit:  remaining,
		OriginalLimit:   original,
		PlanFingerprint: fingerprint,
		OperatorState:   operatorState,
	}, false, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
