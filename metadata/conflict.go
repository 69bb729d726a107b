// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metadata

import (
	"github.com/bitmark-inc/tangled/fault"
)

// ConflictReason - why a message payload cannot be applied to the ledger
type ConflictReason uint8

// all possible conflict reasons
const (
	ConflictNone                             ConflictReason = 0
	ConflictInputAlreadySpent                ConflictReason = 1
	ConflictInputAlreadySpentInThisMilestone ConflictReason = 2
	ConflictInputNotFound                    ConflictReason = 3
	ConflictAmountMismatch                   ConflictReason = 4
	ConflictInvalidSignature                 ConflictReason = 5
	ConflictInvalidDustAllowance             ConflictReason = 6
	ConflictInvalidSemantics                 ConflictReason = 255
)

// ConflictReasonFromByte - validate a stored value
func ConflictReasonFromByte(b byte) (ConflictReason, error) {
	c := ConflictReason(b)
	if !c.IsKnown() {
		return ConflictNone, fault.ErrUnknownConflictReason
	}
	return c, nil
}

// IsKnown - member of the closed set of reasons
func (c ConflictReason) IsKnown() bool {
	switch c {
	case ConflictNone,
		ConflictInputAlreadySpent,
		ConflictInputAlreadySpentInThisMilestone,
		ConflictInputNotFound,
		ConflictAmountMismatch,
		ConflictInvalidSignature,
		ConflictInvalidDustAllowance,
		ConflictInvalidSemantics:
		return true
	default:
		return false
	}
}

// Resolve - combine the current conflict reason with a new one
//
// the first concrete reason wins; later evaluations are no-ops. An
// unknown candidate is ignored since it could never be read back.
func Resolve(current ConflictReason, candidate ConflictReason) ConflictReason {
	if ConflictNone == current && candidate.IsKnown() {
		return candidate
	}
	return current
}

func (c ConflictReason) String() string {
	switch c {
	case ConflictNone:
		return "none"
	case ConflictInputAlreadySpent:
		return "input-already-spent"
	case ConflictInputAlreadySpentInThisMilestone:
		return "input-already-spent-in-this-milestone"
	case ConflictInputNotFound:
		return "input-not-found"
	case ConflictAmountMismatch:
		return "created-consumed-amount-mismatch"
	case ConflictInvalidSignature:
		return "invalid-signature"
	case ConflictInvalidDustAllowance:
		return "invalid-dust-allowance"
	case ConflictInvalidSemantics:
		return "invalid-semantics"
	default:
		return "*unknown*"
	}
}
