// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metadata

import (
	"encoding/binary"

	"github.com/bitmark-inc/tangled/fault"
)

// Flags - boolean state bits
type Flags uint8

// flag bits
const (
	FlagSolid Flags = 1 << iota
	FlagMilestone
	FlagRequested
	FlagValid
)

// flags that can never be cleared once set
const permanentFlags = FlagSolid | FlagMilestone | FlagValid

// PackedLength - size of a packed record
const PackedLength = 1 + 4 + 8 + 8 + 8 + 4 + 4 + 1

// Metadata - per message mutable record
//
// timestamps are unix seconds, zero means unset
type Metadata struct {
	flags          Flags
	milestoneIndex uint32
	arrived        uint64
	solidified     uint64
	referenced     uint64
	omrsi          uint32
	ymrsi          uint32
	conflict       ConflictReason
}

// New - metadata for a message that arrived at the given time
func New(arrivalTimestamp uint64) Metadata {
	return Metadata{
		arrived: arrivalTimestamp,
	}
}

// Flags - the raw flag bits
func (m *Metadata) Flags() Flags {
	return m.flags
}

// ArrivalTimestamp - when the message was first seen
func (m *Metadata) ArrivalTimestamp() uint64 {
	return m.arrived
}

// IsSolid - all ancestors are known
func (m *Metadata) IsSolid() bool {
	return 0 != m.flags&FlagSolid
}

// SolidificationTimestamp - zero if not solid
func (m *Metadata) SolidificationTimestamp() uint64 {
	return m.solidified
}

// Solidify - mark solid, the first timestamp is kept
func (m *Metadata) Solidify(timestamp uint64) {
	m.flags |= FlagSolid
	if 0 == m.solidified {
		m.solidified = timestamp
	}
}

// IsReferenced - settled by a milestone
func (m *Metadata) IsReferenced() bool {
	return 0 != m.referenced
}

// ReferenceTimestamp - zero if not referenced
func (m *Metadata) ReferenceTimestamp() uint64 {
	return m.referenced
}

// Reference - settle the message, the first timestamp is kept
func (m *Metadata) Reference(timestamp uint64) {
	if 0 == m.referenced {
		m.referenced = timestamp
	}
}

// MilestoneIndex - the referencing milestone, false if none
func (m *Metadata) MilestoneIndex() (uint32, bool) {
	return m.milestoneIndex, 0 != m.milestoneIndex
}

// SetMilestoneIndex - associate with a milestone, the first index is kept
func (m *Metadata) SetMilestoneIndex(index uint32) {
	if 0 == m.milestoneIndex {
		m.milestoneIndex = index
	}
}

// IsMilestone - message is itself a milestone
func (m *Metadata) IsMilestone() bool {
	return 0 != m.flags&FlagMilestone
}

// SetMilestone - flag as a milestone
func (m *Metadata) SetMilestone() {
	m.flags |= FlagMilestone
}

// IsRequested - message was requested from the network
func (m *Metadata) IsRequested() bool {
	return 0 != m.flags&FlagRequested
}

// SetRequested - this flag may be toggled
func (m *Metadata) SetRequested(requested bool) {
	if requested {
		m.flags |= FlagRequested
	} else {
		m.flags &^= FlagRequested
	}
}

// IsValid - payload passed upstream validation
func (m *Metadata) IsValid() bool {
	return 0 != m.flags&FlagValid
}

// SetValid - flag as valid
func (m *Metadata) SetValid() {
	m.flags |= FlagValid
}

// RootSnapshotIndices - oldest and youngest milestone root snapshot index
func (m *Metadata) RootSnapshotIndices() (uint32, uint32, bool) {
	return m.omrsi, m.ymrsi, 0 != m.omrsi || 0 != m.ymrsi
}

// SetRootSnapshotIndices - both are always set together
func (m *Metadata) SetRootSnapshotIndices(omrsi uint32, ymrsi uint32) {
	m.omrsi = omrsi
	m.ymrsi = ymrsi
}

// Conflict - none unless a conflict was recorded
func (m *Metadata) Conflict() ConflictReason {
	return m.conflict
}

// SetConflict - record a conflict, the first concrete reason wins
// and unknown reasons are ignored
func (m *Metadata) SetConflict(reason ConflictReason) {
	m.conflict = Resolve(m.conflict, reason)
}

// Merge - apply a candidate record on top of the current one
//
// append only fields keep the current value once set; everything else
// comes from the candidate. The boolean is true if the candidate tried
// to revert any append only field or to set an unknown conflict
// reason.
func (m *Metadata) Merge(candidate Metadata) (Metadata, bool) {
	result := candidate
	reverted := false

	lost := m.flags & permanentFlags &^ candidate.flags
	if 0 != lost {
		reverted = true
		result.flags |= lost
	}

	if m.arrived != candidate.arrived && 0 != m.arrived {
		reverted = true
		result.arrived = m.arrived
	}

	if 0 != m.solidified && m.solidified != candidate.solidified {
		reverted = true
		result.solidified = m.solidified
	}

	if 0 != m.referenced && m.referenced != candidate.referenced {
		reverted = true
		result.referenced = m.referenced
	}

	if 0 != m.milestoneIndex && m.milestoneIndex != candidate.milestoneIndex {
		reverted = true
		result.milestoneIndex = m.milestoneIndex
	}

	if ConflictNone != m.conflict && m.conflict != candidate.conflict {
		reverted = true
	} else if !candidate.conflict.IsKnown() {
		reverted = true
	}
	result.conflict = Resolve(m.conflict, candidate.conflict)

	return result, reverted
}

// Pack - storage record form
func (m *Metadata) Pack() []byte {
	buffer := make([]byte, PackedLength)
	buffer[0] = byte(m.flags)
	binary.BigEndian.PutUint32(buffer[1:], m.milestoneIndex)
	binary.BigEndian.PutUint64(buffer[5:], m.arrived)
	binary.BigEndian.PutUint64(buffer[13:], m.solidified)
	binary.BigEndian.PutUint64(buffer[21:], m.referenced)
	binary.BigEndian.PutUint32(buffer[29:], m.omrsi)
	binary.BigEndian.PutUint32(buffer[33:], m.ymrsi)
	buffer[37] = byte(m.conflict)
	return buffer
}

// Unpack - rebuild from a storage record
func Unpack(record []byte) (Metadata, error) {
	if PackedLength != len(record) {
		return Metadata{}, fault.ErrTruncatedRecord
	}
	conflict, err := ConflictReasonFromByte(record[37])
	if nil != err {
		return Metadata{}, err
	}
	return Metadata{
		flags:          Flags(record[0]),
		milestoneIndex: binary.BigEndian.Uint32(record[1:]),
		arrived:        binary.BigEndian.Uint64(record[5:]),
		solidified:     binary.BigEndian.Uint64(record[13:]),
		referenced:     binary.BigEndian.Uint64(record[21:]),
		omrsi:          binary.BigEndian.Uint32(record[29:]),
		ymrsi:          binary.BigEndian.Uint32(record[33:]),
		conflict:       conflict,
	}, nil
}
