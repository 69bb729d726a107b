// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus

import (
	"github.com/bitmark-inc/tangled/message"
	"github.com/bitmark-inc/tangled/metadata"
)

// Kind - the type of an event
type Kind int

// all event kinds
const (
	MessageParsed Kind = iota
	ParsingFailed
	MessageRejected
	MessageSolidified
	MessageReferenced
	ConflictSet
	TipAdded
	TipRemoved
)

func (k Kind) String() string {
	switch k {
	case MessageParsed:
		return "MessageParsed"
	case ParsingFailed:
		return "ParsingFailed"
	case MessageRejected:
		return "MessageRejected"
	case MessageSolidified:
		return "MessageSolidified"
	case MessageReferenced:
		return "MessageReferenced"
	case ConflictSet:
		return "ConflictSet"
	case TipAdded:
		return "TipAdded"
	case TipRemoved:
		return "TipRemoved"
	default:
		return "*unknown*"
	}
}

// Event - one state transition
//
// only the fields relevant to the kind are set: Reason for
// MessageRejected and ConflictSet, MilestoneIndex for
// MessageReferenced, Err for ParsingFailed
type Event struct {
	Kind           Kind
	Id             message.Id
	Reason         metadata.ConflictReason
	MilestoneIndex uint32
	Err            error
}
