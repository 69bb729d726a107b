// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tangle

import (
	"github.com/bitmark-inc/tangled/message"
	"github.com/bitmark-inc/tangled/messagebus"
	"github.com/bitmark-inc/tangled/metadata"
	"github.com/bitmark-inc/tangled/traversal"
)

// PropagateSolidity - solidify id and its descendants
//
// a message becomes solid once every parent is solid or a solid entry
// point. A child is examined again each time one of its parents
// becomes solid, so it is not enough to visit it once. Returns the ids
// that were newly marked solid.
func (t *Tangle) PropagateSolidity(id message.Id) ([]message.Id, error) {
	if err := t.enter(); nil != err {
		return nil, err
	}
	defer t.leave()

	solidified := make([]message.Id, 0)
	queue := []message.Id{id}
	for 0 != len(queue) {
		current := queue[0]
		queue = queue[1:]

		meta, err := t.cache.GetMetadata(current)
		if nil != err {
			return solidified, err
		}
		if nil == meta {
			continue
		}

		if !meta.IsSolid() {
			solid, err := t.parentsSolid(current)
			if nil != err {
				return solidified, err
			}
			if !solid {
				continue
			}
			after, before, err := t.update(current, func(m *metadata.Metadata) {
				m.Solidify(t.timestamp())
			})
			if nil != err {
				return solidified, err
			}
			if nil == after || before.IsSolid() {
				continue
			}
			solidified = append(solidified, current)
		} else if current != id {
			// its descendants were handled when it became solid
			continue
		}

		children, err := t.cache.Children(current)
		if nil != err {
			return solidified, err
		}
		queue = append(queue, children...)
	}

	if 0 != len(solidified) {
		t.log.Debugf("solidified from: %v  count: %d", id, len(solidified))
	}
	return solidified, nil
}

func (t *Tangle) parentsSolid(id message.Id) (bool, error) {
	msg, err := t.cache.Get(id)
	if nil != err || nil == msg {
		return false, err
	}
	for _, parent := range msg.Parents {
		if t.entryPoints.contains(parent) {
			continue
		}
		meta, err := t.cache.GetMetadata(parent)
		if nil != err {
			return false, err
		}
		if nil == meta || !meta.IsSolid() {
			return false, nil
		}
	}
	return true, nil
}

// ReferenceCone - settle the past cone of a milestone
//
// walks the ancestors of milestone assigning the reference timestamp
// and milestone index, not entering messages that are already
// referenced or solid entry points. Returns the ids referenced by
// this call.
func (t *Tangle) ReferenceCone(milestone message.Id, index uint32, timestamp uint64) ([]message.Id, error) {
	if err := t.enter(); nil != err {
		return nil, err
	}
	defer t.leave()

	referenced := make([]message.Id, 0)
	var failure error

	shouldContinue := func(current message.Id, meta *metadata.Metadata) bool {
		if meta.IsReferenced() {
			return false
		}
		after, before, err := t.update(current, func(m *metadata.Metadata) {
			if current == milestone {
				m.SetMilestone()
			}
			m.Reference(timestamp)
			m.SetMilestoneIndex(index)
		})
		if nil != err {
			failure = err
			return false
		}

		// a concurrent cone may have got there first
		if nil == after || before.IsReferenced() {
			return false
		}
		referenced = append(referenced, current)
		return true
	}

	w, err := traversal.New(t.cache, milestone, traversal.Ancestors, shouldContinue, t.entryPoints.contains)
	if nil != err {
		return nil, err
	}
	for w.Next() && nil == failure {
	}
	if nil != failure {
		return referenced, failure
	}
	if err := w.Err(); nil != err {
		return referenced, err
	}

	t.log.Infof("milestone: %d  id: %v  referenced: %d", index, milestone, len(referenced))
	return referenced, nil
}

// SetConflict - record why a message cannot be applied, the first
// reason set is kept
func (t *Tangle) SetConflict(id message.Id, reason metadata.ConflictReason) (*metadata.Metadata, error) {
	if err := t.enter(); nil != err {
		return nil, err
	}
	defer t.leave()
	after, _, err := t.update(id, func(m *metadata.Metadata) {
		m.SetConflict(reason)
	})
	return after, err
}

// Reject - announce that upstream validation refused a message, its
// conflict reason is recorded if the message is known
func (t *Tangle) Reject(id message.Id, reason metadata.ConflictReason) error {
	if err := t.enter(); nil != err {
		return err
	}
	defer t.leave()

	t.bus.Publish(messagebus.Event{Kind: messagebus.MessageRejected, Id: id, Reason: reason})

	_, _, err := t.update(id, func(m *metadata.Metadata) {
		m.SetConflict(reason)
	})
	return err
}

// ReportParsingFailed - announce bytes that could not be parsed into
// a message
func (t *Tangle) ReportParsingFailed(err error) error {
	if e := t.enter(); nil != e {
		return e
	}
	defer t.leave()
	t.bus.Publish(messagebus.Event{Kind: messagebus.ParsingFailed, Err: err})
	return nil
}
