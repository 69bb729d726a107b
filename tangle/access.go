// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tangle

import (
	"github.com/bitmark-inc/tangled/fault"
	"github.com/bitmark-inc/tangled/message"
	"github.com/bitmark-inc/tangled/messagebus"
	"github.com/bitmark-inc/tangled/metadata"
	"github.com/bitmark-inc/tangled/traversal"
)

// NewMetadata - fresh metadata arriving now
func (t *Tangle) NewMetadata() metadata.Metadata {
	return metadata.New(t.timestamp())
}

// Insert - add a message under its computed id
func (t *Tangle) Insert(msg *message.Message, meta metadata.Metadata) (bool, error) {
	return t.InsertWithId(msg.Id(), msg, meta)
}

// InsertWithId - add a message whose id is already known
//
// returns false for a message already present, with
// fault.ErrDuplicateMismatch if the stored content differs. The new
// message replaces its parents in the tip pool. If the stored edges
// cannot be read to decide whether the message itself is a tip, it
// stays inserted and true is returned with the backend error.
func (t *Tangle) InsertWithId(id message.Id, msg *message.Message, meta metadata.Metadata) (bool, error) {
	if err := t.enter(); nil != err {
		return false, err
	}
	defer t.leave()

	if err := msg.Validate(); nil != err {
		return false, err
	}
	if msg.Id() != id {
		return false, fault.ErrIdMismatch
	}

	// the child becomes visible and its parents stop being tips
	// before any tip reader can look again
	t.commit.RLock()
	inserted, err := t.cache.Insert(id, msg, meta)
	if nil != err || !inserted {
		t.commit.RUnlock()
		return false, err
	}
	added, removed, err := t.tips.Attach(id, msg.Parents)
	t.commit.RUnlock()

	t.bus.Publish(messagebus.Event{Kind: messagebus.MessageParsed, Id: id})
	for _, parent := range removed {
		t.bus.Publish(messagebus.Event{Kind: messagebus.TipRemoved, Id: parent})
	}
	if nil != err {
		// the message is stored, only its tip status is unknown
		t.log.Warnf("insert: %v  tip check error: %s", id, err)
		return true, fault.NewBackendError("tip check", err)
	}
	if added {
		t.bus.Publish(messagebus.Event{Kind: messagebus.TipAdded, Id: id})
	}
	return true, nil
}

// Get - a message, nil if unknown
func (t *Tangle) Get(id message.Id) (*message.Message, error) {
	if err := t.enter(); nil != err {
		return nil, err
	}
	defer t.leave()
	return t.cache.Get(id)
}

// GetMetadata - a copy of the metadata, nil if unknown
func (t *Tangle) GetMetadata(id message.Id) (*metadata.Metadata, error) {
	if err := t.enter(); nil != err {
		return nil, err
	}
	defer t.leave()
	return t.cache.GetMetadata(id)
}

// GetAll - message and metadata together, nils if unknown
func (t *Tangle) GetAll(id message.Id) (*message.Message, *metadata.Metadata, error) {
	if err := t.enter(); nil != err {
		return nil, nil, err
	}
	defer t.leave()
	return t.cache.GetAll(id)
}

// Contains - check for a message in memory or storage
func (t *Tangle) Contains(id message.Id) (bool, error) {
	if err := t.enter(); nil != err {
		return false, err
	}
	defer t.leave()
	return t.cache.Contains(id)
}

// Children - ids of the messages naming id as a parent
func (t *Tangle) Children(id message.Id) ([]message.Id, error) {
	if err := t.enter(); nil != err {
		return nil, err
	}
	defer t.leave()
	return t.cache.Children(id)
}

// UpdateMetadata - apply a mutation to the metadata of an id
//
// attempts to revert settled fields are ignored; the other parts of
// the mutation still apply. Each transition to solid, referenced or
// conflicting is published once. Returns nil for an unknown id.
func (t *Tangle) UpdateMetadata(id message.Id, mutate func(*metadata.Metadata)) (*metadata.Metadata, error) {
	if err := t.enter(); nil != err {
		return nil, err
	}
	defer t.leave()
	after, _, err := t.update(id, mutate)
	return after, err
}

// the ungated update, also reports the state before the mutation
func (t *Tangle) update(id message.Id, mutate func(*metadata.Metadata)) (*metadata.Metadata, metadata.Metadata, error) {
	var before metadata.Metadata
	after, err := t.cache.UpdateMetadata(id, func(m *metadata.Metadata) {
		before = *m
		mutate(m)
	})
	if nil == after {
		return nil, before, err
	}

	if !before.IsSolid() && after.IsSolid() {
		t.bus.Publish(messagebus.Event{Kind: messagebus.MessageSolidified, Id: id})
	}
	if !before.IsReferenced() && after.IsReferenced() {
		index, _ := after.MilestoneIndex()
		t.bus.Publish(messagebus.Event{Kind: messagebus.MessageReferenced, Id: id, MilestoneIndex: index})
	}
	if metadata.ConflictNone == before.Conflict() && metadata.ConflictNone != after.Conflict() {
		t.bus.Publish(messagebus.Event{Kind: messagebus.ConflictSet, Id: id, Reason: after.Conflict()})
	}
	return after, before, nil
}

// Tips - snapshot of the current tips
func (t *Tangle) Tips() ([]message.Id, error) {
	if err := t.enter(); nil != err {
		return nil, err
	}
	defer t.leave()

	t.commit.Lock()
	defer t.commit.Unlock()
	return t.tips.Tips(), nil
}

// SelectTips - up to count distinct tips chosen at random
func (t *Tangle) SelectTips(count int) ([]message.Id, error) {
	if err := t.enter(); nil != err {
		return nil, err
	}
	defer t.leave()
	if count < 0 {
		return nil, fault.ErrInvalidCount
	}

	t.commit.Lock()
	defer t.commit.Unlock()
	return t.tips.SelectTips(count), nil
}

// IsTip - check tip membership
func (t *Tangle) IsTip(id message.Id) bool {
	t.commit.Lock()
	defer t.commit.Unlock()
	return t.tips.IsTip(id)
}

// CleanTips - run one cleaner pass now, returns the number of tips
// removed
func (t *Tangle) CleanTips() (int, error) {
	if err := t.enter(); nil != err {
		return 0, err
	}
	defer t.leave()
	return t.cleaner.Pass(), nil
}

// Walk - a lazy breadth first walk from start
//
// ancestor walks stop at the solid entry points. Each step of the
// walk fails with fault.ErrNotRunning once the tangle is shut down.
func (t *Tangle) Walk(start message.Id, direction traversal.Direction, shouldContinue traversal.Predicate) (*traversal.Walker, error) {
	if err := t.enter(); nil != err {
		return nil, err
	}
	defer t.leave()
	return traversal.New(gatedGraph{t}, start, direction, shouldContinue, t.entryPoints.contains)
}

// the graph seen by walks handed out to callers
type gatedGraph struct {
	t *Tangle
}

func (g gatedGraph) GetAll(id message.Id) (*message.Message, *metadata.Metadata, error) {
	return g.t.GetAll(id)
}

func (g gatedGraph) Children(id message.Id) ([]message.Id, error) {
	return g.t.Children(id)
}
