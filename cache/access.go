// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"github.com/bitmark-inc/tangled/fault"
	"github.com/bitmark-inc/tangled/message"
	"github.com/bitmark-inc/tangled/metadata"
)

// Insert - add a message and its initial metadata
//
// returns false if the id is already known, leaving the existing
// entry untouched; a known id with different content also returns
// fault.ErrDuplicateMismatch
func (c *Cache) Insert(id message.Id, msg *message.Message, meta metadata.Metadata) (bool, error) {
	s := c.shard(id)

	for {
		if e := c.lookup(id); nil != e {
			retry, err := c.duplicate(e, msg)
			if retry {
				continue
			}
			return false, err
		}

		s.reserve.Lock()
		if e := c.lookup(id); nil != e {
			s.reserve.Unlock()
			continue
		}

		found, err := c.backend.Metadata().Has(id[:])
		if nil != err {
			s.reserve.Unlock()
			return false, err
		}
		if found {
			s.reserve.Unlock()
			return false, c.storedDuplicate(id, msg)
		}

		// the new entry is locked before it becomes visible so that
		// readers wait for the write to finish
		e := &entry{
			message:  msg,
			metadata: meta,
		}
		e.Lock()
		s.Lock()
		s.entries[id] = e
		s.Unlock()
		s.reserve.Unlock()
		c.addResident(1)

		if err := c.persist(id, e); nil != err {
			c.rollback(id, e)
			e.Unlock()
			return false, err
		}

		e.persisted = true
		queue := e.metadata.IsReferenced()
		e.queued = queue
		e.Unlock()

		c.log.Debugf("inserted: %v", id)
		if queue {
			c.settled.push(id)
		}
		c.evict()
		return true, nil
	}
}

// write message, children edges and finally the metadata marker;
// called with the entry locked
func (c *Cache) persist(id message.Id, e *entry) error {
	if err := c.backend.Messages().Insert(id[:], e.message.Pack()); nil != err {
		return err
	}
	for _, parent := range e.message.Parents {
		if err := c.backend.Children().Insert(edgeKey(parent, id), []byte{}); nil != err {
			return err
		}
	}
	return c.backend.Metadata().Insert(id[:], e.metadata.Pack())
}

// undo a failed insert; called with the entry locked
func (c *Cache) rollback(id message.Id, e *entry) {
	e.removed = true
	s := c.shard(id)
	s.Lock()
	delete(s.entries, id)
	s.Unlock()
	c.addResident(-1)

	// without the metadata marker these are invisible, removing
	// them only keeps the tables tidy
	if err := c.backend.Messages().Delete(id[:]); nil != err {
		c.log.Warnf("rollback: %v  message error: %s", id, err)
	}
	for _, parent := range e.message.Parents {
		if err := c.backend.Children().Delete(edgeKey(parent, id)); nil != err {
			c.log.Warnf("rollback: %v  edge error: %s", id, err)
		}
	}
}

// compare a duplicate against a resident entry, true means the
// resident entry was rolled back and the insert should retry
func (c *Cache) duplicate(e *entry, msg *message.Message) (bool, error) {
	e.Lock()
	removed := e.removed
	e.Unlock()
	if removed {
		return true, nil
	}
	if !e.message.Equal(msg) {
		return false, fault.ErrDuplicateMismatch
	}
	return false, nil
}

func (c *Cache) storedDuplicate(id message.Id, msg *message.Message) error {
	record, err := c.backend.Messages().Fetch(id[:])
	if nil != err {
		return err
	}
	if nil == record {
		return nil
	}
	stored, err := message.Unpack(record)
	if nil != err {
		return err
	}
	if !stored.Equal(msg) {
		return fault.ErrDuplicateMismatch
	}
	return nil
}

// Get - the message for an id, nil if unknown
func (c *Cache) Get(id message.Id) (*message.Message, error) {
	e, fetched, err := c.acquire(id)
	if nil == e {
		return nil, err
	}
	msg := e.message
	e.Unlock()
	c.release(fetched)
	return msg, nil
}

// GetMetadata - a copy of the metadata for an id, nil if unknown
func (c *Cache) GetMetadata(id message.Id) (*metadata.Metadata, error) {
	_, meta, err := c.GetAll(id)
	return meta, err
}

// GetAll - message and metadata copy together, nil if unknown
func (c *Cache) GetAll(id message.Id) (*message.Message, *metadata.Metadata, error) {
	e, fetched, err := c.acquire(id)
	if nil == e {
		return nil, nil, err
	}
	msg := e.message
	meta := e.metadata
	e.Unlock()
	c.release(fetched)
	return msg, &meta, nil
}

// UpdateMetadata - apply a mutation to the metadata of an id
//
// the mutation receives a copy and must not call back into the cache
// for the same id; fields that are already settled
// (timestamps, milestone index, conflict reason, permanent flags)
// keep their value, the rest of the mutation is applied. Returns the
// resulting metadata, or nil if the id is unknown.
func (c *Cache) UpdateMetadata(id message.Id, mutate func(*metadata.Metadata)) (*metadata.Metadata, error) {
	e, fetched, err := c.acquire(id)
	if nil == e {
		return nil, err
	}

	candidate := e.metadata
	mutate(&candidate)

	merged, reverted := e.metadata.Merge(candidate)
	if reverted {
		rejectedReverts.Inc()
		c.log.Debugf("update: %v  settled field revert ignored", id)
	}

	queue := false
	if merged != e.metadata {
		queue = !e.queued && merged.IsReferenced()
		e.metadata = merged
		e.dirty = true
	}
	if queue {
		e.queued = true
	}
	result := e.metadata
	e.Unlock()

	if queue {
		c.settled.push(id)
	}
	c.release(fetched || queue)
	return &result, nil
}

// Contains - check memory then storage
//
// a resident entry still being written is waited for, one that was
// rolled back or evicted defers to storage
func (c *Cache) Contains(id message.Id) (bool, error) {
	if e := c.lookup(id); nil != e {
		e.Lock()
		present := e.persisted && !e.removed
		e.Unlock()
		if present {
			return true, nil
		}
	}
	return c.backend.Metadata().Has(id[:])
}

// Children - ids of all known messages naming id as a parent
func (c *Cache) Children(id message.Id) ([]message.Id, error) {
	children := make([]message.Id, 0)
	err := c.backend.Children().Map(id[:], func(key []byte, value []byte) error {
		child, err := message.IdFromBytes(key[message.IdLength:])
		if nil != err {
			return err
		}
		children = append(children, child)
		return nil
	})
	if nil != err {
		return nil, err
	}
	return children, nil
}

// a committed entry, locked, or nil if the id is unknown
//
// an entry seen while its insert is still writing is waited for; one
// that was rolled back or evicted meanwhile is looked up again. The
// flag reports a read through, the caller passes it to release once
// the entry is unlocked.
func (c *Cache) acquire(id message.Id) (*entry, bool, error) {
	fetched := false
	for {
		e, loaded, err := c.load(id)
		if nil == e {
			c.release(fetched)
			return nil, false, err
		}
		fetched = fetched || loaded

		e.Lock()
		if !e.removed && e.persisted {
			return e, fetched, nil
		}
		e.Unlock()
	}
}

// restore capacity after a read through or a newly settled entry,
// only once the caller has unlocked its entry
func (c *Cache) release(grown bool) {
	if grown {
		c.evict()
	}
}

// resident entry, or read through from storage
//
// concurrent misses on one id share a single storage read; the flag
// is true for a read through
func (c *Cache) load(id message.Id) (*entry, bool, error) {
	if e := c.lookup(id); nil != e {
		cacheHits.Inc()
		return e, false, nil
	}
	cacheMisses.Inc()

	v, err, _ := c.loads.Do(string(id[:]), func() (interface{}, error) {
		return c.fetch(id)
	})
	if nil != err {
		return nil, false, err
	}
	e := v.(*entry)
	return e, nil != e, nil
}

func (c *Cache) fetch(id message.Id) (*entry, error) {
	s := c.shard(id)

	// hold off inserts and evictions of this shard while the
	// storage view is copied into memory
	s.reserve.Lock()
	defer s.reserve.Unlock()

	if e := c.lookup(id); nil != e {
		return e, nil
	}

	metaRecord, err := c.backend.Metadata().Fetch(id[:])
	if nil != err {
		return nil, err
	}
	if nil == metaRecord {
		return nil, nil
	}
	msgRecord, err := c.backend.Messages().Fetch(id[:])
	if nil != err {
		return nil, err
	}
	if nil == msgRecord {
		c.log.Warnf("fetch: %v  metadata without message", id)
		return nil, nil
	}

	meta, err := metadata.Unpack(metaRecord)
	if nil != err {
		return nil, err
	}
	msg, err := message.Unpack(msgRecord)
	if nil != err {
		return nil, err
	}

	e := &entry{
		message:   msg,
		metadata:  meta,
		persisted: true,
		queued:    meta.IsReferenced(),
	}
	s.Lock()
	s.entries[id] = e
	s.Unlock()
	c.addResident(1)

	if e.queued {
		c.settled.push(id)
	}
	return e, nil
}

// children table key
func edgeKey(parent message.Id, child message.Id) []byte {
	key := make([]byte, 2*message.IdLength)
	copy(key, parent[:])
	copy(key[message.IdLength:], child[:])
	return key
}
