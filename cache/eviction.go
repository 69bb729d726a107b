// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"sync"
	"sync/atomic"

	"github.com/bitmark-inc/tangled/message"
)

// ids in the order their entries were settled
//
// an id may be stale (already evicted or reloaded); eviction checks
// the entry itself
type settledQueue struct {
	sync.Mutex
	ids []message.Id
}

func (q *settledQueue) push(id message.Id) {
	q.Lock()
	q.ids = append(q.ids, id)
	q.Unlock()
}

func (q *settledQueue) pop() (message.Id, bool) {
	q.Lock()
	defer q.Unlock()
	if 0 == len(q.ids) {
		return message.NullId, false
	}
	id := q.ids[0]
	q.ids[0] = message.NullId
	q.ids = q.ids[1:]
	return id, true
}

// drop settled entries while over capacity
func (c *Cache) evict() {
	for atomic.LoadInt64(&c.resident) > c.capacity {
		id, ok := c.settled.pop()
		if !ok {
			return
		}
		if err := c.evictOne(id); nil != err {
			c.log.Warnf("evict: %v  error: %s", id, err)
			c.settled.push(id)
			return
		}
	}
}

// a dirty entry is written first, on failure it stays resident
func (c *Cache) evictOne(id message.Id) error {
	s := c.shard(id)
	s.reserve.Lock()
	defer s.reserve.Unlock()

	e := c.lookup(id)
	if nil == e {
		return nil
	}

	e.Lock()
	defer e.Unlock()

	if !e.persisted || !e.metadata.IsReferenced() {
		e.queued = false
		return nil
	}

	if e.dirty {
		if err := c.backend.Metadata().Insert(id[:], e.metadata.Pack()); nil != err {
			return err
		}
		e.dirty = false
		flushedRecords.Inc()
	}

	e.removed = true
	s.Lock()
	delete(s.entries, id)
	s.Unlock()
	c.addResident(-1)
	cacheEvictions.Inc()

	c.log.Debugf("evicted: %v", id)
	return nil
}
