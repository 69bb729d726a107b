// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"sync"
	"sync/atomic"

	"github.com/bitmark-inc/logger"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/bitmark-inc/tangled/message"
	"github.com/bitmark-inc/tangled/metadata"
	"github.com/bitmark-inc/tangled/storage"
)

const (
	shardCount = 256

	// DefaultCapacity - resident entries when none is configured
	DefaultCapacity = 100000
)

// one resident message
//
// the mutex serialises all access to one id; message is immutable
// and may be read without it
type entry struct {
	sync.Mutex
	message   *message.Message
	metadata  metadata.Metadata
	persisted bool // metadata commit marker is in storage
	dirty     bool // metadata differs from storage
	queued    bool // present in the settled FIFO
	removed   bool // evicted or rolled back, holders must reload
}

type shard struct {
	sync.RWMutex
	entries map[message.Id]*entry

	// serialises the absent-check and reservation of an insert
	// with eviction from this shard
	reserve sync.Mutex
}

// Cache - the graph cache
type Cache struct {
	backend  storage.Backend
	capacity int64
	shards   [shardCount]*shard
	resident int64
	settled  settledQueue
	loads    singleflight.Group
	log      *logger.L
}

// New - create a cache in front of a prepared backend
func New(backend storage.Backend, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		backend:  backend,
		capacity: int64(capacity),
		log:      logger.New("cache"),
	}
	for i := 0; i < shardCount; i += 1 {
		c.shards[i] = &shard{
			entries: make(map[message.Id]*entry),
		}
	}
	c.log.Infof("capacity: %d", capacity)
	return c
}

func (c *Cache) shard(id message.Id) *shard {
	return c.shards[xxhash.Sum64(id[:])%shardCount]
}

// resident entry or nil
func (c *Cache) lookup(id message.Id) *entry {
	s := c.shard(id)
	s.RLock()
	e := s.entries[id]
	s.RUnlock()
	return e
}

// Len - number of resident entries
func (c *Cache) Len() int {
	return int(atomic.LoadInt64(&c.resident))
}

// IsResident - check memory only
func (c *Cache) IsResident(id message.Id) bool {
	return nil != c.lookup(id)
}

func (c *Cache) addResident(n int64) {
	atomic.AddInt64(&c.resident, n)
	residentEntries.Add(float64(n))
}
