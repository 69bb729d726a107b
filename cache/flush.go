// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/tangled/message"
)

// DefaultFlushInterval - period of the background flusher
const DefaultFlushInterval = 5 * time.Second

// Flush - write all dirty metadata to storage
//
// every dirty entry is attempted, the first error is returned
func (c *Cache) Flush() error {
	var firstErr error
	count := 0
	for _, s := range c.shards {
		s.RLock()
		ids := make([]message.Id, 0, len(s.entries))
		entries := make([]*entry, 0, len(s.entries))
		for id, e := range s.entries {
			ids = append(ids, id)
			entries = append(entries, e)
		}
		s.RUnlock()

		for i, e := range entries {
			written, err := c.flushEntry(ids[i], e)
			if nil != err && nil == firstErr {
				firstErr = err
			}
			if written {
				count += 1
			}
		}
	}
	if count > 0 {
		c.log.Debugf("flushed: %d", count)
	}
	return firstErr
}

// the entry lock is held across the write so a concurrent update
// cannot be overwritten by an older record
func (c *Cache) flushEntry(id message.Id, e *entry) (bool, error) {
	e.Lock()
	defer e.Unlock()

	if !e.dirty || !e.persisted || e.removed {
		return false, nil
	}
	if err := c.backend.Metadata().Insert(id[:], e.metadata.Pack()); nil != err {
		return false, err
	}
	e.dirty = false
	flushedRecords.Inc()
	return true, nil
}

// Close - flush and drop all resident entries
func (c *Cache) Close() error {
	err := c.Flush()
	if nil != err {
		return err
	}
	for _, s := range c.shards {
		s.Lock()
		n := len(s.entries)
		for _, e := range s.entries {
			e.Lock()
			e.removed = true
			e.Unlock()
		}
		s.entries = make(map[message.Id]*entry)
		s.Unlock()
		c.addResident(-int64(n))
	}
	c.log.Info("closed")
	return nil
}

// Flusher - background process writing dirty metadata periodically
type Flusher struct {
	cache    *Cache
	interval time.Duration
	log      *logger.L
}

// NewFlusher - create the flusher process for a cache
func NewFlusher(c *Cache, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Flusher{
		cache:    c,
		interval: interval,
		log:      logger.New("flusher"),
	}
}

// Run - flush every interval until shutdown
func (f *Flusher) Run(args interface{}, shutdown <-chan struct{}) {
	f.log.Info("starting…")
	ticker := time.NewTicker(f.interval)
loop:
	for {
		select {
		case <-ticker.C:
			if err := f.cache.Flush(); nil != err {
				f.log.Warnf("flush error: %s", err)
			}
		case <-shutdown:
			break loop
		}
	}
	ticker.Stop()
	f.log.Info("stopped")
}
