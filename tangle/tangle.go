// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tangle

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/tangled/background"
	"github.com/bitmark-inc/tangled/cache"
	"github.com/bitmark-inc/tangled/fault"
	"github.com/bitmark-inc/tangled/message"
	"github.com/bitmark-inc/tangled/messagebus"
	"github.com/bitmark-inc/tangled/storage"
	"github.com/bitmark-inc/tangled/tippool"
)

// Tangle - a running message graph
type Tangle struct {
	// operations hold the read side, Shutdown the write side
	gate      sync.RWMutex
	running   bool
	unflushed bool // stopped but the final write failed

	// inserts hold the read side from the cache commit until the
	// tip pool is updated, tip readers take the write side
	commit sync.RWMutex

	config      Config
	backend     storage.Backend
	cache       *cache.Cache
	tips        *tippool.Pool
	bus         *messagebus.Bus
	entryPoints *entryPoints
	cleaner     *Cleaner
	background  *background.T
	log         *logger.L
}

// Start - validate the backend and bring up a tangle
//
// a backend left corrupted by an unclean exit, or written by an
// incompatible version, is refused
func Start(config Config, backend storage.Backend) (*Tangle, error) {
	log := logger.New("tangle")

	if err := storage.Prepare(backend); nil != err {
		log.Criticalf("storage check failed: %s", err)
		return nil, err
	}

	// stays corrupted until a clean shutdown
	if err := backend.SetHealth(storage.Corrupted); nil != err {
		return nil, err
	}

	config = config.withDefaults()

	c := cache.New(backend, config.CacheCapacity)
	tips := tippool.New(tippool.Config{
		Staleness:   config.TipStaleness,
		MaximumTips: config.MaximumTips,
		Now:         config.Now,
	}, c)
	bus := messagebus.New()

	t := &Tangle{
		running:     true,
		config:      config,
		backend:     backend,
		cache:       c,
		tips:        tips,
		bus:         bus,
		entryPoints: newEntryPoints(config.SolidEntryPoints),
		log:         log,
	}
	t.cleaner = newCleaner(tips, bus, config.CleanerInterval)

	processes := background.Processes{
		t.cleaner,
		cache.NewFlusher(c, config.FlushInterval),
	}
	t.background = background.Start(processes, nil)

	log.Infof("started  capacity: %d  solid entry points: %d", config.CacheCapacity, len(t.entryPoints.list()))
	return t, nil
}

// Shutdown - stop accepting operations, wait for those in flight,
// stop the workers and flush the cache
//
// the backend is marked idle only if everything was written; the
// caller still owns and closes the backend. After a failed write the
// backend stays marked corrupted and Shutdown may be called again to
// retry it.
func (t *Tangle) Shutdown() error {
	t.gate.Lock()
	if !t.running && !t.unflushed {
		t.gate.Unlock()
		return fault.ErrNotRunning
	}
	retry := !t.running
	t.running = false
	t.unflushed = false
	t.gate.Unlock()

	if retry {
		t.log.Info("retrying final flush…")
	} else {
		t.log.Info("shutting down…")
		if !t.background.StopWithin(t.config.ShutdownGrace) {
			t.log.Warnf("workers still running after: %s", t.config.ShutdownGrace)
		}
	}

	if err := t.cache.Close(); nil != err {
		t.log.Errorf("final flush error: %s", err)
		t.failed()
		return err
	}

	if err := t.backend.SetHealth(storage.Idle); nil != err {
		t.log.Errorf("mark idle error: %s", err)
		t.failed()
		return err
	}

	t.bus.Release()
	t.log.Info("stopped")
	t.log.Flush()
	return nil
}

// allow Shutdown to be retried
func (t *Tangle) failed() {
	t.gate.Lock()
	t.unflushed = true
	t.gate.Unlock()
}

// enter/leave bracket every public operation
func (t *Tangle) enter() error {
	t.gate.RLock()
	if !t.running {
		t.gate.RUnlock()
		return fault.ErrNotRunning
	}
	return nil
}

func (t *Tangle) leave() {
	t.gate.RUnlock()
}

// Bus - the event bus for listener registration
func (t *Tangle) Bus() *messagebus.Bus {
	return t.bus
}

// Config - the effective configuration
func (t *Tangle) Config() Config {
	return t.config
}

// Len - resident cache entries
func (t *Tangle) Len() int {
	return t.cache.Len()
}

// IsResident - check the cache without touching storage
func (t *Tangle) IsResident(id message.Id) bool {
	return t.cache.IsResident(id)
}

// current time as a unix timestamp
func (t *Tangle) timestamp() uint64 {
	return uint64(t.config.Now().Unix())
}
