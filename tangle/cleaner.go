// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tangle

import (
	"sync/atomic"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/tangled/messagebus"
	"github.com/bitmark-inc/tangled/tippool"
)

// CleanerState - what the cleaner is doing
type CleanerState int32

// possible states
const (
	CleanerIdle CleanerState = iota
	CleanerScanning
)

func (s CleanerState) String() string {
	switch s {
	case CleanerIdle:
		return "Idle"
	case CleanerScanning:
		return "Scanning"
	default:
		return "*unknown*"
	}
}

// Cleaner - background process pruning stale tips
//
// it only shrinks the tip pool, cached and persisted data is never
// touched
type Cleaner struct {
	tips     *tippool.Pool
	bus      *messagebus.Bus
	interval time.Duration
	state    int32
	log      *logger.L
}

func newCleaner(tips *tippool.Pool, bus *messagebus.Bus, interval time.Duration) *Cleaner {
	return &Cleaner{
		tips:     tips,
		bus:      bus,
		interval: interval,
		log:      logger.New("cleaner"),
	}
}

// State - current state
func (c *Cleaner) State() CleanerState {
	return CleanerState(atomic.LoadInt32(&c.state))
}

// Run - one pass every interval until shutdown
func (c *Cleaner) Run(args interface{}, shutdown <-chan struct{}) {
	c.log.Info("starting…")
	ticker := time.NewTicker(c.interval)
loop:
	for {
		select {
		case <-ticker.C:
			c.Pass()
		case <-shutdown:
			break loop
		}
	}
	ticker.Stop()
	c.log.Info("stopped")
}

// Pass - prune once, returns the number of tips removed
//
// a failing pass is logged and skipped, the next interval retries
func (c *Cleaner) Pass() (count int) {
	atomic.StoreInt32(&c.state, int32(CleanerScanning))
	defer func() {
		if r := recover(); nil != r {
			c.log.Warnf("pass failed: %v", r)
			count = 0
		}
		atomic.StoreInt32(&c.state, int32(CleanerIdle))
	}()

	removed := c.tips.Prune(c.tips.Now())
	for _, id := range removed {
		c.bus.Publish(messagebus.Event{Kind: messagebus.TipRemoved, Id: id})
	}
	if 0 != len(removed) {
		c.log.Infof("pruned tips: %d", len(removed))
	}
	return len(removed)
}
