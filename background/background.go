// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background

import (
	"time"
)

// the shutdown and completed channels for one process
type shutdown struct {
	shutdown chan struct{}
	finished chan struct{}
}

// T - handle for a set of running processes
type T struct {
	s []shutdown
}

// Process - a background task, Run must return soon after shutdown
// is closed
type Process interface {
	Run(args interface{}, shutdown <-chan struct{})
}

// Processes - list of processes to start
type Processes []Process

// Start - start up a set of background processes
func Start(processes Processes, args interface{}) *T {

	register := new(T)
	register.s = make([]shutdown, len(processes))

	// start each background
	for i, p := range processes {
		shutdown := make(chan struct{})
		finished := make(chan struct{})
		register.s[i].shutdown = shutdown
		register.s[i].finished = finished
		go func(p Process) {
			defer close(finished)
			p.Run(args, shutdown)
		}(p)
	}
	return register
}

// Stop - stop a set of background processes and wait for all of them
func (t *T) Stop() {
	t.signal()

	// wait for finished
	for _, shutdown := range t.s {
		<-shutdown.finished
	}
}

// StopWithin - stop a set of background processes waiting at most
// the grace period, returns false if any process is still running
func (t *T) StopWithin(grace time.Duration) bool {
	t.signal()

	deadline := time.NewTimer(grace)
	defer deadline.Stop()

	for _, shutdown := range t.s {
		select {
		case <-shutdown.finished:
		case <-deadline.C:
			return false
		}
	}
	return true
}

// shutdown all background tasks
func (t *T) signal() {
	for _, shutdown := range t.s {
		select {
		case <-shutdown.shutdown:
		default:
			close(shutdown.shutdown)
		}
	}
}
