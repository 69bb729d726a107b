// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"runtime"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/tangled/tangle"
)

const (
	statsDelay = 60 * time.Second
	mega       = 1048576
)

// periodic memory and cache residency report
func memstats(t *tangle.Tangle, shutdown <-chan struct{}) {

	log := logger.New("memory")

	ticker := time.NewTicker(statsDelay)
	defer ticker.Stop()

	for {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		a := m.Alloc / mega
		s := m.Sys / mega
		log.Infof("allocated: %d M  OS virtual: %d M  resident messages: %d", a, s, t.Len())

		select {
		case <-ticker.C:
		case <-shutdown:
			return
		}
	}
}
