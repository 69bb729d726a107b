// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tangled",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Lookups answered from memory.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tangled",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Lookups that went to storage.",
	})
	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tangled",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Settled entries dropped from memory.",
	})
	residentEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tangled",
		Subsystem: "cache",
		Name:      "resident_entries",
		Help:      "Entries currently held in memory.",
	})
	rejectedReverts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tangled",
		Subsystem: "cache",
		Name:      "rejected_reverts_total",
		Help:      "Metadata updates that tried to revert a settled field.",
	})
	flushedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tangled",
		Subsystem: "cache",
		Name:      "flushed_records_total",
		Help:      "Dirty metadata records written to storage.",
	})
)
