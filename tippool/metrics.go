// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tippool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tipCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tangled",
		Subsystem: "tippool",
		Name:      "tips",
		Help:      "Messages currently eligible as attachment points.",
	})
	tipsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tangled",
		Subsystem: "tippool",
		Name:      "pruned_total",
		Help:      "Tips removed by the cleaner.",
	})
)
