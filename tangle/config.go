// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tangle

import (
	"time"

	"github.com/bitmark-inc/tangled/cache"
	"github.com/bitmark-inc/tangled/configuration"
	"github.com/bitmark-inc/tangled/message"
	"github.com/bitmark-inc/tangled/tippool"
)

// defaults
const (
	DefaultCacheCapacity   = cache.DefaultCapacity
	DefaultCleanerInterval = 10 * time.Second
	DefaultTipStaleness    = tippool.DefaultStaleness
	DefaultFlushInterval   = cache.DefaultFlushInterval
	DefaultShutdownGrace   = 10 * time.Second
)

// Configuration - the tangle section of the configuration file
type Configuration struct {
	CacheCapacity    int      `gluamapper:"cache_capacity" json:"cache_capacity"`
	CleanerInterval  string   `gluamapper:"cleaner_interval" json:"cleaner_interval"`
	TipStaleness     string   `gluamapper:"tip_staleness" json:"tip_staleness"`
	MaximumTips      int      `gluamapper:"maximum_tips" json:"maximum_tips"`
	FlushInterval    string   `gluamapper:"flush_interval" json:"flush_interval"`
	ShutdownGrace    string   `gluamapper:"shutdown_grace" json:"shutdown_grace"`
	SolidEntryPoints []string `gluamapper:"solid_entry_points" json:"solid_entry_points"`
}

// Config - parameters of a running tangle
type Config struct {
	CacheCapacity    int
	CleanerInterval  time.Duration
	TipStaleness     time.Duration
	MaximumTips      int // zero for no limit
	FlushInterval    time.Duration
	ShutdownGrace    time.Duration
	SolidEntryPoints []message.Id

	// clock for arrival, solidification and tip times, time.Now if nil
	Now func() time.Time
}

// Parse - convert the file form into a Config
func (c Configuration) Parse() (Config, error) {
	config := Config{
		CacheCapacity: c.CacheCapacity,
		MaximumTips:   c.MaximumTips,
	}

	durations := []struct {
		name     string
		value    string
		fallback time.Duration
		result   *time.Duration
	}{
		{"cleaner_interval", c.CleanerInterval, DefaultCleanerInterval, &config.CleanerInterval},
		{"tip_staleness", c.TipStaleness, DefaultTipStaleness, &config.TipStaleness},
		{"flush_interval", c.FlushInterval, DefaultFlushInterval, &config.FlushInterval},
		{"shutdown_grace", c.ShutdownGrace, DefaultShutdownGrace, &config.ShutdownGrace},
	}
	for _, d := range durations {
		value, err := configuration.Duration(d.name, d.value, d.fallback)
		if nil != err {
			return Config{}, err
		}
		*d.result = value
	}

	for _, s := range c.SolidEntryPoints {
		id, err := message.IdFromHex(s)
		if nil != err {
			return Config{}, err
		}
		config.SolidEntryPoints = append(config.SolidEntryPoints, id)
	}

	return config.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = DefaultCacheCapacity
	}
	if c.CleanerInterval <= 0 {
		c.CleanerInterval = DefaultCleanerInterval
	}
	if c.TipStaleness <= 0 {
		c.TipStaleness = DefaultTipStaleness
	}
	if c.MaximumTips < 0 {
		c.MaximumTips = 0
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = DefaultShutdownGrace
	}
	if nil == c.Now {
		c.Now = time.Now
	}
	return c
}
