// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/tangled/storage"
)

const testConfiguration = `
local M = {}
M.data_directory = "."
M.pidfile = "tangled.pid"
M.database = {
    backend = "badger",
    name = "tangle.badger",
}
M.tangle = {
    cache_capacity = 5,
    tip_staleness = "2h",
}
return M
`

func writeConfiguration(t *testing.T, content string) string {
	name := filepath.Join(t.TempDir(), "tangled.conf")
	require.Nil(t, os.WriteFile(name, []byte(content), 0o600), "write configuration")
	return name
}

func TestGetConfiguration(t *testing.T) {
	name := writeConfiguration(t, testConfiguration)
	dir := filepath.Dir(name)

	options, err := getConfiguration(name)
	require.Nil(t, err, "configuration error")

	assert.Equal(t, dir, options.DataDirectory, "data directory")
	assert.Equal(t, filepath.Join(dir, "tangled.pid"), options.PidFile, "pid file")
	assert.Equal(t, storage.BackendBadger, options.Database.Backend, "backend")
	assert.Equal(t, filepath.Join(dir, "data", "tangle.badger"), options.Database.Name, "database")
	assert.Equal(t, filepath.Join(dir, "log"), options.Logging.Directory, "log directory")
	assert.Equal(t, defaultLogFile, options.Logging.File, "log file")

	info, err := os.Stat(options.Database.Directory)
	assert.Nil(t, err, "database directory not created")
	if nil == err {
		assert.True(t, info.IsDir(), "database directory is not a directory")
	}

	config, err := options.Tangle.Parse()
	require.Nil(t, err, "tangle parse error")
	assert.Equal(t, 5, config.CacheCapacity, "capacity")
	assert.Equal(t, 2*time.Hour, config.TipStaleness, "staleness")
}

func TestGetConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"backend", `return { data_directory = ".", database = { backend = "tape" } }`},
		{"duration", `return { data_directory = ".", tangle = { flush_interval = "often" } }`},
		{"directory", `return { data_directory = "" }`},
		{"plain name", `return { data_directory = ".", database = { name = "a/b.leveldb" } }`},
		{"not a table", `return 42`},
	}

	for _, test := range tests {
		_, err := getConfiguration(writeConfiguration(t, test.content))
		assert.NotNil(t, err, "%s: accepted", test.name)
	}
}
