// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"github.com/bitmark-inc/tangled/fault"
)

// names of the available backends
const (
	BackendLevelDB = "leveldb"
	BackendBadger  = "badger"
	BackendMemory  = "memory"
)

// Open - open a backend by name and check it is usable
func Open(backend string, path string) (Backend, error) {
	b, err := Inspect(backend, path)
	if nil != err {
		return nil, err
	}

	if err := Prepare(b); nil != err {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Inspect - open a backend by name without validating it, so that
// the health and version of a damaged store can still be reported
func Inspect(backend string, path string) (Backend, error) {
	switch backend {
	case BackendLevelDB:
		l, err := OpenLevelDB(path, false)
		if nil != err {
			return nil, err
		}
		return l, nil
	case BackendBadger:
		b, err := OpenBadger(path)
		if nil != err {
			return nil, err
		}
		return b, nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fault.ErrUnknownBackend
	}
}
