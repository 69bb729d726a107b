// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

//go:generate mockgen -destination=mocks/storage.go -package=mocks github.com/bitmark-inc/tangled/storage Handle,Backend

import (
	"github.com/bitmark-inc/tangled/fault"
)

// ErrStopMap - return from a Map callback to end the iteration early
const ErrStopMap = fault.ProcessError("stop map")

// Handle - access to a single table
//
// a missing key is never an error: Fetch returns nil and MultiFetch a
// nil slot; errors only report backend failures
type Handle interface {
	Fetch(key []byte) ([]byte, error)
	MultiFetch(keys [][]byte) ([][]byte, error)
	Has(key []byte) (bool, error)
	Insert(key []byte, value []byte) error
	Delete(key []byte) error

	// run a function on all elements whose key starts with prefix
	// (nil for the whole table) in ascending key order
	Map(prefix []byte, f func(key []byte, value []byte) error) error
}

// Element - a binary data item
type Element struct {
	Key   []byte
	Value []byte
}

// Elements - collect all elements with a prefix
func Elements(h Handle, prefix []byte) ([]Element, error) {
	result := make([]Element, 0)
	err := h.Map(prefix, func(key []byte, value []byte) error {
		result = append(result, Element{Key: key, Value: value})
		return nil
	})
	return result, err
}

// map stop handling shared by all backends
func mapResult(err error) error {
	if ErrStopMap == err {
		return nil
	}
	return err
}

func copyBytes(b []byte) []byte {
	if nil == b {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

func prefixKey(prefix byte, key []byte) []byte {
	prefixedKey := make([]byte, 1, len(key)+1)
	prefixedKey[0] = prefix
	return append(prefixedKey, key...)
}
