// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"sort"
	"sync"

	"github.com/bitmark-inc/tangled/fault"
)

// Memory - a volatile backend for tests and ephemeral nodes
type Memory struct {
	sync.RWMutex
	systemRecords
	closed   bool
	messages *memoryTable
	metadata *memoryTable
	children *memoryTable
	system   *memoryTable
}

// NewMemory - create an empty volatile backend
func NewMemory() *Memory {
	m := &Memory{}
	m.messages = &memoryTable{owner: m, data: make(map[string][]byte)}
	m.metadata = &memoryTable{owner: m, data: make(map[string][]byte)}
	m.children = &memoryTable{owner: m, data: make(map[string][]byte)}
	m.system = &memoryTable{owner: m, data: make(map[string][]byte)}
	m.systemRecords = systemRecords{system: m.system}
	return m
}

// Messages - the message table
func (m *Memory) Messages() Handle { return m.messages }

// Metadata - the metadata table
func (m *Memory) Metadata() Handle { return m.metadata }

// Children - the approval edge table
func (m *Memory) Children() Handle { return m.children }

// System - the version/health table
func (m *Memory) System() Handle { return m.system }

// Close - discard nothing, but refuse further access
func (m *Memory) Close() error {
	m.Lock()
	m.closed = true
	m.Unlock()
	return nil
}

type memoryTable struct {
	sync.RWMutex
	owner *Memory
	data  map[string][]byte
}

func (t *memoryTable) isClosed() bool {
	t.owner.RLock()
	defer t.owner.RUnlock()
	return t.owner.closed
}

func (t *memoryTable) Fetch(key []byte) ([]byte, error) {
	if t.isClosed() {
		return nil, fault.ErrStorageClosed
	}
	t.RLock()
	defer t.RUnlock()
	value, ok := t.data[string(key)]
	if !ok {
		return nil, nil
	}
	return append([]byte{}, value...), nil
}

func (t *memoryTable) MultiFetch(keys [][]byte) ([][]byte, error) {
	results := make([][]byte, len(keys))
	for i, key := range keys {
		value, err := t.Fetch(key)
		if nil != err {
			return nil, err
		}
		results[i] = value
	}
	return results, nil
}

func (t *memoryTable) Has(key []byte) (bool, error) {
	if t.isClosed() {
		return false, fault.ErrStorageClosed
	}
	t.RLock()
	defer t.RUnlock()
	_, ok := t.data[string(key)]
	return ok, nil
}

func (t *memoryTable) Insert(key []byte, value []byte) error {
	if t.isClosed() {
		return fault.ErrStorageClosed
	}
	t.Lock()
	t.data[string(key)] = append([]byte{}, value...)
	t.Unlock()
	return nil
}

func (t *memoryTable) Delete(key []byte) error {
	if t.isClosed() {
		return fault.ErrStorageClosed
	}
	t.Lock()
	delete(t.data, string(key))
	t.Unlock()
	return nil
}

// Map - iterates a snapshot so the callback may modify the table
func (t *memoryTable) Map(prefix []byte, f func(key []byte, value []byte) error) error {
	if t.isClosed() {
		return fault.ErrStorageClosed
	}

	t.RLock()
	elements := make([]Element, 0)
	for k, v := range t.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			elements = append(elements, Element{
				Key:   []byte(k),
				Value: append([]byte{}, v...),
			})
		}
	}
	t.RUnlock()

	sort.Slice(elements, func(i, j int) bool {
		return bytes.Compare(elements[i].Key, elements[j].Key) < 0
	})

	for _, e := range elements {
		if err := f(e.Key, e.Value); nil != err {
			return mapResult(err)
		}
	}
	return nil
}
