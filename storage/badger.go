// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/dgraph-io/badger/v4"

	"github.com/bitmark-inc/tangled/fault"
)

// table prefixes, identical to the leveldb layout
const (
	badgerMessages = 'M'
	badgerMetadata = 'D'
	badgerChildren = 'C'
	badgerSystem   = 'S'
)

// Badger - backend on a BadgerDB key/value store
type Badger struct {
	sync.RWMutex
	systemRecords
	db       *badger.DB
	messages *badgerHandle
	metadata *badgerHandle
	children *badgerHandle
	system   *badgerHandle
	log      *logger.L
}

// OpenBadger - open (or create) a badger directory, an empty
// directory name gives an in-memory store
func OpenBadger(directory string) (*Badger, error) {
	opts := badger.DefaultOptions(directory).WithLogger(nil)
	if "" == directory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if nil != err {
		return nil, fault.NewBackendError("open", err)
	}

	b := &Badger{
		db:  db,
		log: logger.New("storage"),
	}
	b.messages = &badgerHandle{prefix: badgerMessages, owner: b}
	b.metadata = &badgerHandle{prefix: badgerMetadata, owner: b}
	b.children = &badgerHandle{prefix: badgerChildren, owner: b}
	b.system = &badgerHandle{prefix: badgerSystem, owner: b}
	b.systemRecords = systemRecords{system: b.system}

	b.log.Infof("opened badger: %q", directory)
	return b, nil
}

// Messages - the message table
func (b *Badger) Messages() Handle { return b.messages }

// Metadata - the metadata table
func (b *Badger) Metadata() Handle { return b.metadata }

// Children - the approval edge table
func (b *Badger) Children() Handle { return b.children }

// System - the version/health table
func (b *Badger) System() Handle { return b.system }

// Close - close the store
func (b *Badger) Close() error {
	b.Lock()
	defer b.Unlock()
	if nil == b.db {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	b.log.Info("closed")
	b.log.Flush()
	return fault.NewBackendError("close", err)
}

type badgerHandle struct {
	prefix byte
	owner  *Badger
}

// view and update hold the owner read lock so Close waits for them
func (h *badgerHandle) view(f func(txn *badger.Txn) error) error {
	h.owner.RLock()
	defer h.owner.RUnlock()
	if nil == h.owner.db {
		return fault.ErrStorageClosed
	}
	return h.owner.db.View(f)
}

func (h *badgerHandle) update(f func(txn *badger.Txn) error) error {
	h.owner.RLock()
	defer h.owner.RUnlock()
	if nil == h.owner.db {
		return fault.ErrStorageClosed
	}
	return h.owner.db.Update(f)
}

func (h *badgerHandle) Fetch(key []byte) ([]byte, error) {
	var value []byte
	err := h.view(func(txn *badger.Txn) error {
		item, err := txn.Get(prefixKey(h.prefix, key))
		if badger.ErrKeyNotFound == err {
			return nil
		}
		if nil != err {
			return err
		}
		value, err = item.ValueCopy(nil)
		if nil == value {
			value = []byte{}
		}
		return err
	})
	if nil != err {
		return nil, backendError("fetch", err)
	}
	return value, nil
}

func (h *badgerHandle) MultiFetch(keys [][]byte) ([][]byte, error) {
	results := make([][]byte, len(keys))
	err := h.view(func(txn *badger.Txn) error {
		for i, key := range keys {
			item, err := txn.Get(prefixKey(h.prefix, key))
			if badger.ErrKeyNotFound == err {
				continue
			}
			if nil != err {
				return err
			}
			value, err := item.ValueCopy(nil)
			if nil != err {
				return err
			}
			if nil == value {
				value = []byte{}
			}
			results[i] = value
		}
		return nil
	})
	if nil != err {
		return nil, backendError("multi fetch", err)
	}
	return results, nil
}

func (h *badgerHandle) Has(key []byte) (bool, error) {
	found := false
	err := h.view(func(txn *badger.Txn) error {
		_, err := txn.Get(prefixKey(h.prefix, key))
		if badger.ErrKeyNotFound == err {
			return nil
		}
		found = nil == err
		return err
	})
	return found, backendError("has", err)
}

func (h *badgerHandle) Insert(key []byte, value []byte) error {
	err := h.update(func(txn *badger.Txn) error {
		return txn.Set(prefixKey(h.prefix, key), copyBytes(value))
	})
	return backendError("insert", err)
}

func (h *badgerHandle) Delete(key []byte) error {
	err := h.update(func(txn *badger.Txn) error {
		return txn.Delete(prefixKey(h.prefix, key))
	})
	return backendError("delete", err)
}

func (h *badgerHandle) Map(prefix []byte, f func(key []byte, value []byte) error) error {
	fullPrefix := prefixKey(h.prefix, prefix)
	err := h.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = fullPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(fullPrefix); it.ValidForPrefix(fullPrefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			value, err := item.ValueCopy(nil)
			if nil != err {
				return fault.NewBackendError("iterate", err)
			}
			if err := f(key[1:], value); nil != err {
				return err
			}
		}
		return nil
	})
	return mapResult(err)
}

// closed store and callback errors pass through unchanged
func backendError(op string, err error) error {
	if nil == err || fault.ErrStorageClosed == err {
		return err
	}
	return fault.NewBackendError(op, err)
}
