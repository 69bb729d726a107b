// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_storage "github.com/syndtr/goleveldb/leveldb/storage"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/tangled/fault"
)

// table layout of the leveldb backend
//
// note all must be exported (i.e. initial capital) or initialisation will panic
type levelPools struct {
	Messages *PoolHandle `prefix:"M"`
	Metadata *PoolHandle `prefix:"D"`
	Children *PoolHandle `prefix:"C"`
	System   *PoolHandle `prefix:"S"`
}

// LevelDB - backend on a single LevelDB database
type LevelDB struct {
	sync.RWMutex
	systemRecords
	db    *leveldb.DB
	pools levelPools
	log   *logger.L
}

// OpenLevelDB - open (or create) a database directory
func OpenLevelDB(name string, readOnly bool) (*LevelDB, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}

	db, err := leveldb.OpenFile(name, opt)
	if nil != err {
		return nil, fault.NewBackendError("open", err)
	}
	return newLevelDB(db, name)
}

// NewLevelDBInMemory - a leveldb backend without any files
func NewLevelDBInMemory() (*LevelDB, error) {
	db, err := leveldb.Open(ldb_storage.NewMemStorage(), nil)
	if nil != err {
		return nil, fault.NewBackendError("open", err)
	}
	return newLevelDB(db, "memory")
}

func newLevelDB(db *leveldb.DB, name string) (*LevelDB, error) {
	l := &LevelDB{
		db:  db,
		log: logger.New("storage"),
	}

	// this will be a struct type
	poolType := reflect.TypeOf(l.pools)

	// get write access by using pointer + Elem()
	poolValue := reflect.ValueOf(&l.pools).Elem()

	// scan each field
	for i := 0; i < poolType.NumField(); i += 1 {

		fieldInfo := poolType.Field(i)

		prefixTag := fieldInfo.Tag.Get("prefix")
		if 1 != len(prefixTag) {
			db.Close()
			return nil, fmt.Errorf("pool: %v has invalid prefix: %q", fieldInfo, prefixTag)
		}

		p := &PoolHandle{
			prefix: prefixTag[0],
			owner:  l,
		}
		poolValue.Field(i).Set(reflect.ValueOf(p))
	}

	l.systemRecords = systemRecords{system: l.pools.System}
	l.log.Infof("opened leveldb: %q", name)

	return l, nil
}

// Messages - the message table
func (l *LevelDB) Messages() Handle { return l.pools.Messages }

// Metadata - the metadata table
func (l *LevelDB) Metadata() Handle { return l.pools.Metadata }

// Children - the approval edge table
func (l *LevelDB) Children() Handle { return l.pools.Children }

// System - the version/health table
func (l *LevelDB) System() Handle { return l.pools.System }

// Close - close the database, further access returns fault.ErrStorageClosed
func (l *LevelDB) Close() error {
	l.Lock()
	defer l.Unlock()
	if nil == l.db {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	l.log.Info("closed")
	l.log.Flush()
	return fault.NewBackendError("close", err)
}

// PoolHandle - one prefixed table in a LevelDB
type PoolHandle struct {
	prefix byte
	owner  *LevelDB
}

// Fetch - read a value for a given key, nil if absent
func (p *PoolHandle) Fetch(key []byte) ([]byte, error) {
	p.owner.RLock()
	defer p.owner.RUnlock()
	if nil == p.owner.db {
		return nil, fault.ErrStorageClosed
	}
	value, err := p.owner.db.Get(prefixKey(p.prefix, key), nil)
	if leveldb.ErrNotFound == err {
		return nil, nil
	}
	if nil != err {
		return nil, fault.NewBackendError("fetch", err)
	}
	return value, nil
}

// MultiFetch - one result slot per key, nil slot for absent keys
func (p *PoolHandle) MultiFetch(keys [][]byte) ([][]byte, error) {
	results := make([][]byte, len(keys))
	for i, key := range keys {
		value, err := p.Fetch(key)
		if nil != err {
			return nil, err
		}
		results[i] = value
	}
	return results, nil
}

// Has - check if a key exists
func (p *PoolHandle) Has(key []byte) (bool, error) {
	p.owner.RLock()
	defer p.owner.RUnlock()
	if nil == p.owner.db {
		return false, fault.ErrStorageClosed
	}
	found, err := p.owner.db.Has(prefixKey(p.prefix, key), nil)
	return found, fault.NewBackendError("has", err)
}

// Insert - store a key/value bytes pair
func (p *PoolHandle) Insert(key []byte, value []byte) error {
	p.owner.RLock()
	defer p.owner.RUnlock()
	if nil == p.owner.db {
		return fault.ErrStorageClosed
	}
	return fault.NewBackendError("insert", p.owner.db.Put(prefixKey(p.prefix, key), value, nil))
}

// Delete - remove a key
func (p *PoolHandle) Delete(key []byte) error {
	p.owner.RLock()
	defer p.owner.RUnlock()
	if nil == p.owner.db {
		return fault.ErrStorageClosed
	}
	return fault.NewBackendError("delete", p.owner.db.Delete(prefixKey(p.prefix, key), nil))
}

// Map - run a function on all elements in the range
func (p *PoolHandle) Map(prefix []byte, f func(key []byte, value []byte) error) error {
	p.owner.RLock()
	defer p.owner.RUnlock()
	if nil == p.owner.db {
		return fault.ErrStorageClosed
	}

	iter := p.owner.db.NewIterator(ldb_util.BytesPrefix(prefixKey(p.prefix, prefix)), nil)

	var err error
iterating:
	for iter.Next() {

		// contents of the returned slice must not be modified, and are
		// only valid until the next call to Next
		key := iter.Key()
		value := iter.Value()

		dataKey := make([]byte, len(key)-1) // strip the prefix
		copy(dataKey, key[1:])              // ...

		err = f(dataKey, copyBytes(value))
		if nil != err {
			break iterating
		}
	}
	iter.Release()
	if nil == err {
		err = fault.NewBackendError("iterate", iter.Error())
	}
	return mapResult(err)
}
