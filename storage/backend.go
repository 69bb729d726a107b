// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"

	"github.com/bitmark-inc/tangled/fault"
)

// CurrentVersion - the schema version written by this code
const CurrentVersion = 1

// system table keys
var (
	SystemVersionKey = []byte{0x00}
	SystemHealthKey  = []byte{0x01}
)

// Health - the state recorded by the node that last used the store
type Health byte

// possible health values
const (
	Idle      Health = 0x00
	Corrupted Health = 0x01
)

func (h Health) String() string {
	switch h {
	case Idle:
		return "idle"
	case Corrupted:
		return "corrupted"
	default:
		return "*unknown*"
	}
}

// Backend - the set of tables of one persistent store
type Backend interface {
	Messages() Handle
	Metadata() Handle
	Children() Handle
	System() Handle

	Health() (Health, bool, error)
	SetHealth(Health) error
	Version() (uint32, bool, error)
	SetVersion(uint32) error

	Close() error
}

// shared implementation of the system record accessors
type systemRecords struct {
	system Handle
}

// Health - read the health record, false if never written
func (s systemRecords) Health() (Health, bool, error) {
	value, err := s.system.Fetch(SystemHealthKey)
	if nil != err {
		return Corrupted, false, err
	}
	if nil == value {
		return Idle, false, nil
	}
	if 1 != len(value) {
		return Corrupted, true, fault.ErrInvalidHealth
	}
	switch h := Health(value[0]); h {
	case Idle, Corrupted:
		return h, true, nil
	default:
		return Corrupted, true, fault.ErrInvalidHealth
	}
}

// SetHealth - write the health record
func (s systemRecords) SetHealth(h Health) error {
	return s.system.Insert(SystemHealthKey, []byte{byte(h)})
}

// Version - read the schema version, false if never written
func (s systemRecords) Version() (uint32, bool, error) {
	value, err := s.system.Fetch(SystemVersionKey)
	if nil != err {
		return 0, false, err
	}
	if nil == value {
		return 0, false, nil
	}
	if 4 != len(value) {
		return 0, true, fault.ErrIncompatibleVersion
	}
	return binary.BigEndian.Uint32(value), true, nil
}

// SetVersion - write the schema version
func (s systemRecords) SetVersion(version uint32) error {
	buffer := make([]byte, 4)
	binary.BigEndian.PutUint32(buffer, version)
	return s.system.Insert(SystemVersionKey, buffer)
}

// Prepare - validate a backend before it is used
//
// an empty store is tagged with the current version and idle health;
// a corrupted or incompatible store is refused
func Prepare(b Backend) error {
	version, found, err := b.Version()
	if nil != err {
		return err
	}

	if !found {
		if err := b.SetVersion(CurrentVersion); nil != err {
			return err
		}
		return b.SetHealth(Idle)
	}

	if CurrentVersion != version {
		return fault.ErrIncompatibleVersion
	}

	health, _, err := b.Health()
	if nil != err {
		return err
	}
	if Corrupted == health {
		return fault.ErrStorageCorrupted
	}
	return nil
}
