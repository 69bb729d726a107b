// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package message

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/bitmark-inc/tangled/fault"
)

// MaximumParents - the largest number of parents a message may reference
const MaximumParents = 8

// Message - an immutable unit of the tangle
//
// a Message must not be modified once it has been inserted; the
// tangle shares the same pointer between all readers
type Message struct {
	Parents []Id
	Nonce   uint64
	Payload []byte
}

// New - create a message after validating its parents
func New(parents []Id, nonce uint64, payload []byte) (*Message, error) {
	m := &Message{
		Parents: append([]Id(nil), parents...),
		Nonce:   nonce,
		Payload: append([]byte(nil), payload...),
	}
	if err := m.Validate(); nil != err {
		return nil, err
	}
	return m, nil
}

// Validate - check structural constraints on the parent list
func (m *Message) Validate() error {
	if len(m.Parents) > MaximumParents {
		return fault.ErrTooManyParents
	}
	for i := 0; i < len(m.Parents); i += 1 {
		for j := i + 1; j < len(m.Parents); j += 1 {
			if m.Parents[i] == m.Parents[j] {
				return fault.ErrDuplicateParent
			}
		}
	}
	return nil
}

// Pack - the storage record form of a message
func (m *Message) Pack() []byte {
	buffer := make([]byte, 1+IdLength*len(m.Parents)+8+len(m.Payload))
	buffer[0] = byte(len(m.Parents))
	n := 1
	for _, p := range m.Parents {
		copy(buffer[n:], p[:])
		n += IdLength
	}
	binary.BigEndian.PutUint64(buffer[n:], m.Nonce)
	n += 8
	copy(buffer[n:], m.Payload)
	return buffer
}

// Unpack - rebuild a message from its storage record
func Unpack(record []byte) (*Message, error) {
	if len(record) < 1 {
		return nil, fault.ErrTruncatedRecord
	}
	count := int(record[0])
	if count > MaximumParents {
		return nil, fault.ErrTooManyParents
	}
	n := 1
	if len(record) < n+count*IdLength+8 {
		return nil, fault.ErrTruncatedRecord
	}

	m := &Message{
		Parents: make([]Id, count),
	}
	for i := 0; i < count; i += 1 {
		copy(m.Parents[i][:], record[n:])
		n += IdLength
	}
	m.Nonce = binary.BigEndian.Uint64(record[n:])
	n += 8
	m.Payload = make([]byte, len(record)-n)
	copy(m.Payload, record[n:])

	if err := m.Validate(); nil != err {
		return nil, err
	}
	return m, nil
}

// Id - compute the content hash
func (m *Message) Id() Id {
	return Id(blake2b.Sum256(m.Pack()))
}

// HasParent - check whether a message references another
func (m *Message) HasParent(id Id) bool {
	for _, p := range m.Parents {
		if p == id {
			return true
		}
	}
	return false
}

// Equal - same content
func (m *Message) Equal(other *Message) bool {
	if nil == m || nil == other {
		return m == other
	}
	return bytes.Equal(m.Pack(), other.Pack())
}
