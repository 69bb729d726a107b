// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package message

import (
	"bytes"
	"encoding/hex"

	"github.com/bitmark-inc/tangled/fault"
)

// IdLength - number of bytes in a message id
const IdLength = 32

// Id - the content hash of a message
type Id [IdLength]byte

// NullId - all zero id, the default solid entry point
var NullId Id

// IdFromBytes - convert a byte slice to an Id
func IdFromBytes(buffer []byte) (Id, error) {
	id := Id{}
	if IdLength != len(buffer) {
		return id, fault.ErrInvalidIdLength
	}
	copy(id[:], buffer)
	return id, nil
}

// IdFromHex - parse a hex string
func IdFromHex(s string) (Id, error) {
	buffer, err := hex.DecodeString(s)
	if nil != err {
		return Id{}, err
	}
	return IdFromBytes(buffer)
}

// Bytes - the id as a new byte slice
func (id Id) Bytes() []byte {
	b := make([]byte, IdLength)
	copy(b, id[:])
	return b
}

// String - hex form
func (id Id) String() string {
	return hex.EncodeToString(id[:])
}

// GoString - for %#v
func (id Id) GoString() string {
	return "<message:" + hex.EncodeToString(id[:]) + ">"
}

// IsNull - true for the all zero id
func (id Id) IsNull() bool {
	return NullId == id
}

// Compare - byte order comparison
func (id Id) Compare(other Id) int {
	return bytes.Compare(id[:], other[:])
}

// MarshalText - for JSON output
func (id Id) MarshalText() ([]byte, error) {
	size := hex.EncodedLen(IdLength)
	buffer := make([]byte, size)
	hex.Encode(buffer, id[:])
	return buffer, nil
}

// UnmarshalText - from JSON input
func (id *Id) UnmarshalText(s []byte) error {
	buffer := make([]byte, hex.DecodedLen(len(s)))
	n, err := hex.Decode(buffer, s)
	if nil != err {
		return err
	}
	if IdLength != n {
		return fault.ErrInvalidIdLength
	}
	copy(id[:], buffer)
	return nil
}
