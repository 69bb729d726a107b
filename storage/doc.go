// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - maintain the persistent tangle data
//
// A backend is split into a series of tables. Each table is defined
// by a prefix byte that is obtained from the prefix tag in the struct
// defining the available tables.
//
// Notes:
// 1. each separate table has a single byte prefix
// 2. ++           = concatenation of byte data
// 3. id           = message id, 32 byte blake2b-256
//
// Messages:
//
//   M ++ id                    - message store
//                                data: packed message
//
// Metadata:
//
//   D ++ id                    - message metadata
//                                data: packed metadata (written last, marks a complete insert)
//
// Children:
//
//   C ++ parent id ++ child id - approval edge
//                                data: empty
//
// System:
//
//   S ++ 0x00                  - version (big endian uint32)
//   S ++ 0x01                  - health (0x00 idle, 0x01 corrupted)
package storage
