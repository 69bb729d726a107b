// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package message - immutable tangle messages and their identifiers
//
// the packed form is the storage record, not the network encoding:
//
//   count(1) ++ parents(32 * count) ++ nonce(8, big endian) ++ payload
//
// a message id is the blake2b-256 digest of the packed form
package message
