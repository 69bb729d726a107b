// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metadata - the mutable per message state
//
// settlement fields are append only: the solid flag, the
// solidification and reference timestamps, the milestone index and a
// concrete conflict reason can be set once and never cleared.
// Merge enforces this when a caller replaces a whole record.
//
// packed record (big endian, 38 bytes):
//
//   flags(1) ++ milestone index(4) ++ arrival(8) ++ solidified(8) ++
//   referenced(8) ++ omrsi(4) ++ ymrsi(4) ++ conflict(1)
package metadata
