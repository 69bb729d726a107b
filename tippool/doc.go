// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package tippool - the set of messages not yet referenced by any
// other known message
//
// a tip records the time it became a tip so stale tips can be pruned;
// ids seen as parents are remembered for a while so that a parent
// arriving after its child never becomes a tip
package tippool
