// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package messagebus - notification of tangle state transitions
//
// listeners are registered by name and called in the publishing
// goroutine, a panicking listener is logged and skipped; channel
// subscribers receive a copy of each event unless their buffer is
// full, in which case the event is dropped for that subscriber
package messagebus
