// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package tangle - the message graph of a node
//
// a Tangle composes the graph cache, the tip pool, the solid entry
// point set and the event bus in front of a storage backend.  It is
// created by Start and torn down by Shutdown; every operation after
// Shutdown fails with fault.ErrNotRunning.
//
// While running the backend health is recorded as corrupted so that
// an unclean exit is detected by the next Start.
package tangle
