// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cache - the graph cache, a bounded in-memory view of the
// message and metadata tables
//
//  ***** Data Structure *****
//
//  Cache
//  |___ shards[256]        selected by xxhash(id)
//  |     |___ entries      message.Id -> entry{message, metadata, flags}
//  |___ settled            FIFO of ids in the order they were settled
//  |___ loads              singleflight group for read-through misses
//
//  ***** Persistence *****
//
//  Insert writes through: message record, then one children edge per
//  parent, then the metadata record.  The metadata record is the
//  commit marker, a message without one is treated as absent.  The
//  entry is visible while it is written but stays locked, readers
//  wait for it and see nothing if the insert is rolled back.
//
//  Metadata updates write behind: the entry is marked dirty and is
//  persisted by Flush, by the background flusher or just before the
//  entry is evicted.
//
//  ***** Eviction *****
//
//  Only entries that are both settled (reference timestamp set) and
//  persisted may leave memory, oldest settled first.  Unsettled
//  entries stay resident regardless of capacity.  A read through
//  checks capacity only after the caller has finished with the entry.
package cache
