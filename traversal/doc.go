// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package traversal - breadth first walks over the parent (ancestor)
// or child (descendant) edges of the tangle
//
// each id is produced at most once per walk; a node for which the
// predicate returns false is still produced but its edges are not
// followed; ancestor walks never enter a solid entry point
package traversal
