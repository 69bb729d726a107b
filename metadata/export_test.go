// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metadata

// ForceConflict - set the reason field without validation
func ForceConflict(m Metadata, reason ConflictReason) Metadata {
	m.conflict = reason
	return m
}
