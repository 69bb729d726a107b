// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tangle

import (
	"sync"

	"github.com/bitmark-inc/tangled/message"
)

// the boundary below which ancestry is not followed
type entryPoints struct {
	sync.RWMutex
	ids map[message.Id]struct{}
}

// the null id is always an entry point
func newEntryPoints(initial []message.Id) *entryPoints {
	e := &entryPoints{
		ids: map[message.Id]struct{}{message.NullId: {}},
	}
	for _, id := range initial {
		e.ids[id] = struct{}{}
	}
	return e
}

func (e *entryPoints) add(id message.Id) {
	e.Lock()
	e.ids[id] = struct{}{}
	e.Unlock()
}

func (e *entryPoints) remove(id message.Id) {
	if id.IsNull() {
		return
	}
	e.Lock()
	delete(e.ids, id)
	e.Unlock()
}

func (e *entryPoints) contains(id message.Id) bool {
	e.RLock()
	_, ok := e.ids[id]
	e.RUnlock()
	return ok
}

func (e *entryPoints) list() []message.Id {
	e.RLock()
	defer e.RUnlock()
	ids := make([]message.Id, 0, len(e.ids))
	for id := range e.ids {
		ids = append(ids, id)
	}
	return ids
}

// AddSolidEntryPoint - extend the traversal boundary
func (t *Tangle) AddSolidEntryPoint(id message.Id) {
	t.entryPoints.add(id)
	t.log.Debugf("solid entry point added: %v", id)
}

// RemoveSolidEntryPoint - shrink the traversal boundary, the null id
// cannot be removed
func (t *Tangle) RemoveSolidEntryPoint(id message.Id) {
	t.entryPoints.remove(id)
}

// IsSolidEntryPoint - check the boundary
func (t *Tangle) IsSolidEntryPoint(id message.Id) bool {
	return t.entryPoints.contains(id)
}

// SolidEntryPoints - snapshot of the boundary
func (t *Tangle) SolidEntryPoints() []message.Id {
	return t.entryPoints.list()
}
