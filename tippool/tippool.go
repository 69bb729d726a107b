// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tippool

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/tangled/message"
)

// defaults
const (
	DefaultStaleness    = time.Hour
	DefaultMarkerExpiry = 10 * time.Minute
)

// ChildLister - source of the persisted approval edges
type ChildLister interface {
	Children(id message.Id) ([]message.Id, error)
}

// Config - tip pool parameters
type Config struct {
	Staleness    time.Duration    // tips older than this are pruned
	MaximumTips  int              // zero for no limit
	MarkerExpiry time.Duration    // how long referenced ids are remembered
	Now          func() time.Time // clock, time.Now if nil
}

// Pool - the tip set
type Pool struct {
	sync.RWMutex
	tips       map[message.Id]time.Time
	referenced *cache.Cache
	graph      ChildLister
	staleness  time.Duration
	maximum    int
	now        func() time.Time
	log        *logger.L
}

// New - create an empty pool, graph may be nil when there is no
// persisted edge table to consult
func New(config Config, graph ChildLister) *Pool {
	if config.Staleness <= 0 {
		config.Staleness = DefaultStaleness
	}
	if config.MarkerExpiry <= 0 {
		config.MarkerExpiry = DefaultMarkerExpiry
	}
	if nil == config.Now {
		config.Now = time.Now
	}

	return &Pool{
		tips:       make(map[message.Id]time.Time),
		referenced: cache.New(config.MarkerExpiry, 2*config.MarkerExpiry),
		graph:      graph,
		staleness:  config.Staleness,
		maximum:    config.MaximumTips,
		now:        config.Now,
		log:        logger.New("tippool"),
	}
}

// Now - the pool clock
func (p *Pool) Now() time.Time {
	return p.now()
}

// MarkReferenced - remember that id is named as a parent
func (p *Pool) MarkReferenced(id message.Id) {
	p.referenced.Set(id.String(), struct{}{}, cache.DefaultExpiration)
}

func (p *Pool) isMarked(id message.Id) bool {
	_, found := p.referenced.Get(id.String())
	return found
}

// check for a known child, done before taking the pool lock
func (p *Pool) hasChild(id message.Id) (bool, error) {
	if p.isMarked(id) {
		return true, nil
	}
	if nil == p.graph {
		return false, nil
	}
	children, err := p.graph.Children(id)
	if nil != err {
		return false, err
	}
	if 0 != len(children) {
		p.MarkReferenced(id)
		return true, nil
	}
	return false, nil
}

// InsertTip - add an id unless something already references it
func (p *Pool) InsertTip(id message.Id) (bool, error) {
	referenced, err := p.hasChild(id)
	if nil != err || referenced {
		return false, err
	}

	p.Lock()
	defer p.Unlock()

	// a child may have attached since the check
	if p.isMarked(id) {
		return false, nil
	}
	if _, ok := p.tips[id]; !ok {
		p.tips[id] = p.now()
		tipCount.Inc()
	}
	return true, nil
}

// RemoveTipIfUnreferenced - a child naming parent has arrived, so
// parent stops being a tip; true if it was one
func (p *Pool) RemoveTipIfUnreferenced(parent message.Id) bool {
	p.Lock()
	defer p.Unlock()
	return p.dereference(parent)
}

// called with the lock held
func (p *Pool) dereference(parent message.Id) bool {
	p.MarkReferenced(parent)
	if _, ok := p.tips[parent]; !ok {
		return false
	}
	delete(p.tips, parent)
	tipCount.Dec()
	return true
}

// Attach - account for a newly inserted child in one step
//
// all parents stop being tips and the child becomes one, unless it
// is itself already referenced; concurrent selections see either the
// state before or after.  If the child's edges cannot be read the
// parents are still removed but the child is not added.
func (p *Pool) Attach(child message.Id, parents []message.Id) (bool, []message.Id, error) {
	referenced, err := p.hasChild(child)

	p.Lock()
	defer p.Unlock()

	removed := make([]message.Id, 0, len(parents))
	for _, parent := range parents {
		if p.dereference(parent) {
			removed = append(removed, parent)
		}
	}

	if nil != err {
		return false, removed, err
	}
	if referenced || p.isMarked(child) {
		return false, removed, nil
	}
	if _, ok := p.tips[child]; ok {
		return false, removed, nil
	}
	p.tips[child] = p.now()
	tipCount.Inc()
	return true, removed, nil
}

// IsTip - check membership
func (p *Pool) IsTip(id message.Id) bool {
	p.RLock()
	defer p.RUnlock()
	_, ok := p.tips[id]
	return ok
}

// Len - number of tips
func (p *Pool) Len() int {
	p.RLock()
	defer p.RUnlock()
	return len(p.tips)
}

// Tips - snapshot of the current tip set
func (p *Pool) Tips() []message.Id {
	p.RLock()
	defer p.RUnlock()
	tips := make([]message.Id, 0, len(p.tips))
	for id := range p.tips {
		tips = append(tips, id)
	}
	return tips
}

// SelectTips - up to count distinct tips chosen uniformly at random
func (p *Pool) SelectTips(count int) []message.Id {
	if count <= 0 {
		return []message.Id{}
	}
	tips := p.Tips()
	if count > len(tips) {
		count = len(tips)
	}

	// partial Fisher-Yates
	for i := 0; i < count; i += 1 {
		j := i + rand.Intn(len(tips)-i)
		tips[i], tips[j] = tips[j], tips[i]
	}
	return tips[:count]
}

type tipAge struct {
	id    message.Id
	since time.Time
}

// Prune - remove tips older than the staleness threshold, then the
// oldest tips beyond the maximum count; returns the removed ids
func (p *Pool) Prune(now time.Time) []message.Id {
	p.Lock()
	defer p.Unlock()

	removed := make([]message.Id, 0)
	remaining := make([]tipAge, 0, len(p.tips))
	for id, since := range p.tips {
		if now.Sub(since) > p.staleness {
			delete(p.tips, id)
			removed = append(removed, id)
			continue
		}
		remaining = append(remaining, tipAge{id: id, since: since})
	}

	if p.maximum > 0 && len(remaining) > p.maximum {
		sort.Slice(remaining, func(i, j int) bool {
			return remaining[i].since.Before(remaining[j].since)
		})
		for _, t := range remaining[:len(remaining)-p.maximum] {
			delete(p.tips, t.id)
			removed = append(removed, t.id)
		}
	}

	if 0 != len(removed) {
		tipCount.Sub(float64(len(removed)))
		tipsPruned.Add(float64(len(removed)))
		p.log.Debugf("pruned: %d  remaining: %d", len(removed), len(p.tips))
	}
	return removed
}
