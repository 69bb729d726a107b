// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tippool_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/tangled/message"
	"github.com/bitmark-inc/tangled/tippool"
)

func TestAttachReplacesParent(t *testing.T) {
	p := tippool.New(tippool.Config{}, nil)

	a := makeId(1)
	b := makeId(2)

	added, removed, err := p.Attach(a, nil)
	assert.Nil(t, err, "attach a error")
	assert.True(t, added, "a not added")
	assert.Equal(t, 0, len(removed), "nothing to remove")
	assert.Equal(t, []message.Id{a}, p.Tips(), "a not a tip")

	added, removed, err = p.Attach(b, []message.Id{a})
	assert.Nil(t, err, "attach b error")
	assert.True(t, added, "b not added")
	assert.Equal(t, []message.Id{a}, removed, "a not removed")
	assert.Equal(t, []message.Id{b}, p.Tips(), "wrong tips")
}

func TestInsertTipRejectsReferenced(t *testing.T) {
	parent := makeId(1)
	child := makeId(2)

	// edge already persisted
	p := tippool.New(tippool.Config{}, edges{parent: {child}})
	ok, err := p.InsertTip(parent)
	assert.Nil(t, err, "insert error")
	assert.False(t, ok, "referenced id became a tip")

	// child attached before its parent arrives
	p = tippool.New(tippool.Config{}, nil)
	_, _, err = p.Attach(child, []message.Id{parent})
	assert.Nil(t, err, "attach error")

	ok, err = p.InsertTip(parent)
	assert.Nil(t, err, "insert error")
	assert.False(t, ok, "late parent became a tip")
	assert.Equal(t, []message.Id{child}, p.Tips(), "wrong tips")
}

type brokenGraph struct{}

func (brokenGraph) Children(id message.Id) ([]message.Id, error) {
	return nil, errors.New("edge table unavailable")
}

func TestInsertTipGraphFailure(t *testing.T) {
	p := tippool.New(tippool.Config{}, brokenGraph{})

	ok, err := p.InsertTip(makeId(9))
	assert.NotNil(t, err, "failure hidden")
	assert.False(t, ok, "tip added on failure")
	assert.Equal(t, 0, p.Len(), "pool changed on failure")

	// parents are dereferenced even when the child cannot be checked
	parent := makeId(1)
	child := makeId(2)
	p = tippool.New(tippool.Config{}, partialGraph{broken: child})
	_, err = p.InsertTip(parent)
	assert.Nil(t, err, "insert error")

	added, removed, err := p.Attach(child, []message.Id{parent})
	assert.NotNil(t, err, "failure hidden")
	assert.False(t, added, "child added on failure")
	assert.Equal(t, []message.Id{parent}, removed, "parent not removed")
	assert.Equal(t, 0, p.Len(), "wrong tips")
}

type partialGraph struct {
	broken message.Id
}

func (g partialGraph) Children(id message.Id) ([]message.Id, error) {
	if g.broken == id {
		return nil, errors.New("edge table unavailable")
	}
	return nil, nil
}

func TestRemoveTipIfUnreferenced(t *testing.T) {
	p := tippool.New(tippool.Config{}, nil)
	a := makeId(1)

	ok, err := p.InsertTip(a)
	assert.Nil(t, err, "insert error")
	assert.True(t, ok, "insert failed")
	assert.True(t, p.IsTip(a), "not a tip")

	assert.True(t, p.RemoveTipIfUnreferenced(a), "tip not removed")
	assert.False(t, p.RemoveTipIfUnreferenced(a), "second removal reported")
	assert.False(t, p.IsTip(a), "still a tip")
}

func TestSelectTips(t *testing.T) {
	p := tippool.New(tippool.Config{}, nil)

	assert.Equal(t, 0, len(p.SelectTips(3)), "empty pool returned tips")

	all := make(map[message.Id]bool)
	for i := byte(1); i <= 5; i += 1 {
		id := makeId(i)
		all[id] = true
		_, err := p.InsertTip(id)
		assert.Nil(t, err, "insert error")
	}

	selected := p.SelectTips(3)
	assert.Equal(t, 3, len(selected), "wrong selection size")
	seen := make(map[message.Id]bool)
	for _, id := range selected {
		assert.True(t, all[id], "selected an unknown id")
		assert.False(t, seen[id], "selected an id twice")
		seen[id] = true
	}

	assert.Equal(t, 5, len(p.SelectTips(10)), "short pool should return all")
	assert.Equal(t, 0, len(p.SelectTips(0)), "zero count returned tips")
}

func TestPruneStale(t *testing.T) {
	clock := newFakeClock()
	p := tippool.New(tippool.Config{
		Staleness: time.Hour,
		Now:       clock.Now,
	}, nil)

	old := makeId(1)
	_, err := p.InsertTip(old)
	assert.Nil(t, err, "insert error")

	clock.Advance(90 * time.Minute)
	fresh := makeId(2)
	_, err = p.InsertTip(fresh)
	assert.Nil(t, err, "insert error")

	removed := p.Prune(clock.Now())
	assert.Equal(t, []message.Id{old}, removed, "wrong tips pruned")
	assert.Equal(t, []message.Id{fresh}, p.Tips(), "wrong tips left")
}

func TestPruneMaximum(t *testing.T) {
	clock := newFakeClock()
	p := tippool.New(tippool.Config{
		MaximumTips: 2,
		Now:         clock.Now,
	}, nil)

	for i := byte(1); i <= 4; i += 1 {
		_, err := p.InsertTip(makeId(i))
		assert.Nil(t, err, "insert error")
		clock.Advance(time.Second)
	}

	removed := p.Prune(clock.Now())
	assert.ElementsMatch(t, []message.Id{makeId(1), makeId(2)}, removed, "oldest not pruned")
	assert.ElementsMatch(t, []message.Id{makeId(3), makeId(4)}, p.Tips(), "wrong tips left")
}

// no selection may return a tip whose child has completed attaching
func TestAttachIsAtomicWithSelection(t *testing.T) {
	p := tippool.New(tippool.Config{}, nil)

	const chain = 200
	ids := make([]message.Id, chain)
	for i := 0; i < chain; i += 1 {
		ids[i] = message.Id{byte(i >> 8), byte(i), 0xaa}
	}
	index := func(id message.Id) int64 {
		return int64(id[0])<<8 | int64(id[1])
	}

	_, _, err := p.Attach(ids[0], nil)
	assert.Nil(t, err, "attach error")

	// highest index whose attach has returned
	var completed atomic.Int64

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			before := completed.Load()
			selected := p.SelectTips(1)
			if 1 != len(selected) {
				t.Errorf("chain pool must always hold one tip, got: %d", len(selected))
				return
			}
			if index(selected[0]) < before {
				t.Errorf("selected referenced tip: %d  after attach of: %d", index(selected[0]), before)
				return
			}
		}
	}()

	for i := 1; i < chain; i += 1 {
		_, _, err := p.Attach(ids[i], []message.Id{ids[i-1]})
		assert.Nil(t, err, "attach error")
		completed.Store(int64(i))
	}
	close(done)
	wg.Wait()

	assert.Equal(t, []message.Id{ids[chain-1]}, p.Tips(), "wrong final tip")
}
