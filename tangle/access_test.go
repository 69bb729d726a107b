// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tangle_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/tangled/fault"
	"github.com/bitmark-inc/tangled/message"
	"github.com/bitmark-inc/tangled/messagebus"
	"github.com/bitmark-inc/tangled/metadata"
	"github.com/bitmark-inc/tangled/tangle"
	"github.com/bitmark-inc/tangled/traversal"
)

func TestInsertReplacesParentTip(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{})

	a := insert(t, tg, "a")
	tips, err := tg.Tips()
	assert.Nil(t, err, "tips error")
	assert.Equal(t, []message.Id{a}, tips, "tips after a")

	b := insert(t, tg, "b", a)
	tips, err = tg.Tips()
	assert.Nil(t, err, "tips error")
	assert.Equal(t, []message.Id{b}, tips, "tips after b")
}

func TestInsertEvents(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{})
	r := record(tg)

	a := insert(t, tg, "a")
	b := insert(t, tg, "b", a)

	expected := []messagebus.Event{
		{Kind: messagebus.MessageParsed, Id: a},
		{Kind: messagebus.TipAdded, Id: a},
		{Kind: messagebus.MessageParsed, Id: b},
		{Kind: messagebus.TipRemoved, Id: a},
		{Kind: messagebus.TipAdded, Id: b},
	}
	assert.Equal(t, expected, r.all(), "events")
}

func TestInsertDuplicate(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{})
	r := record(tg)

	id, msg := makeMessage(t, "a")
	first := metadata.New(100)
	inserted, err := tg.Insert(msg, first)
	assert.Nil(t, err, "first insert error")
	assert.True(t, inserted, "first insert")

	inserted, err = tg.Insert(msg, metadata.New(200))
	assert.Nil(t, err, "second insert error")
	assert.False(t, inserted, "second insert")

	meta, err := tg.GetMetadata(id)
	require.Nil(t, err, "metadata error")
	assert.Equal(t, uint64(100), meta.ArrivalTimestamp(), "first metadata replaced")

	assert.Equal(t, []messagebus.Kind{messagebus.MessageParsed, messagebus.TipAdded}, r.kinds(id), "events")
}

func TestInsertWithWrongId(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{})

	_, msg := makeMessage(t, "a")
	inserted, err := tg.InsertWithId(message.Id{9}, msg, tg.NewMetadata())
	assert.False(t, inserted, "inserted")
	assert.Equal(t, fault.ErrIdMismatch, err, "wrong error")
}

func TestInsertInvalidMessage(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{})

	a := message.Id{1}
	msg := &message.Message{Parents: []message.Id{a, a}}
	inserted, err := tg.Insert(msg, tg.NewMetadata())
	assert.False(t, inserted, "inserted")
	assert.Equal(t, fault.ErrDuplicateParent, err, "wrong error")
}

func TestGetUnknown(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{})

	msg, err := tg.Get(message.Id{7})
	assert.Nil(t, err, "get error")
	assert.Nil(t, msg, "unknown message found")

	meta, err := tg.UpdateMetadata(message.Id{7}, func(m *metadata.Metadata) { m.SetValid() })
	assert.Nil(t, err, "update error")
	assert.Nil(t, meta, "unknown metadata updated")
}

func TestFirstConflictWins(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{})
	r := record(tg)
	a := insert(t, tg, "a")

	_, err := tg.UpdateMetadata(a, func(m *metadata.Metadata) {
		m.SetConflict(metadata.ConflictInputAlreadySpent)
	})
	require.Nil(t, err, "first update error")

	meta, err := tg.UpdateMetadata(a, func(m *metadata.Metadata) {
		m.SetConflict(metadata.ConflictInvalidSemantics)
	})
	require.Nil(t, err, "second update error")
	assert.Equal(t, metadata.ConflictInputAlreadySpent, meta.Conflict(), "conflict replaced")

	conflicts := 0
	for _, e := range r.all() {
		if messagebus.ConflictSet == e.Kind {
			conflicts += 1
			assert.Equal(t, metadata.ConflictInputAlreadySpent, e.Reason, "event reason")
		}
	}
	assert.Equal(t, 1, conflicts, "conflict events")
}

func TestRevertIgnoredOtherFieldsApplied(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{})
	a := insert(t, tg, "a")

	_, err := tg.UpdateMetadata(a, func(m *metadata.Metadata) {
		m.Reference(500)
		m.SetMilestoneIndex(3)
	})
	require.Nil(t, err, "reference error")

	meta, err := tg.UpdateMetadata(a, func(m *metadata.Metadata) {
		*m = metadata.New(1)
		m.SetValid()
	})
	require.Nil(t, err, "revert error")
	assert.Equal(t, uint64(500), meta.ReferenceTimestamp(), "reference reverted")
	index, ok := meta.MilestoneIndex()
	assert.True(t, ok, "milestone index cleared")
	assert.Equal(t, uint32(3), index, "milestone index")
	assert.True(t, meta.IsValid(), "legal part not applied")
}

// capacity two, three settled messages: the oldest leaves memory but
// is still readable
func TestSettledEviction(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{CacheCapacity: 2})

	ids := make([]message.Id, 0, 3)
	messages := make([]*message.Message, 0, 3)
	for i, payload := range []string{"x", "y", "z"} {
		id, msg := makeMessage(t, payload)
		meta := metadata.New(uint64(10 + i))
		meta.Reference(uint64(20 + i))
		meta.SetMilestoneIndex(1)

		inserted, err := tg.Insert(msg, meta)
		require.Nil(t, err, "insert: %s", payload)
		require.True(t, inserted, "insert: %s", payload)
		ids = append(ids, id)
		messages = append(messages, msg)
	}

	assert.LessOrEqual(t, tg.Len(), 2, "resident count")
	assert.False(t, tg.IsResident(ids[0]), "oldest still resident")
	assert.True(t, tg.IsResident(ids[2]), "newest evicted")

	msg, err := tg.Get(ids[0])
	assert.Nil(t, err, "get error")
	assert.True(t, messages[0].Equal(msg), "reloaded message differs")
}

func TestSelectTips(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{})

	selected, err := tg.SelectTips(3)
	assert.Nil(t, err, "select error")
	assert.Empty(t, selected, "empty pool")

	a := insert(t, tg, "a")
	b := insert(t, tg, "b")

	selected, err = tg.SelectTips(3)
	assert.Nil(t, err, "select error")
	assert.ElementsMatch(t, []message.Id{a, b}, selected, "selection")

	_, err = tg.SelectTips(-1)
	assert.Equal(t, fault.ErrInvalidCount, err, "negative count")
}

func TestCleanStaleTip(t *testing.T) {
	clock := newClock()
	tg, _ := startTangle(t, tangle.Config{
		TipStaleness: time.Hour,
		Now:          clock.Now,
	})
	r := record(tg)

	a := insert(t, tg, "a")
	assert.True(t, tg.IsTip(a), "not a tip")

	clock.Advance(2 * time.Hour)
	removed, err := tg.CleanTips()
	assert.Nil(t, err, "clean error")
	assert.Equal(t, 1, removed, "removed count")

	tips, err := tg.Tips()
	assert.Nil(t, err, "tips error")
	assert.NotContains(t, tips, a, "stale tip kept")
	assert.Contains(t, r.kinds(a), messagebus.TipRemoved, "no removal event")

	ok, err := tg.Contains(a)
	assert.Nil(t, err, "contains error")
	assert.True(t, ok, "cleaner touched the graph")
}

func TestWalkStopsAtEntryPoint(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{})

	g := insert(t, tg, "g")
	a := insert(t, tg, "a", g)
	b := insert(t, tg, "b", a)
	tg.AddSolidEntryPoint(a)

	w, err := tg.Walk(b, traversal.Ancestors, nil)
	require.Nil(t, err, "walk error")
	items, err := traversal.Collect(w)
	require.Nil(t, err, "collect error")

	visited := make([]message.Id, 0, len(items))
	for _, item := range items {
		visited = append(visited, item.Id)
	}
	assert.Equal(t, []message.Id{b}, visited, "walk crossed entry point")
}

// no tip ever has a child, however inserts interleave
func TestConcurrentInsertTipInvariant(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{})
	insert(t, tg, "genesis")

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	failures := make(chan error, workers*perWorker)
	for w := 0; w < workers; w += 1 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i += 1 {
				parents, err := tg.SelectTips(2)
				if nil != err {
					failures <- err
					return
				}
				msg, err := message.New(parents, uint64(i), []byte(fmt.Sprintf("%d-%d", w, i)))
				if nil != err {
					failures <- err
					return
				}
				if _, err := tg.Insert(msg, tg.NewMetadata()); nil != err {
					failures <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(failures)
	for err := range failures {
		t.Errorf("worker error: %s", err)
	}

	tips, err := tg.Tips()
	require.Nil(t, err, "tips error")
	assert.NotEmpty(t, tips, "no tips")
	for _, tip := range tips {
		children, err := tg.Children(tip)
		assert.Nil(t, err, "children error")
		assert.Empty(t, children, "tip %v has children", tip)
	}
}
