// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tangle_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/tangled/fault"
	"github.com/bitmark-inc/tangled/message"
	"github.com/bitmark-inc/tangled/messagebus"
	"github.com/bitmark-inc/tangled/metadata"
	"github.com/bitmark-inc/tangled/storage"
	"github.com/bitmark-inc/tangled/storage/mocks"
	"github.com/bitmark-inc/tangled/tangle"
)

var errDiskFailure = fault.NewBackendError("insert", errors.New("disk failure"))

func TestParentNotSelectableOnceChildVisible(t *testing.T) {
	backend := newHookedBackend()
	tg := startOn(t, tangle.Config{}, backend)

	a := insert(t, tg, "a")
	bId, b := makeMessage(t, "b", a)

	// hold the commit marker of b until released
	writing := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	backend.metadata.onInsert(func(key []byte) error {
		if bytes.Equal(key, bId[:]) {
			once.Do(func() { close(writing) })
			<-proceed
		}
		return nil
	})

	inserted := make(chan error, 1)
	go func() {
		_, err := tg.Insert(b, tg.NewMetadata())
		inserted <- err
	}()
	<-writing

	children, err := tg.Children(a)
	require.Nil(t, err, "children error")
	require.Equal(t, []message.Id{bId}, children, "edge of b not written yet")

	selected := make(chan []message.Id, 1)
	go func() {
		tips, err := tg.SelectTips(1)
		assert.Nil(t, err, "select error")
		selected <- tips
	}()

	select {
	case tips := <-selected:
		t.Fatalf("tips selected while b was being written: %v", tips)
	case <-time.After(100 * time.Millisecond):
	}

	close(proceed)
	require.Nil(t, <-inserted, "insert b error")

	select {
	case tips := <-selected:
		assert.Equal(t, []message.Id{bId}, tips, "parent still selectable")
	case <-time.After(5 * time.Second):
		t.Fatal("select did not return")
	}
	assert.False(t, tg.IsTip(a), "a still a tip")
}

// a memory backend with its children table replaced
type edgeBackend struct {
	storage.Backend
	children storage.Handle
}

func (b *edgeBackend) Children() storage.Handle {
	return b.children
}

func TestInsertReportsTipCheckFailure(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	memory := storage.NewMemory()
	children := mocks.NewMockHandle(ctl)
	children.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(memory.Children().Insert).AnyTimes()
	children.EXPECT().Map(gomock.Any(), gomock.Any()).Return(errDiskFailure).AnyTimes()

	tg := startOn(t, tangle.Config{}, &edgeBackend{Backend: memory, children: children})
	r := record(tg)

	id, msg := makeMessage(t, "unlucky")
	inserted, err := tg.Insert(msg, tg.NewMetadata())
	assert.True(t, inserted, "stored message reported as not inserted")
	assert.True(t, fault.IsErrBackend(err), "backend failure swallowed: %v", err)

	found, err := tg.Contains(id)
	assert.Nil(t, err, "contains error")
	assert.True(t, found, "message not stored")
	assert.False(t, tg.IsTip(id), "unchecked message added as a tip")
	assert.Equal(t, []messagebus.Kind{messagebus.MessageParsed}, r.kinds(id), "events")
}

func TestUpdateEvictedMessageUnderPressure(t *testing.T) {
	tg, _ := startTangle(t, tangle.Config{CacheCapacity: 1})

	a := insert(t, tg, "a")
	_, err := tg.UpdateMetadata(a, func(m *metadata.Metadata) {
		m.Reference(10)
		m.SetMilestoneIndex(1)
	})
	require.Nil(t, err, "reference a error")

	insert(t, tg, "b")
	require.False(t, tg.IsResident(a), "a not evicted")

	done := make(chan error, 1)
	go func() {
		meta, err := tg.UpdateMetadata(a, func(m *metadata.Metadata) {
			m.SetRequested(true)
		})
		if nil == err && !meta.IsRequested() {
			err = errors.New("update not applied")
		}
		done <- err
	}()

	select {
	case err := <-done:
		assert.Nil(t, err, "update error")
	case <-time.After(5 * time.Second):
		t.Fatal("update of an evicted message did not return")
	}

	stopped := make(chan error, 1)
	go func() {
		stopped <- tg.Shutdown()
	}()
	select {
	case err := <-stopped:
		assert.Nil(t, err, "shutdown error")
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not return")
	}
}

func TestShutdownRetriesFailedFlush(t *testing.T) {
	backend := newHookedBackend()
	tg := startOn(t, tangle.Config{FlushInterval: time.Hour}, backend)

	a := insert(t, tg, "a")
	_, err := tg.UpdateMetadata(a, func(m *metadata.Metadata) {
		m.SetRequested(true)
	})
	require.Nil(t, err, "update error")

	backend.metadata.onInsert(func(key []byte) error {
		return errDiskFailure
	})
	assert.Equal(t, errDiskFailure, tg.Shutdown(), "flush failure not reported")

	_, err = tg.Get(a)
	assert.Equal(t, fault.ErrNotRunning, err, "operation after failed shutdown")
	health, _, err := backend.Health()
	assert.Nil(t, err, "health error")
	assert.Equal(t, storage.Corrupted, health, "unflushed store marked idle")

	backend.metadata.onInsert(nil)
	assert.Nil(t, tg.Shutdown(), "retry error")
	health, _, err = backend.Health()
	assert.Nil(t, err, "health error")
	assert.Equal(t, storage.Idle, health, "store not marked idle")
	assert.Equal(t, fault.ErrNotRunning, tg.Shutdown(), "third shutdown")

	record, err := backend.Metadata().Fetch(a[:])
	require.Nil(t, err, "fetch error")
	stored, err := metadata.Unpack(record)
	require.Nil(t, err, "unpack error")
	assert.True(t, stored.IsRequested(), "update lost")
}
