// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cache_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/tangled/cache"
	"github.com/bitmark-inc/tangled/fault"
	"github.com/bitmark-inc/tangled/metadata"
	"github.com/bitmark-inc/tangled/storage/mocks"
)

var errDiskFailure = fault.NewBackendError("insert", errors.New("disk failure"))

func TestInsertCheckFailure(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	metaHandle := mocks.NewMockHandle(ctl)
	backend := mocks.NewMockBackend(ctl)
	backend.EXPECT().Metadata().Return(metaHandle).AnyTimes()

	id, msg := makeMessage(t, "unlucky")
	metaHandle.EXPECT().Has(id[:]).Return(false, errDiskFailure).Times(1)

	c := cache.New(backend, 10)
	ok, err := c.Insert(id, msg, metadata.New(1))
	assert.False(t, ok, "insert reported success")
	assert.True(t, fault.IsErrBackend(err), "backend failure not returned")
	assert.Equal(t, 0, c.Len(), "failed insert left an entry")
}

func TestInsertPersistFailureRollsBack(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	msgHandle := mocks.NewMockHandle(ctl)
	metaHandle := mocks.NewMockHandle(ctl)
	backend := mocks.NewMockBackend(ctl)
	backend.EXPECT().Messages().Return(msgHandle).AnyTimes()
	backend.EXPECT().Metadata().Return(metaHandle).AnyTimes()

	id, msg := makeMessage(t, "half written")
	gomock.InOrder(
		metaHandle.EXPECT().Has(id[:]).Return(false, nil),
		msgHandle.EXPECT().Insert(id[:], msg.Pack()).Return(nil),
		metaHandle.EXPECT().Insert(id[:], gomock.Any()).Return(errDiskFailure),
		msgHandle.EXPECT().Delete(id[:]).Return(nil),
	)

	c := cache.New(backend, 10)
	ok, err := c.Insert(id, msg, metadata.New(1))
	assert.False(t, ok, "insert reported success")
	assert.Equal(t, errDiskFailure, err, "wrong error")
	assert.Equal(t, 0, c.Len(), "rolled back entry counted")
	assert.False(t, c.IsResident(id), "rolled back entry resident")
}

func TestReadThroughFailure(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	metaHandle := mocks.NewMockHandle(ctl)
	backend := mocks.NewMockBackend(ctl)
	backend.EXPECT().Metadata().Return(metaHandle).AnyTimes()

	id, _ := makeMessage(t, "unreadable")
	metaHandle.EXPECT().Fetch(id[:]).Return(nil, errDiskFailure).Times(1)

	c := cache.New(backend, 10)
	msg, err := c.Get(id)
	assert.Nil(t, msg, "message returned on failure")
	assert.True(t, fault.IsErrBackend(err), "backend failure hidden as not found")
}

func TestEvictionWaitsForFailedFlush(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	msgHandle := mocks.NewMockHandle(ctl)
	metaHandle := mocks.NewMockHandle(ctl)
	backend := mocks.NewMockBackend(ctl)
	backend.EXPECT().Messages().Return(msgHandle).AnyTimes()
	backend.EXPECT().Metadata().Return(metaHandle).AnyTimes()

	xId, x := makeMessage(t, "x")
	yId, y := makeMessage(t, "y")

	metaHandle.EXPECT().Has(gomock.Any()).Return(false, nil).Times(2)
	msgHandle.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	// two commit markers, then the write-behind record of x fails
	metaHandle.EXPECT().Insert(xId[:], gomock.Any()).Return(nil).Times(1)
	metaHandle.EXPECT().Insert(yId[:], gomock.Any()).Return(nil).Times(1)

	c := cache.New(backend, 1)
	_, err := c.Insert(xId, x, metadata.New(1))
	assert.Nil(t, err, "insert x error")

	metaHandle.EXPECT().Insert(xId[:], gomock.Any()).Return(errDiskFailure).Times(1)

	_, err = c.UpdateMetadata(xId, func(m *metadata.Metadata) {
		m.Reference(3)
	})
	assert.Nil(t, err, "update error")

	_, err = c.Insert(yId, y, metadata.New(2))
	assert.Nil(t, err, "insert y error")

	assert.True(t, c.IsResident(xId), "unflushed entry evicted")
	assert.Equal(t, 2, c.Len(), "wrong length")
}

func TestReadersNeverSeeRolledBackInsert(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	msgHandle := mocks.NewMockHandle(ctl)
	metaHandle := mocks.NewMockHandle(ctl)
	backend := mocks.NewMockBackend(ctl)
	backend.EXPECT().Messages().Return(msgHandle).AnyTimes()
	backend.EXPECT().Metadata().Return(metaHandle).AnyTimes()

	id, msg := makeMessage(t, "never committed")

	writing := make(chan struct{})
	proceed := make(chan struct{})
	metaHandle.EXPECT().Has(id[:]).Return(false, nil).AnyTimes()
	metaHandle.EXPECT().Fetch(id[:]).Return(nil, nil).AnyTimes()
	msgHandle.EXPECT().Insert(id[:], msg.Pack()).Return(nil).Times(1)
	msgHandle.EXPECT().Delete(id[:]).Return(nil).Times(1)
	metaHandle.EXPECT().Insert(id[:], gomock.Any()).DoAndReturn(func(key []byte, value []byte) error {
		close(writing)
		<-proceed
		return errDiskFailure
	}).Times(1)

	c := cache.New(backend, 10)

	inserted := make(chan error, 1)
	go func() {
		_, err := c.Insert(id, msg, metadata.New(1))
		inserted <- err
	}()
	<-writing

	type result struct {
		msg   bool
		found bool
		err   error
	}
	readers := make(chan result, 2)
	go func() {
		m, err := c.Get(id)
		readers <- result{msg: nil != m, err: err}
	}()
	go func() {
		found, err := c.Contains(id)
		readers <- result{found: found, err: err}
	}()

	// let the readers reach the entry before the write fails
	time.Sleep(50 * time.Millisecond)
	close(proceed)

	assert.Equal(t, errDiskFailure, <-inserted, "wrong insert error")
	for i := 0; i < 2; i += 1 {
		select {
		case r := <-readers:
			assert.Nil(t, r.err, "reader: %d error", i)
			assert.False(t, r.msg, "reader: %d saw an uncommitted message", i)
			assert.False(t, r.found, "reader: %d found an uncommitted message", i)
		case <-time.After(5 * time.Second):
			t.Fatalf("reader: %d did not return", i)
		}
	}
}
