// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus

import (
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tangled",
		Subsystem: "messagebus",
		Name:      "events_total",
		Help:      "Events published by kind.",
	}, []string{"kind"})
	listenerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tangled",
		Subsystem: "messagebus",
		Name:      "listener_failures_total",
		Help:      "Listener calls that panicked.",
	})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tangled",
		Subsystem: "messagebus",
		Name:      "dropped_total",
		Help:      "Events not delivered to a full channel.",
	})
)

// Listener - callback for events
type Listener func(Event)

// Bus - event distribution
type Bus struct {
	sync.RWMutex
	listeners map[string]Listener
	channels  []chan Event
	log       *logger.L
}

// New - create a bus with no listeners
func New() *Bus {
	return &Bus{
		listeners: make(map[string]Listener),
		channels:  make([]chan Event, 0),
		log:       logger.New("messagebus"),
	}
}

// Subscribe - register a listener, replacing any with the same id
func (b *Bus) Subscribe(id string, listener Listener) {
	b.Lock()
	b.listeners[id] = listener
	b.Unlock()
	b.log.Debugf("subscribed: %q", id)
}

// Unsubscribe - remove a listener, false if it was not registered
func (b *Bus) Unsubscribe(id string) bool {
	b.Lock()
	defer b.Unlock()
	if _, ok := b.listeners[id]; !ok {
		return false
	}
	delete(b.listeners, id)
	return true
}

// Chan - a new buffered channel receiving every later event
func (b *Bus) Chan(size int) <-chan Event {
	if size < 0 {
		size = 0
	}
	c := make(chan Event, size)
	b.Lock()
	b.channels = append(b.channels, c)
	b.Unlock()
	return c
}

// Release - close and drop all channels
func (b *Bus) Release() {
	b.Lock()
	for _, c := range b.channels {
		close(c)
	}
	b.channels = make([]chan Event, 0)
	b.Unlock()
}

// Publish - deliver an event to all listeners and channels
func (b *Bus) Publish(event Event) {
	eventsPublished.WithLabelValues(event.Kind.String()).Inc()

	b.RLock()
	listeners := make(map[string]Listener, len(b.listeners))
	for id, l := range b.listeners {
		listeners[id] = l
	}
	for _, c := range b.channels {
		select {
		case c <- event:
		default:
			eventsDropped.Inc()
		}
	}
	b.RUnlock()

	for id, l := range listeners {
		b.call(id, l, event)
	}
}

func (b *Bus) call(id string, listener Listener, event Event) {
	defer func() {
		if r := recover(); nil != r {
			listenerFailures.Inc()
			b.log.Warnf("listener: %q  event: %s  panic: %v", id, event.Kind, r)
		}
	}()
	listener(event)
}
