// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2021 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package traversal

import (
	"github.com/bitmark-inc/tangled/fault"
	"github.com/bitmark-inc/tangled/message"
	"github.com/bitmark-inc/tangled/metadata"
)

// Direction - which edges to follow
type Direction int

// possible directions
const (
	Ancestors Direction = iota
	Descendants
)

func (d Direction) String() string {
	switch d {
	case Ancestors:
		return "ancestors"
	case Descendants:
		return "descendants"
	default:
		return "*unknown*"
	}
}

// Graph - the read access a walk needs
type Graph interface {
	GetAll(id message.Id) (*message.Message, *metadata.Metadata, error)
	Children(id message.Id) ([]message.Id, error)
}

// Predicate - false stops the walk expanding beyond this node
type Predicate func(id message.Id, meta *metadata.Metadata) bool

// Boundary - true for ids an ancestor walk must not enter
type Boundary func(id message.Id) bool

// Item - one node produced by a walk
type Item struct {
	Id       message.Id
	Message  *message.Message
	Metadata *metadata.Metadata
}

// Walker - a lazy breadth first walk
//
//	w, err := traversal.New(graph, start, traversal.Ancestors, nil, nil)
//	for w.Next() {
//	        item := w.Item()
//	        ...
//	}
//	if err := w.Err(); nil != err {
//	        ...
//	}
type Walker struct {
	graph          Graph
	direction      Direction
	shouldContinue Predicate
	boundary       Boundary
	queue          []message.Id
	visited        map[message.Id]struct{}
	item           Item
	err            error
}

// New - prepare a walk, nil predicate and boundary accept everything
func New(graph Graph, start message.Id, direction Direction, shouldContinue Predicate, boundary Boundary) (*Walker, error) {
	if Ancestors != direction && Descendants != direction {
		return nil, fault.ErrInvalidDirection
	}
	w := &Walker{
		graph:          graph,
		direction:      direction,
		shouldContinue: shouldContinue,
		boundary:       boundary,
		visited:        map[message.Id]struct{}{start: {}},
	}
	if !w.isBoundary(start) {
		w.queue = []message.Id{start}
	}
	return w, nil
}

func (w *Walker) isBoundary(id message.Id) bool {
	return Ancestors == w.direction && nil != w.boundary && w.boundary(id)
}

// Next - advance to the next node, false when the walk is exhausted
// or has failed
func (w *Walker) Next() bool {
	for 0 != len(w.queue) {
		id := w.queue[0]
		w.queue = w.queue[1:]

		msg, meta, err := w.graph.GetAll(id)
		if nil != err {
			w.fail(err)
			return false
		}

		// unknown nodes are skipped
		if nil == msg {
			continue
		}

		w.item = Item{
			Id:       id,
			Message:  msg,
			Metadata: meta,
		}

		if nil == w.shouldContinue || w.shouldContinue(id, meta) {
			if err := w.expand(id, msg); nil != err {
				w.fail(err)
				return false
			}
		}
		return true
	}
	return false
}

func (w *Walker) expand(id message.Id, msg *message.Message) error {
	var next []message.Id
	switch w.direction {
	case Ancestors:
		next = msg.Parents
	case Descendants:
		children, err := w.graph.Children(id)
		if nil != err {
			return err
		}
		next = children
	}

	for _, n := range next {
		if _, seen := w.visited[n]; seen {
			continue
		}
		w.visited[n] = struct{}{}
		if w.isBoundary(n) {
			continue
		}
		w.queue = append(w.queue, n)
	}
	return nil
}

func (w *Walker) fail(err error) {
	w.err = err
	w.queue = nil
	w.item = Item{}
}

// Item - the current node
func (w *Walker) Item() Item {
	return w.item
}

// Err - the backend error that ended the walk, if any
func (w *Walker) Err() error {
	return w.err
}

// Collect - run a walk to completion
func Collect(w *Walker) ([]Item, error) {
	items := make([]Item, 0)
	for w.Next() {
		items = append(items, w.Item())
	}
	if nil != w.Err() {
		return nil, w.Err()
	}
	return items, nil
}
