// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package event implements the discrete-event scheduler that drives the simulation. Time is
// simulated time in microseconds. Callbacks scheduled for the same instant run in the order they
// were scheduled.
package event

import (
	"container/heap"

	"github.com/wpansim/wpansim/logger"
	. "github.com/wpansim/wpansim/types"
)

// Scheduler is the scheduling service used by the PHY, CSMA-CA and MAC.
type Scheduler interface {
	// Now returns the current simulated time in us.
	Now() uint64
	// Schedule runs fn after delay us. The returned Handle can cancel it.
	Schedule(delay uint64, fn func()) *Handle
}

// Handle refers to one scheduled callback.
type Handle struct {
	Timestamp uint64

	fn    func()
	seq   uint64
	index int
	owner *Queue
}

// Cancel removes the callback from its queue. It is safe to call on a nil, expired or already
// cancelled Handle.
func (h *Handle) Cancel() {
	if h == nil || h.owner == nil {
		return
	}
	heap.Remove(&h.owner.q, h.index)
	h.owner = nil
}

// IsRunning returns true while the callback is still pending.
func (h *Handle) IsRunning() bool {
	return h != nil && h.owner != nil
}

type handleQueue []*Handle

func (hq handleQueue) Len() int {
	return len(hq)
}

func (hq handleQueue) Less(i, j int) bool {
	if hq[i].Timestamp != hq[j].Timestamp {
		return hq[i].Timestamp < hq[j].Timestamp
	}
	return hq[i].seq < hq[j].seq
}

func (hq handleQueue) Swap(i, j int) {
	a, b := hq[i], hq[j]
	if a.index != i || b.index != j {
		logger.Panicf("wrong index")
	}

	hq[i], hq[j] = b, a
	hq[i].index, hq[j].index = i, j
}

func (hq *handleQueue) Push(x interface{}) {
	h := x.(*Handle)
	*hq = append(*hq, h)
	h.index = len(*hq) - 1
}

func (hq *handleQueue) Pop() (elem interface{}) {
	n := len(*hq)
	h := (*hq)[n-1]
	(*hq)[n-1] = nil
	*hq = (*hq)[:n-1]
	h.index = -1
	return h
}

// Queue is a Scheduler that executes callbacks in timestamp order. It is not goroutine-safe.
type Queue struct {
	q           handleQueue
	now         uint64
	seq         uint64
	numExecuted uint64
}

func NewQueue() *Queue {
	eq := &Queue{
		q: handleQueue{},
	}
	heap.Init(&eq.q)
	return eq
}

func (eq *Queue) Now() uint64 {
	return eq.now
}

func (eq *Queue) Schedule(delay uint64, fn func()) *Handle {
	logger.AssertTrue(delay < Ever-eq.now, "delay overflows simulated time")
	return eq.ScheduleAt(eq.now+delay, fn)
}

// ScheduleAt runs fn at the absolute time ts, which must not lie in the past.
func (eq *Queue) ScheduleAt(ts uint64, fn func()) *Handle {
	logger.AssertTrue(ts >= eq.now, "cannot schedule in the past")
	logger.AssertNotNil(fn)
	eq.seq++
	h := &Handle{
		Timestamp: ts,
		fn:        fn,
		seq:       eq.seq,
		owner:     eq,
	}
	heap.Push(&eq.q, h)
	return h
}

// Len returns the number of pending callbacks.
func (eq *Queue) Len() int {
	return len(eq.q)
}

// NextTimestamp returns the time of the next pending callback, or Ever if none is pending.
func (eq *Queue) NextTimestamp() uint64 {
	if len(eq.q) == 0 {
		return Ever
	}
	return eq.q[0].Timestamp
}

// NumExecuted returns the number of callbacks executed so far.
func (eq *Queue) NumExecuted() uint64 {
	return eq.numExecuted
}

// Step executes the next pending callback, advancing time to its timestamp. Returns false
// if nothing was pending.
func (eq *Queue) Step() bool {
	if len(eq.q) == 0 {
		return false
	}
	h := heap.Pop(&eq.q).(*Handle)
	h.owner = nil
	eq.now = h.Timestamp
	eq.numExecuted++
	h.fn()
	return true
}

// RunUntil executes all callbacks with a timestamp up to and including ts, then sets the time to ts.
// It returns the number of callbacks executed.
func (eq *Queue) RunUntil(ts uint64) int {
	logger.AssertTrue(ts >= eq.now)
	n := 0
	for len(eq.q) > 0 && eq.q[0].Timestamp <= ts {
		eq.Step()
		n++
	}
	eq.now = ts
	return n
}

// Clear drops all pending callbacks without executing them.
func (eq *Queue) Clear() {
	for len(eq.q) > 0 {
		h := heap.Pop(&eq.q).(*Handle)
		h.owner = nil
	}
}
