// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ring

import "sync/atomic"

// SlotFifo is a lock-free single-producer/single-consumer queue of slot
// indices. Capacity must be a power of two. Push fails when the queue is
// full (consumer lagging); the producer reuses the slot on the next Reserve
// lap rather than retrying the push.
type SlotFifo struct {
	buf  []int32
	mask uint64

	// head is advanced only by the consumer (Pop), tail only by the producer
	// (Push). Each is a plain atomic counter; the gap between them is the
	// number of queued entries.
	head atomic.Uint64
	tail atomic.Uint64
}

// NewSlotFifo creates a FIFO with capacity rounded up to the next power of
// two (minimum 2).
func NewSlotFifo(capacity int) *SlotFifo {
	n := 2
	for n < capacity {
		n <<= 1
	}
	return &SlotFifo{buf: make([]int32, n), mask: uint64(n - 1)}
}

// Cap returns the usable capacity (a power of two).
func (f *SlotFifo) Cap() int { return len(f.buf) }

// Push enqueues a slot index. It returns false if the queue is full.
// Single-producer only; must not be called concurrently from multiple
// goroutines.
func (f *SlotFifo) Push(idx int) bool {
	head := f.head.Load()
	tail := f.tail.Load()
	if tail-head >= uint64(len(f.buf)) {
		return false
	}
	f.buf[tail&f.mask] = int32(idx)
	f.tail.Store(tail + 1)
	return true
}

// Pop dequeues the oldest slot index. ok is false if the queue is empty.
// Single-consumer only; must not be called concurrently from multiple
// goroutines.
func (f *SlotFifo) Pop() (idx int, ok bool) {
	head := f.head.Load()
	tail := f.tail.Load()
	if head == tail {
		return 0, false
	}
	v := f.buf[head&f.mask]
	f.head.Store(head + 1)
	return int(v), true
}

// Len returns an approximate current occupancy; safe to call from either side.
func (f *SlotFifo) Len() int {
	return int(f.tail.Load() - f.head.Load())
}
