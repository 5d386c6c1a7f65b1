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

// Package ring provides the fixed-capacity packet ring and the
// single-producer/single-consumer slot FIFO that decouples UDP ingress from
// packet processing. Neither type allocates on the hot path.
package ring

// DefaultSlotCapacity is sized for jumbo frames (MTU >= 9000).
const DefaultSlotCapacity = 9000

// DefaultSlotCount comfortably exceeds a typical consumer-latency burst.
const DefaultSlotCount = 20003

// Slot is a fixed-size packet buffer plus the length currently written into it.
// Ownership is exclusive: Ingress while the slot's index is not queued in the
// FIFO, the processing stage once it pops the index.
type Slot struct {
	Buf [DefaultSlotCapacity]byte
	Len int
}

// PacketRing is an array of fixed-size slots plus a monotonically advancing
// write cursor. It never shrinks and never allocates after construction.
type PacketRing struct {
	slots []Slot
	next  uint64
}

// NewPacketRing allocates a ring of n slots. n must be > 0.
func NewPacketRing(n int) *PacketRing {
	if n <= 0 {
		n = DefaultSlotCount
	}
	return &PacketRing{slots: make([]Slot, n)}
}

// Len reports the number of slots in the ring.
func (r *PacketRing) Len() int { return len(r.slots) }

// Reserve returns the index of the next slot to fill. It is O(1), infallible,
// and never blocks. The caller (Ingress) owns the returned slot exclusively
// until it either commits a length into it or abandons it; either way the
// next Reserve call will reuse the same index on the next lap.
func (r *PacketRing) Reserve() int {
	idx := int(r.next % uint64(len(r.slots)))
	r.next++
	return idx
}

// Slot returns a pointer to the buffer at idx for the caller to fill or read.
func (r *PacketRing) Slot(idx int) *Slot { return &r.slots[idx] }

// Commit records the payload length written into slot idx.
func (r *PacketRing) Commit(idx int, n int) { r.slots[idx].Len = n }
