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

package essreadout

import (
	"encoding/binary"
	"testing"

	"efu-go/pkg/counters"
)

// buildEnvelope assembles a valid 30-byte header followed by payload,
// with seqNum and outputQueue overridable per test.
func buildEnvelope(t *testing.T, typeSubType uint8, outputQueue uint8, seqNum uint32, payload []byte) []byte {
	t.Helper()
	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = 0 // pad
	buf[1] = 0 // version
	copy(buf[2:5], Cookie)
	buf[5] = typeSubType
	binary.LittleEndian.PutUint16(buf[6:8], uint16(len(buf)))
	buf[8] = outputQueue
	buf[9] = 0 // time source
	binary.LittleEndian.PutUint32(buf[10:14], 17)         // pulse high
	binary.LittleEndian.PutUint32(buf[14:18], 0)          // pulse low
	binary.LittleEndian.PutUint32(buf[18:22], 17)         // prev-pulse high
	binary.LittleEndian.PutUint32(buf[22:26], 0)          // prev-pulse low
	binary.LittleEndian.PutUint32(buf[26:30], seqNum)
	copy(buf[HeaderSize:], payload)
	return buf
}

func newTestStats(t *testing.T) *Stats {
	t.Helper()
	s, err := NewStats(counters.NewFabric("test"), "readout")
	if err != nil {
		t.Fatalf("NewStats: %v", err)
	}
	return s
}

func TestParser_Validate_HappyPath(t *testing.T) {
	stats := newTestStats(t)
	p := NewParser(0x30, 0, stats)

	buf := buildEnvelope(t, 0x30, 23, 1, []byte{0xAA})
	env, _, data, kind, ok := p.Validate(buf, len(buf))
	if !ok || kind != ErrNone {
		t.Fatalf("Validate failed: kind=%v ok=%v", kind, ok)
	}
	if env.OutputQueue != 23 {
		t.Fatalf("OutputQueue = %d, want 23", env.OutputQueue)
	}
	if len(data) != 1 || data[0] != 0xAA {
		t.Fatalf("data = %v, want [0xAA]", data)
	}
	if stats.RxPackets.Value() != 1 {
		t.Fatalf("RxPackets = %d, want 1", stats.RxPackets.Value())
	}
}

func TestParser_Validate_BadCookie(t *testing.T) {
	stats := newTestStats(t)
	p := NewParser(0x30, 0, stats)

	buf := buildEnvelope(t, 0x30, 0, 1, nil)
	copy(buf[2:5], "XXX")

	_, _, _, kind, ok := p.Validate(buf, len(buf))
	if ok || kind != ErrCookie {
		t.Fatalf("kind = %v, ok = %v, want ErrCookie/false", kind, ok)
	}
	if stats.ErrorCookie.Value() != 1 {
		t.Fatalf("ErrorCookie = %d, want 1", stats.ErrorCookie.Value())
	}
}

func TestParser_Validate_BufferTooShort(t *testing.T) {
	stats := newTestStats(t)
	p := NewParser(0x30, 0, stats)

	_, _, _, kind, ok := p.Validate(make([]byte, 10), 10)
	if ok || kind != ErrBuffer {
		t.Fatalf("kind = %v, ok = %v, want ErrBuffer/false", kind, ok)
	}
}

func TestParser_Validate_OutputQueueOutOfRange(t *testing.T) {
	stats := newTestStats(t)
	p := NewParser(0x30, 0, stats)

	buf := buildEnvelope(t, 0x30, MaxOutputQueues, 1, nil)
	_, _, _, kind, ok := p.Validate(buf, len(buf))
	if ok || kind != ErrOutputQueue {
		t.Fatalf("kind = %v, ok = %v, want ErrOutputQueue/false", kind, ok)
	}
}

// S4: a sequence gap on one output-queue is counted, but does not cause
// either packet to be dropped — both return ok=true.
func TestParser_Validate_S4_SequenceGapNotDropped(t *testing.T) {
	stats := newTestStats(t)
	p := NewParser(0x30, 0, stats)

	first := buildEnvelope(t, 0x30, 23, 7, nil)
	_, _, _, kind, ok := p.Validate(first, len(first))
	if !ok || kind != ErrNone {
		t.Fatalf("first packet: kind=%v ok=%v, want ErrNone/true", kind, ok)
	}

	second := buildEnvelope(t, 0x30, 23, 9, nil)
	_, _, _, kind, ok = p.Validate(second, len(second))
	if !ok {
		t.Fatal("second packet: ok = false, want true (sequence gap must not drop the packet)")
	}
	if kind != ErrNone {
		t.Fatalf("second packet: kind = %v, want ErrNone (Validate's return kind only reflects a dropping failure)", kind)
	}
	if got := stats.ErrorSeqNum.Value(); got != 1 {
		t.Fatalf("ErrorSeqNum = %d, want 1", got)
	}
}

func TestParser_Validate_SequenceContinuityNoError(t *testing.T) {
	stats := newTestStats(t)
	p := NewParser(0x30, 0, stats)

	for _, seq := range []uint32{1, 2, 3} {
		buf := buildEnvelope(t, 0x30, 5, seq, nil)
		_, _, _, _, ok := p.Validate(buf, len(buf))
		if !ok {
			t.Fatalf("seq %d: ok = false, want true", seq)
		}
	}
	if got := stats.ErrorSeqNum.Value(); got != 0 {
		t.Fatalf("ErrorSeqNum = %d, want 0", got)
	}
}

func TestParser_Validate_SequenceTrackedIndependentlyPerQueue(t *testing.T) {
	stats := newTestStats(t)
	p := NewParser(0x30, 0, stats)

	bufA := buildEnvelope(t, 0x30, 1, 1, nil)
	bufB := buildEnvelope(t, 0x30, 2, 1, nil)
	if _, _, _, _, ok := p.Validate(bufA, len(bufA)); !ok {
		t.Fatal("queue 1 seq 1: want ok")
	}
	if _, _, _, _, ok := p.Validate(bufB, len(bufB)); !ok {
		t.Fatal("queue 2 seq 1: want ok")
	}
	if got := stats.ErrorSeqNum.Value(); got != 0 {
		t.Fatalf("ErrorSeqNum = %d, want 0 (distinct queues must not share sequence state)", got)
	}
}

func TestParser_Validate_Heartbeat(t *testing.T) {
	stats := newTestStats(t)
	p := NewParser(0x30, 0, stats)

	buf := buildEnvelope(t, 0x30, 0, 1, nil)
	env, _, data, _, ok := p.Validate(buf, len(buf))
	if !ok {
		t.Fatal("want ok")
	}
	if env.DataLen != 0 || len(data) != 0 {
		t.Fatalf("DataLen = %d, len(data) = %d, want 0/0", env.DataLen, len(data))
	}
	if stats.Heartbeats.Value() != 1 {
		t.Fatalf("Heartbeats = %d, want 1", stats.Heartbeats.Value())
	}
}

func TestParser_Validate_SizeMismatch(t *testing.T) {
	stats := newTestStats(t)
	p := NewParser(0x30, 0, stats)

	buf := buildEnvelope(t, 0x30, 0, 1, []byte{1, 2, 3})
	// Truncate what we hand to Validate so totalLength (encoded for the
	// full buffer) no longer matches n.
	_, _, _, kind, ok := p.Validate(buf, len(buf)-1)
	if ok || kind != ErrSize {
		t.Fatalf("kind = %v, ok = %v, want ErrSize/false", kind, ok)
	}
}
