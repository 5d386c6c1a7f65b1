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

// Package ev44 serializes (time-of-flight, pixel-id) events into the
// broker's wire message. The flatbuffer schema itself is out of scope;
// this package owns only the accumulation/flush contract a broker
// producer is driven by.
package ev44

// Producer is the external broker collaborator. Only its produce
// signature is consumed.
type Producer interface {
	Produce(payload []byte, referenceTimeNS uint64) error
}

// FlushReason names why a Serializer produced a message, for the
// counters a caller may want to attach to each reason.
type FlushReason int

const (
	ReasonNone FlushReason = iota
	ReasonPulseChange
	ReasonMaxEvents
	ReasonTimeout
	ReasonExplicit
)

// event is one accumulated (time-of-flight, pixel) pair plus the
// reference-time index active when it was added.
type event struct {
	tofNS             int64
	pixel             int
	referenceTimeIndex int
}

// Serializer accumulates events against a single reference time and
// flushes them as one message, either because the reference time
// changed, the message filled up, or a periodic timer fired.
type Serializer struct {
	sourceName string
	maxEvents  int
	producer   Producer

	referenceTimeNS    uint64
	referenceTimeIndex int
	haveReference      bool

	events []event

	messageID uint64

	BytesSent     uint64
	MessagesSent  uint64
	ProducesEmpty uint64
}

// NewSerializer constructs a Serializer pre-sized to maxEvents entries.
func NewSerializer(sourceName string, maxEvents int, producer Producer) *Serializer {
	return &Serializer{
		sourceName: sourceName,
		maxEvents:  maxEvents,
		producer:   producer,
		events:     make([]event, 0, maxEvents),
	}
}

// CheckAndSetReferenceTime flushes the current message (reason:
// "pulse change") if refNS differs from the currently held reference,
// then adopts refNS as the new reference.
func (s *Serializer) CheckAndSetReferenceTime(refNS uint64) error {
	if s.haveReference && refNS != s.referenceTimeNS {
		if err := s.produce(ReasonPulseChange); err != nil {
			return err
		}
		s.referenceTimeIndex++
	}
	s.referenceTimeNS = refNS
	s.haveReference = true
	return nil
}

// AddEvent appends one (tof, pixel) pair. If the message reaches
// maxEvents, it is produced immediately (reason: "max events").
func (s *Serializer) AddEvent(tofNS int64, pixel int) error {
	s.events = append(s.events, event{tofNS: tofNS, pixel: pixel, referenceTimeIndex: s.referenceTimeIndex})
	if len(s.events) >= s.maxEvents {
		return s.produce(ReasonMaxEvents)
	}
	return nil
}

// Flush produces the current message unconditionally (reason:
// "timeout"), e.g. from a periodic timer. Safe to call when empty.
func (s *Serializer) Flush() error {
	return s.produce(ReasonTimeout)
}

// produce finishes the pending message and hands it to the broker
// producer with the current reference time as the message timestamp,
// then resets. Calling it on an empty Serializer only bumps
// ProducesEmpty.
func (s *Serializer) produce(reason FlushReason) error {
	if len(s.events) == 0 {
		s.ProducesEmpty++
		return nil
	}

	payload := s.encode()
	if err := s.producer.Produce(payload, s.referenceTimeNS); err != nil {
		return err
	}

	s.BytesSent += uint64(len(payload))
	s.MessagesSent++
	s.messageID++
	s.events = s.events[:0]
	return nil
}

// encode produces a minimal, self-describing fixed-width encoding of the
// pending events. The real broker schema is an external concern; this
// representation exists so the accumulation/flush contract above is
// exercisable end to end without it.
func (s *Serializer) encode() []byte {
	const recordSize = 8 + 4 + 4 // tof int64, pixel int32, ref-time-index int32
	buf := make([]byte, 0, recordSize*len(s.events))
	for _, e := range s.events {
		buf = appendUint64(buf, uint64(e.tofNS))
		buf = appendUint32(buf, uint32(e.pixel))
		buf = appendUint32(buf, uint32(e.referenceTimeIndex))
	}
	return buf
}

func appendUint64(b []byte, v uint64) []byte {
	return append(b,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
