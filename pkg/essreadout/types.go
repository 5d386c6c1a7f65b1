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

// Package essreadout implements the ESS readout envelope parser shared by
// every detector module: header integrity, sequence continuity, and
// pulse-time bookkeeping, plus the time-reference subsystem that converts
// pulse/readout high-low clock pairs into TOF.
package essreadout

import "efu-go/pkg/counters"

const (
	// HeaderSize is the fixed preamble size in bytes.
	HeaderSize = 30

	// Cookie is the required 3-byte magic.
	Cookie = "ESS"

	// MaxOutputQueues bounds the output-queue id (must be < this).
	MaxOutputQueues = 24

	// MaxFracTicks bounds PulseLow/PrevPulseLow/readout TimeLow fields.
	MaxFracTicks = 88_052_500

	// nsPerSecond is 10^9.
	nsPerSecond = 1_000_000_000
)

// PulseTime is a high/low (seconds, fractional-tick) reference pair.
type PulseTime struct {
	High uint32
	Low  uint32
}

// ToNS converts a PulseTime to absolute nanoseconds using the fixed
// rational conversion specified for the ESS clock: ns = high*1e9 +
// low*(1e9/88_052_500).
func (p PulseTime) ToNS() uint64 {
	return ToNS(p.High, p.Low)
}

// ToNS applies the fixed ESS clock conversion to an arbitrary high/low pair
// (used for both pulse times and per-readout TimeHigh/TimeLow).
func ToNS(high, low uint32) uint64 {
	return uint64(high)*nsPerSecond + uint64(low)*nsPerSecond/MaxFracTicks
}

// Envelope is the normalized, version-independent view of an ESS readout
// header. Version 1's heartbeat variant is parsed into the same shape.
type Envelope struct {
	Version     uint8
	Type        uint8
	TotalLength uint16
	OutputQueue uint8
	TimeSource  uint8
	Pulse       PulseTime
	PrevPulse   PulseTime
	SeqNum      uint32

	// DataLen is TotalLength - HeaderSize; 0 marks a heartbeat.
	DataLen int
}

// ErrorKind enumerates the distinct envelope-validation failures. Each kind
// maps to exactly one counter in Stats.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrBuffer
	ErrSize
	ErrCookie
	ErrVersion
	ErrPad
	ErrOutputQueue
	ErrTypeSubType
	ErrTimeHigh
	ErrTimeFrac
	ErrSeqNum
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "None"
	case ErrBuffer:
		return "Buffer"
	case ErrSize:
		return "Size"
	case ErrCookie:
		return "Cookie"
	case ErrVersion:
		return "Version"
	case ErrPad:
		return "Pad"
	case ErrOutputQueue:
		return "OutputQueue"
	case ErrTypeSubType:
		return "TypeSubType"
	case ErrTimeHigh:
		return "TimeHigh"
	case ErrTimeFrac:
		return "TimeFrac"
	case ErrSeqNum:
		return "SeqNum"
	default:
		return "Unknown"
	}
}

// Stats holds one counter handle per ErrorKind plus the ambient
// heartbeat/packet counters the parser maintains.
type Stats struct {
	ErrorBuffer      *counters.Handle
	ErrorSize        *counters.Handle
	ErrorCookie      *counters.Handle
	ErrorVersion     *counters.Handle
	ErrorPad         *counters.Handle
	ErrorOutputQueue *counters.Handle
	ErrorTypeSubType *counters.Handle
	ErrorTimeHigh    *counters.Handle
	ErrorTimeFrac    *counters.Handle
	ErrorSeqNum      *counters.Handle
	Heartbeats       *counters.Handle
	RxPackets        *counters.Handle
}

// NewStats registers every readout-parser counter on fabric under the given
// name prefix (e.g. "readout").
func NewStats(fabric *counters.Fabric, prefix string) (*Stats, error) {
	s := &Stats{}
	var err error
	create := func(name string) *counters.Handle {
		if err != nil {
			return nil
		}
		var h *counters.Handle
		h, err = fabric.Create(prefix + "." + name)
		return h
	}
	s.ErrorBuffer = create("ErrorBuffer")
	s.ErrorSize = create("ErrorSize")
	s.ErrorCookie = create("ErrorCookie")
	s.ErrorVersion = create("ErrorVersion")
	s.ErrorPad = create("ErrorPad")
	s.ErrorOutputQueue = create("ErrorOutputQueue")
	s.ErrorTypeSubType = create("ErrorTypeSubType")
	s.ErrorTimeHigh = create("ErrorTimeHigh")
	s.ErrorTimeFrac = create("ErrorTimeFrac")
	s.ErrorSeqNum = create("ErrorSeqNum")
	s.Heartbeats = create("Heartbeats")
	s.RxPackets = create("RxPackets")
	if err != nil {
		return nil, err
	}
	return s, nil
}

// bump increments the handle for kind, if any is registered for it.
func (s *Stats) bump(kind ErrorKind) {
	var h *counters.Handle
	switch kind {
	case ErrBuffer:
		h = s.ErrorBuffer
	case ErrSize:
		h = s.ErrorSize
	case ErrCookie:
		h = s.ErrorCookie
	case ErrVersion:
		h = s.ErrorVersion
	case ErrPad:
		h = s.ErrorPad
	case ErrOutputQueue:
		h = s.ErrorOutputQueue
	case ErrTypeSubType:
		h = s.ErrorTypeSubType
	case ErrTimeHigh:
		h = s.ErrorTimeHigh
	case ErrTimeFrac:
		h = s.ErrorTimeFrac
	case ErrSeqNum:
		h = s.ErrorSeqNum
	}
	if h != nil {
		h.Inc()
	}
}
