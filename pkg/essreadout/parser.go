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

import "encoding/binary"

// Parser validates the ESS envelope header and tracks per-output-queue
// sequence numbers plus pulse-time continuity across packets. One Parser is
// owned by a single processing goroutine; it is not safe for concurrent use.
type Parser struct {
	expectedType       uint8
	maxPulseTimeDiffNS uint64

	stats *Stats

	seqSeen [MaxOutputQueues]bool
	seqPrev [MaxOutputQueues]uint32

	havePulse   bool
	lastPulseNS uint64
}

// NewParser constructs a Parser for a detector expecting the given
// type/subtype byte. maxPulseTimeDiffNS of 0 disables the TimeHigh jump
// check.
func NewParser(expectedType uint8, maxPulseTimeDiffNS uint64, stats *Stats) *Parser {
	return &Parser{expectedType: expectedType, maxPulseTimeDiffNS: maxPulseTimeDiffNS, stats: stats}
}

// Validate parses and validates buf[:n] as an ESS envelope. On success it
// returns the normalized Envelope and a ready TimeRef; data is the payload
// slice (buf[HeaderSize:n]). On failure, kind identifies the failure and ok
// is false; the caller must drop the packet.
func (p *Parser) Validate(buf []byte, n int) (env Envelope, ref TimeRef, data []byte, kind ErrorKind, ok bool) {
	if buf == nil || n < HeaderSize {
		p.stats.bump(ErrBuffer)
		return Envelope{}, TimeRef{}, nil, ErrBuffer, false
	}

	pad := buf[0]
	version := buf[1]
	cookie := string(buf[2:5])
	typeSubType := buf[5]
	totalLength := binary.LittleEndian.Uint16(buf[6:8])
	outputQueue := buf[8]
	timeSource := buf[9]
	pulseHigh := binary.LittleEndian.Uint32(buf[10:14])
	pulseLow := binary.LittleEndian.Uint32(buf[14:18])
	prevPulseHigh := binary.LittleEndian.Uint32(buf[18:22])
	prevPulseLow := binary.LittleEndian.Uint32(buf[22:26])
	seqNum := binary.LittleEndian.Uint32(buf[26:30])

	if pad != 0 {
		p.stats.bump(ErrPad)
		return Envelope{}, TimeRef{}, nil, ErrPad, false
	}
	if version != 0 && version != 1 {
		p.stats.bump(ErrVersion)
		return Envelope{}, TimeRef{}, nil, ErrVersion, false
	}
	if cookie != Cookie {
		p.stats.bump(ErrCookie)
		return Envelope{}, TimeRef{}, nil, ErrCookie, false
	}
	if typeSubType != p.expectedType {
		p.stats.bump(ErrTypeSubType)
		return Envelope{}, TimeRef{}, nil, ErrTypeSubType, false
	}
	if int(totalLength) != n {
		p.stats.bump(ErrSize)
		return Envelope{}, TimeRef{}, nil, ErrSize, false
	}
	if outputQueue >= MaxOutputQueues {
		p.stats.bump(ErrOutputQueue)
		return Envelope{}, TimeRef{}, nil, ErrOutputQueue, false
	}
	if pulseLow >= MaxFracTicks || prevPulseLow >= MaxFracTicks {
		p.stats.bump(ErrTimeFrac)
		return Envelope{}, TimeRef{}, nil, ErrTimeFrac, false
	}

	// Sequence continuity, tracked per output-queue.
	if p.seqSeen[outputQueue] {
		if seqNum != p.seqPrev[outputQueue]+1 {
			p.stats.bump(ErrSeqNum)
			// Per spec: the error is counted but the packet is NOT dropped;
			// sequence tracking still advances so a future gap is not
			// re-reported, and readouts inside this packet are processed.
		}
	}
	p.seqSeen[outputQueue] = true
	p.seqPrev[outputQueue] = seqNum

	pulse := PulseTime{High: pulseHigh, Low: pulseLow}
	prevPulse := PulseTime{High: prevPulseHigh, Low: prevPulseLow}

	pulseNS := pulse.ToNS()
	if p.maxPulseTimeDiffNS > 0 {
		if p.havePulse {
			diff := pulseNS - p.lastPulseNS
			if pulseNS < p.lastPulseNS {
				diff = p.lastPulseNS - pulseNS
			}
			if diff > p.maxPulseTimeDiffNS {
				p.stats.bump(ErrTimeHigh)
			}
		}
		p.havePulse = true
		p.lastPulseNS = pulseNS
	}

	dataLen := int(totalLength) - HeaderSize
	if dataLen == 0 {
		p.stats.Heartbeats.Inc()
	}
	p.stats.RxPackets.Inc()

	env = Envelope{
		Version:     version,
		Type:        typeSubType,
		TotalLength: totalLength,
		OutputQueue: outputQueue,
		TimeSource:  timeSource,
		Pulse:       pulse,
		PrevPulse:   prevPulse,
		SeqNum:      seqNum,
		DataLen:     dataLen,
	}
	ref = NewTimeRef(pulse, prevPulse)
	data = buf[HeaderSize:n]
	return env, ref, data, ErrNone, true
}
