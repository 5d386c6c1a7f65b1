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

// Package vmm3 parses the VMM3a strip-detector payload: a sequence of
// {4-byte data-header, 20-byte readout record} repetitions.
package vmm3

import "efu-go/pkg/counters"

const (
	// DataHeaderSize is the fixed per-block mini-header size.
	DataHeaderSize = 4
	// ReadoutSize is the fixed per-readout record size.
	ReadoutSize = 20

	// MaxRing bounds the physical fiber/ring id.
	MaxRing = 22
	// MaxTimeLow mirrors essreadout.MaxFracTicks (kept local to avoid an
	// import cycle; both derive from the same ESS clock spec).
	MaxTimeLow = 88_052_500
	// MaxChannel bounds the channel field (exclusive).
	MaxChannel = 64
	// MaxVMM bounds VMM-per-hybrid addressing: 2 VMMs per hybrid, up
	// to 8 hybrids, so VMM < 16.
	MaxVMM = 16
)

// DataHeader precedes every readout record in the payload.
type DataHeader struct {
	Ring   uint8
	FEN    uint8
	Length uint16
}

// Readout is the parsed, in-memory form of one 20-byte VMM3 readout record.
type Readout struct {
	Ring       uint8
	FEN        uint8
	DataLength uint8
	TimeHigh   uint32
	TimeLow    uint32
	Geo        uint8
	TDC        uint8
	BC         uint8
	OTADC      uint16
	VMM        uint8
	Channel    uint8
}

// Stats holds one counter handle per VMM3Parser failure mode, per spec §4.3.
type Stats struct {
	ErrorSize       *counters.Handle
	ErrorFiber      *counters.Handle
	ErrorFEN        *counters.Handle
	ErrorDataLength *counters.Handle
	ErrorTimeFrac   *counters.Handle
	ErrorBC         *counters.Handle
	ErrorADC        *counters.Handle
	ErrorVMM        *counters.Handle
	ErrorChannel    *counters.Handle
	Readouts        *counters.Handle
}

// NewStats registers every VMM3Parser counter on fabric under prefix.
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
	s.ErrorSize = create("ErrorSize")
	s.ErrorFiber = create("ErrorFiber")
	s.ErrorFEN = create("ErrorFEN")
	s.ErrorDataLength = create("ErrorDataLength")
	s.ErrorTimeFrac = create("ErrorTimeFrac")
	s.ErrorBC = create("ErrorBC")
	s.ErrorADC = create("ErrorADC")
	s.ErrorVMM = create("ErrorVMM")
	s.ErrorChannel = create("ErrorChannel")
	s.Readouts = create("Readouts")
	if err != nil {
		return nil, err
	}
	return s, nil
}
