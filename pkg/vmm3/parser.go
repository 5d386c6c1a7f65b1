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

package vmm3

import "encoding/binary"

// Parser walks a VMM3 payload as a sequence of {data-header, readout}
// blocks. One Parser is owned by a single processing goroutine.
type Parser struct {
	maxFEN uint8
	stats  *Stats

	out []Readout
}

// NewParser constructs a Parser. maxFEN bounds the FEN id (inclusive) for
// the detector being processed; maxReadouts sizes the reusable output
// slice so Parse never allocates once warmed up.
func NewParser(maxFEN uint8, maxReadouts int, stats *Stats) *Parser {
	return &Parser{maxFEN: maxFEN, stats: stats, out: make([]Readout, 0, maxReadouts)}
}

// Parse validates and decodes every {header, readout} block in data,
// appending to and returning the Parser's reusable output slice. The
// returned slice is only valid until the next call to Parse.
//
// A block that fails validation is skipped (its matching counter is
// bumped) and the walk resumes at the next declared block boundary, so one
// malformed readout does not discard the rest of the payload. A block whose
// declared length is too short or runs past the end of data has no usable
// boundary: it bumps ErrorSize and ends the walk.
func (p *Parser) Parse(data []byte) []Readout {
	p.out = p.out[:0]

	off := 0
	for off+DataHeaderSize <= len(data) {
		hdr := DataHeader{
			Ring:   data[off],
			FEN:    data[off+1],
			Length: binary.LittleEndian.Uint16(data[off+2 : off+4]),
		}

		blockLen := int(hdr.Length)
		if blockLen < DataHeaderSize+ReadoutSize || off+blockLen > len(data) {
			p.stats.ErrorSize.Inc()
			return p.out
		}

		if hdr.Ring > MaxRing {
			p.stats.ErrorFiber.Inc()
			off += blockLen
			continue
		}
		if hdr.FEN > p.maxFEN {
			p.stats.ErrorFEN.Inc()
			off += blockLen
			continue
		}

		roOff := off + DataHeaderSize
		n := (blockLen - DataHeaderSize) / ReadoutSize
		for i := 0; i < n; i++ {
			r, decodeOK := p.decodeOne(data[roOff+i*ReadoutSize : roOff+(i+1)*ReadoutSize])
			if !decodeOK {
				continue
			}
			p.out = append(p.out, r)
			p.stats.Readouts.Inc()
		}

		off += blockLen
	}

	return p.out
}

// decodeOne decodes and validates a single 20-byte readout record. Each
// failed check bumps exactly one counter and the record is dropped.
func (p *Parser) decodeOne(b []byte) (Readout, bool) {
	r := Readout{
		Ring:       b[0],
		FEN:        b[1],
		DataLength: b[2],
		TimeHigh:   binary.LittleEndian.Uint32(b[3:7]),
		TimeLow:    binary.LittleEndian.Uint32(b[7:11]),
		Geo:        b[11],
		TDC:        b[12],
		BC:         b[13],
		OTADC:      binary.LittleEndian.Uint16(b[14:16]),
		VMM:        b[16],
		Channel:    b[17],
	}

	if int(r.DataLength) != ReadoutSize {
		p.stats.ErrorDataLength.Inc()
		return Readout{}, false
	}
	if r.TimeLow >= MaxTimeLow {
		p.stats.ErrorTimeFrac.Inc()
		return Readout{}, false
	}
	if r.BC > 1 {
		p.stats.ErrorBC.Inc()
		return Readout{}, false
	}
	// Only the low 10 bits of OTADC carry the ADC sample; the remaining
	// bits are reserved and must be zero.
	if r.OTADC&0xFC00 != 0 {
		p.stats.ErrorADC.Inc()
		return Readout{}, false
	}
	if r.VMM >= MaxVMM {
		p.stats.ErrorVMM.Inc()
		return Readout{}, false
	}
	if r.Channel >= MaxChannel {
		p.stats.ErrorChannel.Inc()
		return Readout{}, false
	}

	return r, true
}

// ADC returns the 10 valid bits of the combined OT+ADC field. The field is
// historically named for the over-threshold discriminator that gates it,
// but is carried here as a single 10-bit sample; bits 10-15 are reserved
// and rejected by Parse if set.
func (r Readout) ADC() uint16 {
	return r.OTADC & 0x03FF
}
