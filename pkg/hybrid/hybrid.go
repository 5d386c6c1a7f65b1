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

// Package hybrid models the per-(ring, FEN, hybrid-index) calibration
// state: logical pixel offsets plus the per-ASIC TDC/ADC correction
// polynomials applied to every VMM3 readout before it reaches the event
// builder.
package hybrid

// MaxChannels is the channel count of one VMM3 ASIC.
const MaxChannels = 64

// AsicsPerHybrid is fixed: one hybrid carries exactly two VMM3 ASICs, one
// per plane.
const AsicsPerHybrid = 2

// Calibration holds the per-channel TDC and ADC corrections for one VMM3
// ASIC. Each entry is a scalar, evaluated once at load time from that
// channel's calibration polynomial (see LoadCalibration); the hot path
// only ever does an array lookup, never a polynomial evaluation. A
// zero-value Calibration applies no correction (the defined "null
// calibration").
type Calibration struct {
	TDCCorrNS [MaxChannels]int64
	ADCCorrDelta [MaxChannels]int32
}

// NewIdentityCalibration returns a Calibration with no correction applied
// on any channel.
func NewIdentityCalibration() Calibration {
	return Calibration{}
}

// TDCCorr returns the nanosecond correction to add to a readout's raw
// converted time, given its channel. The raw tdc field is accepted for
// symmetry with ADCCorr and to leave room for a future data-dependent
// correction; the current scheme is channel-only.
func (c Calibration) TDCCorr(channel uint8, tdc uint8) int64 {
	if int(channel) >= MaxChannels {
		return 0
	}
	return c.TDCCorrNS[channel]
}

// ADCCorr applies the per-channel ADC correction to adc, clamping to the
// valid 10-bit range.
func (c Calibration) ADCCorr(channel uint8, adc uint16) uint16 {
	if int(channel) >= MaxChannels {
		return adc
	}
	corrected := int32(adc) + c.ADCCorrDelta[channel]
	if corrected < 0 {
		return 0
	}
	if corrected > 1023 {
		return 1023
	}
	return uint16(corrected)
}

// Hybrid is the calibration and geometry state of one physical detector
// hybrid (a "cassette" in the original instrument's vocabulary): the two
// VMM3 ASIC calibrations that feed it, plus its logical pixel offsets.
type Hybrid struct {
	Initialised bool
	XOffset     int
	YOffset     int

	// VMMs holds one Calibration per ASIC, indexed by Asic = VMM & 0x1.
	VMMs [AsicsPerHybrid]Calibration
}

// NewHybrid returns an uninitialized Hybrid with identity calibration on
// both ASICs.
func NewHybrid() Hybrid {
	return Hybrid{
		VMMs: [AsicsPerHybrid]Calibration{
			NewIdentityCalibration(),
			NewIdentityCalibration(),
		},
	}
}

// Table indexes Hybrid state by logical hybrid number. Hybrid number
// assignment (ring/FEN/hybrid -> index) is made by Resolver, in the order
// the configuration lists the hybrids, not by Table itself.
type Table struct {
	hybrids []Hybrid
}

// NewTable allocates a Table with n hybrids, all uninitialized with
// identity calibration.
func NewTable(n int) *Table {
	t := &Table{hybrids: make([]Hybrid, n)}
	for i := range t.hybrids {
		t.hybrids[i] = NewHybrid()
	}
	return t
}

// Len returns the number of hybrids in the table.
func (t *Table) Len() int { return len(t.hybrids) }

// At returns a pointer to the hybrid at index i, or nil if out of range.
func (t *Table) At(i int) *Hybrid {
	if i < 0 || i >= len(t.hybrids) {
		return nil
	}
	return &t.hybrids[i]
}
