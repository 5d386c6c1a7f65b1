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

// TOFReference identifies which reference a readout's time-of-flight was
// computed against.
type TOFReference int

const (
	// RefNone means the readout is not usable (dropped).
	RefNone TOFReference = iota
	RefPulse
	RefPrevPulse
)

// TimeRef derives absolute readout times from the envelope's pulse
// reference and computes TOF with PrevPulse fallback, per the policy:
// if readout_ns >= ref_ns, tof = readout_ns - ref_ns; else if readout_ns >=
// prev_ref_ns, tof = readout_ns - prev_ref_ns; else the readout has no
// usable reference (PrevTofNegative).
type TimeRef struct {
	Pulse     PulseTime
	PrevPulse PulseTime
}

// NewTimeRef builds a TimeRef from an envelope's pulse pair.
func NewTimeRef(pulse, prevPulse PulseTime) TimeRef {
	return TimeRef{Pulse: pulse, PrevPulse: prevPulse}
}

// ReadoutNS converts a readout's (TimeHigh, TimeLow) pair to absolute ns
// using the same fixed rational conversion as pulse times.
func ReadoutNS(timeHigh, timeLow uint32) uint64 {
	return ToNS(timeHigh, timeLow)
}

// TOF computes the time-of-flight for a readout already expressed in
// absolute nanoseconds, applying the Pulse/PrevPulse fallback policy.
// ok is false when readoutNS precedes both references (PrevTofNegative).
func (t TimeRef) TOF(readoutNS uint64) (tofNS int64, ref TOFReference, ok bool) {
	refNS := t.Pulse.ToNS()
	if readoutNS >= refNS {
		return int64(readoutNS - refNS), RefPulse, true
	}
	prevRefNS := t.PrevPulse.ToNS()
	if readoutNS >= prevRefNS {
		return int64(readoutNS - prevRefNS), RefPrevPulse, true
	}
	return 0, RefNone, false
}
