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

// Package detector wires the readout parser, VMM3 parser, hybrid
// calibration, event builders, geometry and serializer into the
// per-instrument processing pipeline, and owns the ingress/processing
// goroutine pair that drives it.
package detector

import "efu-go/pkg/counters"

// Counters holds every instrument-level counter not already owned by a
// sub-package's own Stats struct (essreadout.Stats, vmm3.Stats).
type Counters struct {
	RingMappingErrors      *counters.Handle
	FENMappingErrors       *counters.Handle
	HybridMappingErrors    *counters.Handle
	CoordErrors            *counters.Handle
	MaxADC                 *counters.Handle
	EventsNoCoincidence    *counters.Handle
	EventsMatchedXOnly     *counters.Handle
	EventsMatchedYOnly     *counters.Handle
	GapErrorsWire          *counters.Handle
	GapErrorsStrip         *counters.Handle
	TOFErrors              *counters.Handle
	PixelErrors            *counters.Handle
	Events                 *counters.Handle

	RxIdle         *counters.Handle
	FifoPushErrors *counters.Handle
}

// NewCounters registers every instrument-level counter on fabric under
// prefix (e.g. "events", as cmd/efu-freia passes it).
func NewCounters(fabric *counters.Fabric, prefix string) (*Counters, error) {
	c := &Counters{}
	var err error
	create := func(name string) *counters.Handle {
		if err != nil {
			return nil
		}
		var h *counters.Handle
		h, err = fabric.Create(prefix + "." + name)
		return h
	}
	c.RingMappingErrors = create("RingMappingErrors")
	c.FENMappingErrors = create("FENMappingErrors")
	c.HybridMappingErrors = create("HybridMappingErrors")
	c.CoordErrors = create("CoordErrors")
	c.MaxADC = create("MaxADC")
	c.EventsNoCoincidence = create("EventsNoCoincidence")
	c.EventsMatchedXOnly = create("EventsMatchedXOnly")
	c.EventsMatchedYOnly = create("EventsMatchedYOnly")
	c.GapErrorsWire = create("GapErrorsWire")
	c.GapErrorsStrip = create("GapErrorsStrip")
	c.TOFErrors = create("TOFErrors")
	c.PixelErrors = create("PixelErrors")
	c.Events = create("Events")
	c.RxIdle = create("RxIdle")
	c.FifoPushErrors = create("FifoPushErrors")
	if err != nil {
		return nil, err
	}
	return c, nil
}
