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

package detector

import (
	"efu-go/pkg/cluster"
	"efu-go/pkg/essreadout"
	"efu-go/pkg/ev44"
	"efu-go/pkg/geometry"
	"efu-go/pkg/hybrid"
	"efu-go/pkg/vmm3"
)

// ProcessingPlugin is the per-instrument variant point: the pieces of the
// pipeline that differ between Freia, CSPEC and LET (today, only the
// geometry and the config-driven hybrid layout) are captured behind this
// interface; everything else (envelope parsing, VMM3 parsing, clustering,
// matching, serialization) is shared.
type ProcessingPlugin interface {
	// ProcessReadouts converts and routes every parsed readout into its
	// hybrid's event builder, applying calibration and geometry.
	ProcessReadouts(readouts []vmm3.Readout, ref essreadout.TimeRef)

	// FlushEvents runs a builder pass over every hybrid and emits
	// resulting (tof, pixel) pairs to the serializer.
	FlushEvents(final bool, ref essreadout.TimeRef)

	// FlushSerializer forces the broker producer to drain any batch the
	// serializer is still holding, independent of the builder/reference
	// state FlushEvents drives.
	FlushSerializer() error
}

// PhysicalToLogicalRing collapses a physical fiber id to a logical
// ring: ring = fiber >> 1 (two fibers per physical ring connector).
func PhysicalToLogicalRing(fiber uint8) uint8 { return fiber >> 1 }

// FreiaPlugin implements ProcessingPlugin for the Freia instrument. CSPEC
// and LET variants differ only in NumRings/geometry/offsets, all
// expressed through the same Config/Resolver/Geometry types, so they
// reuse this type directly.
type FreiaPlugin struct {
	numRings int
	maxFEN   map[int]uint8 // per-ring max FEN id

	resolver   *hybrid.Resolver
	builders   []*cluster.EventBuilder2D
	geom       geometry.Logical
	serializer *ev44.Serializer

	cfg cluster.Config

	wireGapCheck  bool
	stripGapCheck bool

	maxTOFNS uint64

	counters *Counters
}

// NewFreiaPlugin constructs a FreiaPlugin from its resolved configuration.
// wireGapCheck/stripGapCheck gate the post-clustering gap-rejection
// filter in emit (spec §4.6); the clustering window itself (cfg's
// MaxCoordGapX/Y) always applies regardless of these flags.
func NewFreiaPlugin(
	numRings int,
	maxFEN map[int]uint8,
	resolver *hybrid.Resolver,
	geom geometry.Logical,
	serializer *ev44.Serializer,
	builderCfg cluster.Config,
	wireGapCheck, stripGapCheck bool,
	maxTOFNS uint64,
	counters *Counters,
) *FreiaPlugin {
	builders := make([]*cluster.EventBuilder2D, resolver.Len())
	for i := range builders {
		builders[i] = cluster.NewEventBuilder2D(builderCfg)
	}
	return &FreiaPlugin{
		numRings:      numRings,
		maxFEN:        maxFEN,
		wireGapCheck:  wireGapCheck,
		stripGapCheck: stripGapCheck,
		resolver:   resolver,
		builders:   builders,
		geom:       geom,
		serializer: serializer,
		cfg:        builderCfg,
		maxTOFNS:   maxTOFNS,
		counters:   counters,
	}
}

// ProcessReadouts implements the per-readout pipeline (spec §4.4):
// physical->logical ring, ring/FEN bounds, hybrid resolution, time and
// ADC calibration, plane choice, local coordinate, insertion.
func (p *FreiaPlugin) ProcessReadouts(readouts []vmm3.Readout, ref essreadout.TimeRef) {
	for _, ro := range readouts {
		ring := int(PhysicalToLogicalRing(ro.Ring))
		if ring >= p.numRings {
			p.counters.RingMappingErrors.Inc()
			continue
		}
		if ro.FEN > p.maxFEN[ring] {
			p.counters.FENMappingErrors.Inc()
			continue
		}

		hybridIdx := int(ro.VMM) / hybrid.AsicsPerHybrid
		h := p.resolver.Resolve(ring, int(ro.FEN), hybridIdx)
		if h == nil || !h.Initialised {
			p.counters.HybridMappingErrors.Inc()
			continue
		}
		builderIdx, ok := p.resolver.ResolveIndex(ring, int(ro.FEN), hybridIdx)
		if !ok {
			p.counters.HybridMappingErrors.Inc()
			continue
		}

		asic := ro.VMM & 1
		timeNS := essreadout.ReadoutNS(ro.TimeHigh, ro.TimeLow)
		timeNS = uint64(int64(timeNS) + h.VMMs[asic].TDCCorr(ro.Channel, ro.TDC))

		adc := h.VMMs[asic].ADCCorr(ro.Channel, ro.ADC())
		if adc >= 1023 {
			p.counters.MaxADC.Inc()
		}

		var plane cluster.Plane
		var coord int
		var coordOK bool
		if asic == 0 {
			plane = cluster.PlaneX
			coord, coordOK = geometry.XCoord(ro.VMM, ro.Channel)
		} else {
			plane = cluster.PlaneY
			coord, coordOK = geometry.YCoord(h.YOffset, ro.VMM, ro.Channel)
		}
		if !coordOK {
			p.counters.CoordErrors.Inc()
			continue
		}

		p.builders[builderIdx].Insert(cluster.Hit{TimeNS: timeNS, Coord: coord, ADC: adc, Plane: plane})
	}
}

// FlushEvents runs a builder pass over every hybrid, applies the
// coincidence/gap/TOF filters and logical geometry of spec §4.6, and
// emits surviving (tof, pixel) pairs to the serializer.
func (p *FreiaPlugin) FlushEvents(final bool, ref essreadout.TimeRef) {
	_ = p.serializer.CheckAndSetReferenceTime(ref.Pulse.ToNS())

	for _, b := range p.builders {
		for _, ev := range b.Flush(final) {
			p.emit(ev, ref)
		}
		stats := b.DrainStats()
		p.counters.EventsNoCoincidence.Add(stats.ClustersNoCoincidence)
		p.counters.EventsMatchedXOnly.Add(stats.ClustersMatchedXOnly)
		p.counters.EventsMatchedYOnly.Add(stats.ClustersMatchedYOnly)
	}
}

// FlushSerializer forces the EV44 serializer to produce its pending
// batch, regardless of whether the reference time has changed. The
// periodic idle-line timeout (spec §4.7) and the final produce on a
// clean stop (spec §5) both drive through this rather than through
// FlushEvents, which only ever produces as a side effect of a reference
// time change or a full batch.
func (p *FreiaPlugin) FlushSerializer() error {
	return p.serializer.Flush()
}

func (p *FreiaPlugin) emit(ev cluster.Event, ref essreadout.TimeRef) {
	if len(ev.X.Hits) == 0 && len(ev.Y.Hits) == 0 {
		return
	}
	if len(ev.X.Hits) == 0 {
		p.counters.EventsMatchedYOnly.Inc()
		return
	}
	if len(ev.Y.Hits) == 0 {
		p.counters.EventsMatchedXOnly.Inc()
		return
	}

	if p.wireGapCheck && ev.X.HasGap() {
		p.counters.GapErrorsWire.Inc()
		return
	}
	if p.stripGapCheck && ev.Y.HasGap() {
		p.counters.GapErrorsStrip.Inc()
		return
	}

	centerTime := (ev.X.CenterTime() + ev.Y.CenterTime()) / 2
	tofNS, _, ok := ref.TOF(uint64(centerTime))
	if !ok {
		p.counters.TOFErrors.Inc()
		return
	}
	if p.maxTOFNS > 0 && uint64(tofNS) > p.maxTOFNS {
		p.counters.TOFErrors.Inc()
		return
	}

	x := int(round(ev.X.CenterOfMass()))
	y := int(round(ev.Y.CenterOfMass()))
	pixel, ok := p.geom.Pixel(x, y, p.geom.SizeX)
	if !ok {
		p.counters.PixelErrors.Inc()
		return
	}

	if err := p.serializer.AddEvent(tofNS, pixel); err == nil {
		p.counters.Events.Inc()
	}
}

func round(f float64) float64 {
	if f < 0 {
		return float64(int64(f - 0.5))
	}
	return float64(int64(f + 0.5))
}
