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

package cluster

// Config bounds the windows used by one hybrid's EventBuilder2D.
type Config struct {
	MaxClusteringTimeGapX int
	MaxClusteringTimeGapY int
	MaxCoordGapX          int
	MaxCoordGapY          int
	MaxMatchingTimeGap    uint64
	SafetyMargin          uint64
}

// EventBuilder2D is the complete per-hybrid event-building pipeline: two
// single-plane GapClusterers feeding one Matcher. One instance is owned,
// uncontended, by the processing thread for its hybrid.
type EventBuilder2D struct {
	x *GapClusterer
	y *GapClusterer
	m *Matcher
}

// NewEventBuilder2D constructs an EventBuilder2D from cfg.
func NewEventBuilder2D(cfg Config) *EventBuilder2D {
	return &EventBuilder2D{
		x: NewGapClusterer(PlaneX, uint64(cfg.MaxClusteringTimeGapX), cfg.MaxCoordGapX),
		y: NewGapClusterer(PlaneY, uint64(cfg.MaxClusteringTimeGapY), cfg.MaxCoordGapY),
		m: NewMatcher(cfg.MaxMatchingTimeGap, cfg.SafetyMargin),
	}
}

// Insert routes h to the clusterer for its plane.
func (b *EventBuilder2D) Insert(h Hit) bool {
	if h.Plane == PlaneX {
		return b.x.Insert(h)
	}
	return b.y.Insert(h)
}

// Flush closes both clusterers' open clusters (when final is true),
// drains them into the matcher, runs a matching pass, and returns any
// resulting Events.
func (b *EventBuilder2D) Flush(final bool) []Event {
	for _, c := range b.x.Flush(final) {
		b.m.PushX(c)
	}
	for _, c := range b.y.Flush(final) {
		b.m.PushY(c)
	}
	return b.m.Match(final)
}

// Stats exposes the matcher's coincidence counters for this hybrid.
func (b *EventBuilder2D) Stats() MatcherStats { return b.m.Stats }

// DrainStats returns the matcher's coincidence counters accumulated since
// the last DrainStats call and resets them to zero, so a caller can feed
// them into a monotonic counter fabric one flush pass at a time without
// double-counting.
func (b *EventBuilder2D) DrainStats() MatcherStats { return b.m.DrainStats() }
