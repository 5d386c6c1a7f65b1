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

// GapClusterer groups same-plane Hits that are contiguous in both time
// and coordinate into Clusters. It holds at most one open cluster at a
// time; closed clusters are buffered until Flush is called.
type GapClusterer struct {
	plane       Plane
	maxTimeGap  uint64
	maxCoordGap int

	open    *Cluster
	emitted []Cluster
}

// NewGapClusterer constructs a GapClusterer for one plane.
func NewGapClusterer(plane Plane, maxTimeGap uint64, maxCoordGap int) *GapClusterer {
	return &GapClusterer{plane: plane, maxTimeGap: maxTimeGap, maxCoordGap: maxCoordGap}
}

// Insert appends h to the open cluster if it is within the clustering
// window, otherwise stashes the open cluster (if any) and starts a new
// one at h. It reports false without side effects if h's plane does not
// match the clusterer's own.
func (g *GapClusterer) Insert(h Hit) bool {
	if h.Plane != g.plane {
		return false
	}

	if g.open == nil {
		c := newCluster(h)
		g.open = &c
		return true
	}

	timeGap := h.TimeNS - g.open.TimeEnd
	if h.TimeNS < g.open.TimeEnd {
		timeGap = 0
	}
	if timeGap <= g.maxTimeGap && coordGap(h, *g.open) <= g.maxCoordGap {
		g.open.append(h)
		return true
	}

	g.emitted = append(g.emitted, *g.open)
	c := newCluster(h)
	g.open = &c
	return true
}

// coordGap is the coordinate distance from h to the open cluster's
// nearest edge; zero if h falls within [CoordMin, CoordMax].
func coordGap(h Hit, c Cluster) int {
	if h.Coord < c.CoordMin {
		return c.CoordMin - h.Coord
	}
	if h.Coord > c.CoordMax {
		return h.Coord - c.CoordMax
	}
	return 0
}

// Flush closes the open cluster when final is true, then drains and
// returns every buffered closed cluster in emission order.
func (g *GapClusterer) Flush(final bool) []Cluster {
	if final && g.open != nil {
		g.emitted = append(g.emitted, *g.open)
		g.open = nil
	}
	out := g.emitted
	g.emitted = nil
	return out
}
