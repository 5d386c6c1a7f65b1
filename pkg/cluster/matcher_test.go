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

import "testing"

func clusterAt(plane Plane, t0 uint64) Cluster {
	return newClusterForTest(Hit{TimeNS: t0, Coord: 0, ADC: 1, Plane: plane})
}

// newClusterForTest exposes the package-private newCluster constructor to
// tests in the same package.
func newClusterForTest(h Hit) Cluster { return newCluster(h) }

func TestMatcher_PairsWithinWindow(t *testing.T) {
	m := NewMatcher(10, 0)
	m.PushX(clusterAt(PlaneX, 100))
	m.PushY(clusterAt(PlaneY, 105))

	events := m.Match(true)
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if m.Stats.ClustersNoCoincidence != 0 {
		t.Errorf("ClustersNoCoincidence = %d, want 0", m.Stats.ClustersNoCoincidence)
	}
}

func TestMatcher_DropsOutsideWindow(t *testing.T) {
	m := NewMatcher(5, 0)
	m.PushX(clusterAt(PlaneX, 100))
	m.PushY(clusterAt(PlaneY, 200))

	events := m.Match(true)
	if len(events) != 0 {
		t.Fatalf("len(events) = %d, want 0", len(events))
	}
	if m.Stats.ClustersNoCoincidence != 2 {
		t.Errorf("ClustersNoCoincidence = %d, want 2", m.Stats.ClustersNoCoincidence)
	}
}

func TestMatcher_FlushTrueDrainsUnpairedSingles(t *testing.T) {
	m := NewMatcher(10, 0)
	m.PushX(clusterAt(PlaneX, 100))

	events := m.Match(true)
	if len(events) != 0 {
		t.Fatalf("len(events) = %d, want 0", len(events))
	}
	if m.Stats.ClustersMatchedXOnly != 1 {
		t.Errorf("ClustersMatchedXOnly = %d, want 1", m.Stats.ClustersMatchedXOnly)
	}
}

func TestMatcher_FlushFalseKeepsUnpairedSingleQueued(t *testing.T) {
	m := NewMatcher(10, 1000)
	m.PushX(clusterAt(PlaneX, 100))

	events := m.Match(false)
	if len(events) != 0 {
		t.Fatalf("len(events) = %d, want 0", len(events))
	}
	if m.Stats.ClustersMatchedXOnly != 0 {
		t.Errorf("ClustersMatchedXOnly = %d, want 0 (not yet eligible)", m.Stats.ClustersMatchedXOnly)
	}
}

func TestEventBuilder2D_EndToEnd(t *testing.T) {
	b := NewEventBuilder2D(Config{
		MaxClusteringTimeGapX: 10,
		MaxClusteringTimeGapY: 10,
		MaxCoordGapX:          2,
		MaxCoordGapY:          2,
		MaxMatchingTimeGap:    10,
	})

	b.Insert(Hit{TimeNS: 100, Coord: 0, ADC: 5, Plane: PlaneX})
	b.Insert(Hit{TimeNS: 102, Coord: 1, ADC: 5, Plane: PlaneX})
	b.Insert(Hit{TimeNS: 101, Coord: 0, ADC: 5, Plane: PlaneY})

	events := b.Flush(true)
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if len(events[0].X.Hits) != 2 {
		t.Errorf("X cluster len = %d, want 2", len(events[0].X.Hits))
	}
}
