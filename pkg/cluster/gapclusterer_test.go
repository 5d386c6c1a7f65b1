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

func TestGapClusterer_RejectsWrongPlane(t *testing.T) {
	g := NewGapClusterer(PlaneX, 10, 1)
	if g.Insert(Hit{TimeNS: 1, Coord: 0, Plane: PlaneY}) {
		t.Fatal("Insert should reject mismatched plane")
	}
}

func TestGapClusterer_ContiguousHitsFormOneCluster(t *testing.T) {
	g := NewGapClusterer(PlaneX, 10, 1)
	g.Insert(Hit{TimeNS: 100, Coord: 5, ADC: 10, Plane: PlaneX})
	g.Insert(Hit{TimeNS: 105, Coord: 6, ADC: 10, Plane: PlaneX})
	g.Insert(Hit{TimeNS: 110, Coord: 7, ADC: 10, Plane: PlaneX})

	out := g.Flush(true)
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if len(out[0].Hits) != 3 {
		t.Errorf("len(hits) = %d, want 3", len(out[0].Hits))
	}
}

func TestGapClusterer_TimeGapSplitsClusters(t *testing.T) {
	g := NewGapClusterer(PlaneX, 5, 10)
	g.Insert(Hit{TimeNS: 100, Coord: 0, Plane: PlaneX})
	g.Insert(Hit{TimeNS: 200, Coord: 1, Plane: PlaneX}) // gap 100 > 5

	out := g.Flush(true)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

func TestGapClusterer_CoordGapSplitsClusters(t *testing.T) {
	g := NewGapClusterer(PlaneX, 100, 1)
	g.Insert(Hit{TimeNS: 100, Coord: 0, Plane: PlaneX})
	g.Insert(Hit{TimeNS: 101, Coord: 10, Plane: PlaneX}) // coord gap 10 > 1

	out := g.Flush(true)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

func TestGapClusterer_FlushFalseKeepsOpenCluster(t *testing.T) {
	g := NewGapClusterer(PlaneX, 100, 10)
	g.Insert(Hit{TimeNS: 100, Coord: 0, Plane: PlaneX})

	out := g.Flush(false)
	if len(out) != 0 {
		t.Fatalf("len(out) = %d, want 0 (open cluster not yet closed)", len(out))
	}

	out = g.Flush(true)
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1 after final flush", len(out))
	}
}

func TestCluster_HasGapDetectsMissingStrip(t *testing.T) {
	g := NewGapClusterer(PlaneX, 100, 10)
	g.Insert(Hit{TimeNS: 1, Coord: 0, Plane: PlaneX})
	g.Insert(Hit{TimeNS: 2, Coord: 3, Plane: PlaneX})

	out := g.Flush(true)
	if !out[0].HasGap() {
		t.Error("expected HasGap() true for coords {0,3}")
	}
}

func TestCluster_CenterOfMassWeightsByADC(t *testing.T) {
	g := NewGapClusterer(PlaneX, 100, 10)
	g.Insert(Hit{TimeNS: 1, Coord: 0, ADC: 1, Plane: PlaneX})
	g.Insert(Hit{TimeNS: 2, Coord: 10, ADC: 3, Plane: PlaneX})

	out := g.Flush(true)
	// (0*1 + 10*3) / 4 = 7.5
	if got := out[0].CenterOfMass(); got != 7.5 {
		t.Errorf("CenterOfMass() = %v, want 7.5", got)
	}
}
