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

package counters

import (
	"errors"
	"testing"
)

func TestFabric_CreateDuplicateNameFails(t *testing.T) {
	f := NewFabric("efu.freia")
	if _, err := f.Create("RxPackets"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.Create("RxPackets"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestFabric_ValueTracksNIncrements(t *testing.T) {
	f := NewFabric("")
	h, err := f.Create("Readouts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	const n = 1000
	for i := 0; i < n; i++ {
		h.Inc()
	}
	if h.Value() != n {
		t.Fatalf("expected %d, got %d", n, h.Value())
	}
	v, ok := f.ValueByName("Readouts")
	if !ok || v != n {
		t.Fatalf("expected ValueByName=%d, got %d ok=%v", n, v, ok)
	}
}

func TestFabric_SizeAndNameIndexing(t *testing.T) {
	f := NewFabric("p")
	_, _ = f.Create("a")
	_, _ = f.Create("b")
	if f.Size() != 2 {
		t.Fatalf("expected size 2, got %d", f.Size())
	}
	if f.Name(0) != "p.a" || f.Name(1) != "p.b" {
		t.Fatalf("unexpected names: %s %s", f.Name(0), f.Name(1))
	}
}
