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

// Package counters implements the run-time counter fabric read by the
// telemetry scraper. Counters are registered once at start-up and are
// thereafter written exclusively by their owning goroutine; reads are
// lock-free and tearing is acceptable (the scraper only needs monotonic
// 64-bit values, not cross-field atomicity).
package counters

import (
	"errors"
	"fmt"
)

// ErrDuplicateName is returned by Create when a counter with the same name
// already exists in the fabric.
var ErrDuplicateName = errors.New("counters: duplicate name")

// ErrDuplicateRef is returned by Create when the backing address has already
// been registered under a different name.
var ErrDuplicateRef = errors.New("counters: duplicate backing address")

// Handle is the capability returned by Create: a lightweight accessor bound
// to one slot in the fabric. Owning code writes through the handle; nothing
// else needs to know the slot index.
type Handle struct {
	ref *int64
}

// Add increments the counter by delta (delta may be negative).
func (h *Handle) Add(delta int64) { *h.ref += delta }

// Inc increments the counter by one.
func (h *Handle) Inc() { *h.ref++ }

// Value returns the counter's current value. Safe to call from the owning
// goroutine; cross-goroutine reads should go through Fabric.Value instead.
func (h *Handle) Value() int64 { return *h.ref }

type entry struct {
	name string
	ref  *int64
}

// Fabric is a process-wide, append-only-at-registration list of named
// counters. It is never destroyed once created. Registration happens at
// start-up before any processing goroutine runs; after that the fabric is
// read-only from the registry's point of view (individual counter values
// still change, but the slot list itself does not).
type Fabric struct {
	prefix  string
	entries []entry
	byName  map[string]int
	byAddr  map[*int64]int
}

// NewFabric creates an empty fabric. prefix is prepended to every counter
// name as "<prefix>.<name>" (the graphite-style convention), matching the
// "<graphite-prefix>.<region>." naming spec.
func NewFabric(prefix string) *Fabric {
	return &Fabric{
		prefix: prefix,
		byName: make(map[string]int),
		byAddr: make(map[*int64]int),
	}
}

// Create registers a new named counter backed by a freshly allocated int64
// initialized to 0, and returns a Handle for the owning component to write through.
func (f *Fabric) Create(name string) (*Handle, error) {
	full := name
	if f.prefix != "" {
		full = fmt.Sprintf("%s.%s", f.prefix, name)
	}
	if _, exists := f.byName[full]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, full)
	}
	ref := new(int64)
	*ref = 0
	if _, exists := f.byAddr[ref]; exists {
		// Unreachable in practice (fresh allocation), kept to mirror the
		// duplicate-backing-address invariant the fabric must enforce.
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRef, full)
	}
	idx := len(f.entries)
	f.entries = append(f.entries, entry{name: full, ref: ref})
	f.byName[full] = idx
	f.byAddr[ref] = idx
	return &Handle{ref: ref}, nil
}

// Size returns the number of registered counters.
func (f *Fabric) Size() int { return len(f.entries) }

// Name returns the full (prefixed) name of the counter at index i.
func (f *Fabric) Name(i int) string { return f.entries[i].name }

// Value returns the current value of the counter at index i. Lock-free,
// tear-allowed read; safe for a scraper goroutine distinct from the writer.
func (f *Fabric) Value(i int) int64 { return *f.entries[i].ref }

// ValueByName looks up a counter's current value by its full name.
func (f *Fabric) ValueByName(name string) (int64, bool) {
	idx, ok := f.byName[name]
	if !ok {
		return 0, false
	}
	return f.Value(idx), true
}
