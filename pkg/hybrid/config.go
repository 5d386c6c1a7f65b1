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

package hybrid

import (
	"encoding/json"
	"fmt"
	"os"
)

// HybridRecord is one entry of a detector configuration's Config array.
type HybridRecord struct {
	Ring           int    `json:"Ring"`
	FEN            int    `json:"FEN"`
	Hybrid         int    `json:"Hybrid"`
	HybridId       string `json:"HybridId"`
	CassetteNumber *int   `json:"CassetteNumber,omitempty"`
	XOffset        *int   `json:"XOffset,omitempty"`
	YOffset        *int   `json:"YOffset,omitempty"`
}

// Config is a detector's full JSON configuration document.
type Config struct {
	Detector           string         `json:"Detector"`
	MaxPulseTimeDiffNS  uint64         `json:"MaxPulseTimeDiffNS"`
	MaxTOFNS           uint64         `json:"MaxTOFNS"`
	Geometry           string         `json:"Geometry"`
	Config             []HybridRecord `json:"Config"`
	WireGapCheck       bool           `json:"WireGapCheck"`
	StripGapCheck      bool           `json:"StripGapCheck"`
	MaxGapWire         int            `json:"MaxGapWire"`
	MaxGapStrip        int            `json:"MaxGapStrip"`
	SplitMultiEvents   bool           `json:"SplitMultiEvents"`
}

// LoadConfig reads and validates a detector configuration file. detector is
// the exact name this instrument expects in the Detector field; a mismatch
// is a fatal, named error per spec.
func LoadConfig(path string, detector string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hybrid: reading config %q: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("hybrid: parsing config %q: %w", path, err)
	}
	if cfg.Detector == "" {
		return nil, fmt.Errorf("hybrid: config %q missing required field Detector", path)
	}
	if cfg.Detector != detector {
		return nil, fmt.Errorf("hybrid: config %q has Detector %q, want %q", path, cfg.Detector, detector)
	}
	return &cfg, nil
}

// Upper bounds for a HybridRecord's addressing fields, matching the
// physical fiber/FEN/hybrid ranges the VMM3 wire format can express
// (pkg/vmm3.MaxRing, pkg/vmm3.MaxVMM/hybrid.AsicsPerHybrid). Kept local
// to avoid an import cycle; a record outside these ranges can never be
// addressed by a real readout, so it is rejected at load time rather
// than silently never matching anything.
const (
	MaxConfigRing        = 22
	MaxConfigFEN         = 23
	MaxConfigHybridIndex = 7
)

// Resolver maps (ring, FEN, hybrid-index) triples to a Table slot, as
// populated from a loaded Config. The Table and the triple index are built
// once at start-up and treated as immutable for the lifetime of the
// detector; there is no lock on the hot path.
type Resolver struct {
	table *Table
	index map[triple]int
}

type triple struct {
	ring, fen, hybrid int
}

// NewResolver builds a Resolver from cfg, assigning each HybridRecord a
// slot in order of appearance. It returns an error naming the first
// duplicate or out-of-range triple encountered.
func NewResolver(cfg *Config) (*Resolver, error) {
	if cfg.MaxGapWire < 0 || cfg.MaxGapStrip < 0 {
		return nil, fmt.Errorf("hybrid: malformed geometry size: MaxGapWire=%d, MaxGapStrip=%d must be >= 0", cfg.MaxGapWire, cfg.MaxGapStrip)
	}

	table := NewTable(len(cfg.Config))
	index := make(map[triple]int, len(cfg.Config))

	for i, rec := range cfg.Config {
		if rec.Ring < 0 || rec.FEN < 0 || rec.Hybrid < 0 {
			return nil, fmt.Errorf("hybrid: record %d has negative ring/FEN/hybrid (%d,%d,%d)", i, rec.Ring, rec.FEN, rec.Hybrid)
		}
		if rec.Ring > MaxConfigRing || rec.FEN > MaxConfigFEN || rec.Hybrid > MaxConfigHybridIndex {
			return nil, fmt.Errorf("hybrid: record %d has ring/FEN/hybrid out of range (%d,%d,%d), want <= (%d,%d,%d)",
				i, rec.Ring, rec.FEN, rec.Hybrid, MaxConfigRing, MaxConfigFEN, MaxConfigHybridIndex)
		}
		key := triple{rec.Ring, rec.FEN, rec.Hybrid}
		if _, dup := index[key]; dup {
			return nil, fmt.Errorf("hybrid: duplicate slot (ring=%d, fen=%d, hybrid=%d)", rec.Ring, rec.FEN, rec.Hybrid)
		}
		index[key] = i

		h := table.At(i)
		h.Initialised = true
		if rec.XOffset != nil {
			h.XOffset = *rec.XOffset
		}
		if rec.YOffset != nil {
			h.YOffset = *rec.YOffset
		}
	}

	return &Resolver{table: table, index: index}, nil
}

// Resolve returns the hybrid slot for (ring, fen, hybrid), or nil if the
// triple was never configured. Callers must check Initialised before use;
// an unresolved or uninitialized slot must be treated as a dropped-readout
// condition by the caller (HybridMappingErrors).
func (r *Resolver) Resolve(ring, fen, hybridIdx int) *Hybrid {
	i, ok := r.index[triple{ring, fen, hybridIdx}]
	if !ok {
		return nil
	}
	return r.table.At(i)
}

// ResolveIndex returns the table/hybrid-number index for (ring, fen,
// hybrid), for callers that address a per-hybrid array (e.g. one
// EventBuilder2D per hybrid-number) rather than the Hybrid itself.
func (r *Resolver) ResolveIndex(ring, fen, hybridIdx int) (int, bool) {
	i, ok := r.index[triple{ring, fen, hybridIdx}]
	return i, ok
}

// Table returns the underlying hybrid table, for callers that need to
// load calibration data into it after resolving the configuration (e.g.
// hybrid.LoadCalibration).
func (r *Resolver) Table() *Table { return r.table }

// HybridAt returns the hybrid at table index i (the order HybridRecords
// were loaded in), for callers that already carry a resolved index (e.g.
// the event builder addressing builders[hybrid-number]).
func (r *Resolver) HybridAt(i int) *Hybrid { return r.table.At(i) }

// Len returns the number of configured hybrids.
func (r *Resolver) Len() int { return r.table.Len() }
