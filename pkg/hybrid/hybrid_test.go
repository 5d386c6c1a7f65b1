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
	"os"
	"path/filepath"
	"testing"
)

func TestCalibration_NullCalibrationIsIdentity(t *testing.T) {
	c := NewIdentityCalibration()
	if got := c.TDCCorr(3, 200); got != 0 {
		t.Errorf("TDCCorr = %d, want 0", got)
	}
	if got := c.ADCCorr(3, 512); got != 512 {
		t.Errorf("ADCCorr = %d, want 512", got)
	}
}

func TestCalibration_ADCCorrClampsToTenBitRange(t *testing.T) {
	var c Calibration
	c.ADCCorrDelta[0] = 2000
	if got := c.ADCCorr(0, 1000); got != 1023 {
		t.Errorf("ADCCorr = %d, want clamped 1023", got)
	}
	c.ADCCorrDelta[0] = -2000
	if got := c.ADCCorr(0, 100); got != 0 {
		t.Errorf("ADCCorr = %d, want clamped 0", got)
	}
}

func writeJSON(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfig_RejectsWrongDetector(t *testing.T) {
	dir := t.TempDir()
	path := writeJSON(t, dir, "config.json", `{"Detector":"CSPEC","Config":[]}`)

	if _, err := LoadConfig(path, "Freia"); err == nil {
		t.Fatal("expected error for Detector mismatch")
	}
}

func TestLoadConfig_RejectsMissingDetector(t *testing.T) {
	dir := t.TempDir()
	path := writeJSON(t, dir, "config.json", `{"Config":[]}`)

	if _, err := LoadConfig(path, "Freia"); err == nil {
		t.Fatal("expected error for missing Detector")
	}
}

func TestNewResolver_RejectsDuplicateSlot(t *testing.T) {
	cfg := &Config{
		Detector: "Freia",
		Config: []HybridRecord{
			{Ring: 0, FEN: 0, Hybrid: 0, HybridId: "A"},
			{Ring: 0, FEN: 0, Hybrid: 0, HybridId: "B"},
		},
	}
	if _, err := NewResolver(cfg); err == nil {
		t.Fatal("expected error for duplicate (ring,fen,hybrid)")
	}
}

func TestResolver_ResolveUnconfiguredTripleReturnsNil(t *testing.T) {
	cfg := &Config{
		Detector: "Freia",
		Config:   []HybridRecord{{Ring: 0, FEN: 0, Hybrid: 0, HybridId: "A"}},
	}
	r, err := NewResolver(cfg)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if h := r.Resolve(1, 0, 0); h != nil {
		t.Errorf("Resolve(1,0,0) = %+v, want nil", h)
	}
	h := r.Resolve(0, 0, 0)
	if h == nil || !h.Initialised {
		t.Errorf("Resolve(0,0,0) = %+v, want Initialised", h)
	}
}

func TestResolver_AppliesOffsets(t *testing.T) {
	x, y := 5, 10
	cfg := &Config{
		Detector: "Freia",
		Config: []HybridRecord{
			{Ring: 0, FEN: 0, Hybrid: 0, HybridId: "A", XOffset: &x, YOffset: &y},
		},
	}
	r, err := NewResolver(cfg)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	h := r.Resolve(0, 0, 0)
	if h.XOffset != 5 || h.YOffset != 10 {
		t.Errorf("offsets = (%d,%d), want (5,10)", h.XOffset, h.YOffset)
	}
}

func TestLoadCalibration_NullGroupLeavesIdentity(t *testing.T) {
	dir := t.TempDir()
	path := writeJSON(t, dir, "calib.json", `{"Detector":"Freia","ADC":[{"groupindex":0,"intervals":[],"polynomials":[]}]}`)

	table := NewTable(1)
	if err := LoadCalibration(path, table); err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	h := table.At(0)
	if got := h.VMMs[0].ADCCorr(0, 500); got != 500 {
		t.Errorf("ADCCorr = %d, want 500 (uncorrected)", got)
	}
}

func TestLoadCalibration_AppliesConstantOffsetWithinInterval(t *testing.T) {
	dir := t.TempDir()
	path := writeJSON(t, dir, "calib.json",
		`{"Detector":"Freia","ADC":[{"groupindex":0,"intervals":[[0,63]],"polynomials":[[10,0,0,0]]}]}`)

	table := NewTable(1)
	if err := LoadCalibration(path, table); err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	h := table.At(0)
	if got := h.VMMs[0].ADCCorr(5, 100); got != 110 {
		t.Errorf("ADCCorr = %d, want 110", got)
	}
}

func TestLoadCalibration_RejectsIntervalPolynomialMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeJSON(t, dir, "calib.json",
		`{"Detector":"Freia","ADC":[{"groupindex":0,"intervals":[[0,63],[64,127]],"polynomials":[[0,0,0,0]]}]}`)

	table := NewTable(1)
	if err := LoadCalibration(path, table); err == nil {
		t.Fatal("expected error for intervals/polynomials length mismatch")
	}
}
