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

// CalibGroup is one {groupindex, intervals, polynomials} entry of a
// calibration file. groupindex addresses one ASIC:
// hybridIndex*AsicsPerHybrid + asic. An empty Polynomials array is the
// defined "null calibration" and leaves every channel in the group
// uncorrected.
type CalibGroup struct {
	GroupIndex  int          `json:"groupindex"`
	Intervals   [][2]float64 `json:"intervals"`
	Polynomials [][4]float64 `json:"polynomials"`
}

// CalibFile is the top-level JSON document holding TDC and ADC correction
// groups for one detector.
type CalibFile struct {
	Detector string       `json:"Detector"`
	TDC      []CalibGroup `json:"TDC"`
	ADC      []CalibGroup `json:"ADC"`
}

// LoadCalibration reads a calibration file and applies it onto table,
// returning an error naming the first malformed or out-of-range group.
// Calibration is optional: a detector may run with none at all, in which
// case every ASIC keeps its zero-value (no-correction) Calibration.
func LoadCalibration(path string, table *Table) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("hybrid: reading calibration %q: %w", path, err)
	}
	var cf CalibFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return fmt.Errorf("hybrid: parsing calibration %q: %w", path, err)
	}

	for _, g := range cf.TDC {
		err := applyGroup(table, g, func(c *Calibration, ch int, v float64) {
			c.TDCCorrNS[ch] = int64(v)
		})
		if err != nil {
			return fmt.Errorf("hybrid: TDC group %d: %w", g.GroupIndex, err)
		}
	}
	for _, g := range cf.ADC {
		err := applyGroup(table, g, func(c *Calibration, ch int, v float64) {
			c.ADCCorrDelta[ch] = int32(v)
		})
		if err != nil {
			return fmt.Errorf("hybrid: ADC group %d: %w", g.GroupIndex, err)
		}
	}
	return nil
}

// applyGroup evaluates g's piecewise polynomial once per channel (the
// free variable is the channel's own index) and stores the resulting
// scalar correction via apply. This is the "evaluated once at load time"
// step: nothing under VMMs[asic] ever re-evaluates a polynomial again.
func applyGroup(table *Table, g CalibGroup, apply func(c *Calibration, ch int, v float64)) error {
	hybridIdx := g.GroupIndex / AsicsPerHybrid
	asic := g.GroupIndex % AsicsPerHybrid

	h := table.At(hybridIdx)
	if h == nil {
		return fmt.Errorf("hybrid index %d out of range", hybridIdx)
	}
	if len(g.Polynomials) == 0 {
		return nil
	}
	if len(g.Intervals) != len(g.Polynomials) {
		return fmt.Errorf("intervals/polynomials length mismatch (%d vs %d)", len(g.Intervals), len(g.Polynomials))
	}

	for ch := 0; ch < MaxChannels; ch++ {
		coeffs := selectPolynomial(g, float64(ch))
		if coeffs == nil {
			continue
		}
		apply(&h.VMMs[asic], ch, evalPoly(*coeffs, float64(ch)))
	}
	return nil
}

// selectPolynomial returns the coefficient set whose interval contains x,
// or nil if none does.
func selectPolynomial(g CalibGroup, x float64) *[4]float64 {
	for i, iv := range g.Intervals {
		if x >= iv[0] && x <= iv[1] {
			return &g.Polynomials[i]
		}
	}
	return nil
}

// evalPoly evaluates c0 + c1*x + c2*x^2 + c3*x^3.
func evalPoly(c [4]float64, x float64) float64 {
	return c[0] + c[1]*x + c[2]*x*x + c[3]*x*x*x
}
