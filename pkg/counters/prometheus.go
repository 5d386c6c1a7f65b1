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
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector adapts a Fabric to prometheus.Collector so the same
// counters that feed the graphite-style TCP shipper can also be scraped by
// Prometheus, without a second registration path or a second writer.
type PrometheusCollector struct {
	fabric *Fabric
}

// NewPrometheusCollector wraps fabric for registration via
// prometheus.Registry.MustRegister.
func NewPrometheusCollector(fabric *Fabric) *PrometheusCollector {
	return &PrometheusCollector{fabric: fabric}
}

// Describe sends no fixed descriptors; counter names are only known once
// registered at start-up, so this collector is unchecked (matches the
// pattern for dynamically named metrics).
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {}

// Collect emits one gauge per registered counter. Gauge (not Counter) is
// used because some fabric values (e.g. a future "active hybrids" gauge)
// are not strictly monotonic, and the fabric itself does not distinguish
// counters from gauges.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	for i := 0; i < c.fabric.Size(); i++ {
		name := metricName(c.fabric.Name(i))
		desc := prometheus.NewDesc(name, "EFU counter fabric value", nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(c.fabric.Value(i)))
	}
}

// metricName sanitizes a "prefix.Name" counter name into a Prometheus-legal
// metric name (letters, digits, underscore).
func metricName(name string) string {
	var b strings.Builder
	b.WriteString("efu_")
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.ToLower(b.String())
}
