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

// Package scrape exposes a detector's counter fabric two ways: a
// Prometheus /metrics endpoint, and a periodic graphite-style TCP
// shipper, both reading the same fabric lock-free with no dedicated
// writer coordination.
package scrape

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"efu-go/pkg/counters"
)

// ServePrometheus registers fabric's counters on a fresh registry and
// starts an HTTP server on addr serving /metrics. It returns immediately;
// the server runs until the process exits.
func ServePrometheus(addr string, fabric *counters.Fabric) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(counters.NewPrometheusCollector(fabric)); err != nil {
		return fmt.Errorf("scrape: registering collector: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("scrape: listening on %s: %w", addr, err)
	}
	go func() {
		_ = http.Serve(ln, mux)
	}()
	return nil
}

// GraphiteShipper periodically writes every fabric counter as a
// "<name> <value> <unix-seconds>\n" line to a graphite carbon endpoint
// over a plain TCP connection, reconnecting on failure.
type GraphiteShipper struct {
	addr     string
	fabric   *counters.Fabric
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewGraphiteShipper constructs a shipper that scrapes fabric every
// interval and ships it to addr ("host:port").
func NewGraphiteShipper(addr string, fabric *counters.Fabric, interval time.Duration) *GraphiteShipper {
	if interval <= 0 {
		interval = time.Second
	}
	return &GraphiteShipper{
		addr:     addr,
		fabric:   fabric,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic ship loop in a background goroutine.
func (g *GraphiteShipper) Start() {
	go g.run()
}

// Stop signals the ship loop to exit and waits for it to finish.
func (g *GraphiteShipper) Stop() {
	close(g.stop)
	<-g.done
}

func (g *GraphiteShipper) run() {
	defer close(g.done)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			if err := g.shipOnce(); err != nil {
				fmt.Printf("ERROR: graphite shipper: %v\n", err)
			}
		}
	}
}

func (g *GraphiteShipper) shipOnce() error {
	conn, err := net.DialTimeout("tcp", g.addr, 2*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	now := time.Now().Unix()
	for i := 0; i < g.fabric.Size(); i++ {
		line := fmt.Sprintf("%s %d %d\n", g.fabric.Name(i), g.fabric.Value(i), now)
		if _, err := conn.Write([]byte(line)); err != nil {
			return err
		}
	}
	return nil
}
