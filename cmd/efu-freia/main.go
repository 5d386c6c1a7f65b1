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

// Package main is the Freia event formation unit entrypoint: it parses
// the common CLI surface, loads the detector's geometry configuration
// and calibration, wires the readout/VMM3 parsers and the Freia
// processing plugin into one detector.Instance, and runs it until a
// signal or --stopafter deadline.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"efu-go/internal/broker"
	"efu-go/internal/config"
	"efu-go/internal/detector"
	"efu-go/internal/dump"
	"efu-go/internal/efulog"
	"efu-go/internal/telemetry/scrape"
	"efu-go/pkg/cluster"
	"efu-go/pkg/counters"
	"efu-go/pkg/essreadout"
	"efu-go/pkg/ev44"
	"efu-go/pkg/geometry"
	"efu-go/pkg/hybrid"
	"efu-go/pkg/vmm3"
)

const (
	detectorName  = "Freia"
	readoutType   = 0x30
	numRings      = 11
	maxFENPerRing = 11
	maxReadouts   = 500
	serializerMax = 500

	defaultMaxClusteringTimeGapNS = 500
	defaultMaxMatchingTimeGapNS   = 2000
	defaultSafetyMarginNS         = 2000
)

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("FATAL panic: %v\n", r)
			exitCode = config.ExitPanic
		}
	}()

	log := efulog.New(detectorName)

	cli, err := config.Parse(detectorName, os.Args[1:])
	if err != nil {
		log.Error("%v", err)
		return config.ExitConfigOrSocket
	}

	cfg, err := hybrid.LoadConfig(cli.ConfigPath, detectorName)
	if err != nil {
		log.Error("%v", err)
		return config.ExitConfigOrSocket
	}

	resolver, err := hybrid.NewResolver(cfg)
	if err != nil {
		log.Error("%v", err)
		return config.ExitConfigOrSocket
	}

	if cli.CalibrationPath != "" {
		if err := hybrid.LoadCalibration(cli.CalibrationPath, resolver.Table()); err != nil {
			log.Error("%v", err)
			return config.ExitConfigOrSocket
		}
	}

	if err := checkMTU(); err != nil {
		log.Error("hardware precondition failed: %v", err)
		return config.ExitHardware
	}

	ip := net.ParseIP(cli.RxAddr)
	if ip == nil {
		ip = net.IPv4zero
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: cli.Port})
	if err != nil {
		log.Error("binding UDP socket: %v", err)
		return config.ExitConfigOrSocket
	}
	defer conn.Close()

	fabric := counters.NewFabric(detectorName)

	readoutStats, err := essreadout.NewStats(fabric, "readout")
	if err != nil {
		log.Error("%v", err)
		return config.ExitConfigOrSocket
	}
	vmmStats, err := vmm3.NewStats(fabric, "vmm3")
	if err != nil {
		log.Error("%v", err)
		return config.ExitConfigOrSocket
	}
	instCounters, err := detector.NewCounters(fabric, "events")
	if err != nil {
		log.Error("%v", err)
		return config.ExitConfigOrSocket
	}

	readoutParser := essreadout.NewParser(readoutType, cfg.MaxPulseTimeDiffNS, readoutStats)
	vmmParser := vmm3.NewParser(maxFENPerRing, maxReadouts, vmmStats)

	publisher := broker.NewEV44Publisher(broker.LoggingProducer{}, cli.Topic)
	serializer := ev44.NewSerializer(detectorName, serializerMax, publisher)

	geom := geometry.Logical{SizeX: geometry.WiresPerCassette, SizeY: geometry.StripsPerCassette}
	builderCfg := cluster.Config{
		MaxClusteringTimeGapX: defaultMaxClusteringTimeGapNS,
		MaxClusteringTimeGapY: defaultMaxClusteringTimeGapNS,
		MaxCoordGapX:          cfg.MaxGapWire,
		MaxCoordGapY:          cfg.MaxGapStrip,
		MaxMatchingTimeGap:    defaultMaxMatchingTimeGapNS,
		SafetyMargin:          defaultSafetyMarginNS,
	}

	plugin := detector.NewFreiaPlugin(numRings, maxFENMap(numRings), resolver, geom, serializer, builderCfg, cfg.WireGapCheck, cfg.StripGapCheck, cfg.MaxTOFNS, instCounters)

	var dumper dump.RawDumpSink
	if cli.DumpPrefix != "" {
		fileSink, err := dump.NewFileSink(cli.DumpPrefix + ".jsonl")
		if err != nil {
			log.Error("%v", err)
			return config.ExitConfigOrSocket
		}
		defer fileSink.Close()
		dumper = dump.NewEveryNth(fileSink, 1)
	}

	inst := detector.NewInstance(conn, 0, readoutParser, vmmParser, plugin, dumper, readoutStats.RxPackets, instCounters.RxIdle, instCounters.FifoPushErrors)
	inst.Start()

	metricsAddr := fmt.Sprintf(":%d", cli.GraphitePort+1)
	if err := scrape.ServePrometheus(metricsAddr, fabric); err != nil {
		log.Warn("prometheus scrape endpoint did not start: %v", err)
	}

	var shipper *scrape.GraphiteShipper
	if cli.Graphite != "" {
		shipper = scrape.NewGraphiteShipper(fmt.Sprintf("%s:%d", cli.Graphite, cli.GraphitePort), fabric, time.Duration(cli.UpdateInterval)*time.Second)
		shipper.Start()
	}

	log.Info("listening on %s:%d, broker=%s topic=%s", cli.RxAddr, cli.Port, cli.Broker, cli.Topic)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var deadline <-chan time.Time
	if cli.StopAfter > 0 {
		deadline = time.After(time.Duration(cli.StopAfter) * time.Second)
	}

	select {
	case <-stop:
		log.Info("received shutdown signal")
	case <-deadline:
		log.Info("stopafter deadline reached")
	}

	if shipper != nil {
		shipper.Stop()
	}
	inst.Stop()

	log.Info("stopped cleanly")
	return config.ExitOK
}

// checkMTU rejects interfaces whose MTU can't carry a jumbo VMM3 frame.
// A too-small MTU silently fragments readout packets, corrupting the
// envelope/VMM3 boundary; this is treated as a fatal hardware
// precondition rather than a recoverable parse error.
func checkMTU() error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("listing interfaces: %w", err)
	}
	const minMTU = 9000
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagLoopback != 0 || ifi.Flags&net.FlagUp == 0 {
			continue
		}
		if ifi.MTU > 0 && ifi.MTU < minMTU {
			return fmt.Errorf("interface %s has MTU %d, want >= %d", ifi.Name, ifi.MTU, minMTU)
		}
	}
	return nil
}

func maxFENMap(n int) map[int]uint8 {
	m := make(map[int]uint8, n)
	for i := 0; i < n; i++ {
		m[i] = maxFENPerRing
	}
	return m
}

