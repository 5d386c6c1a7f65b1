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

// Package config holds the CLI surface shared by every detector's
// cmd/efu-<name> entrypoint, plus the exit codes that terminate it.
package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// Exit codes, per the common EFU skeleton: 0 on clean stop, 1 on
// configuration or socket error, 2 on a fatal hardware precondition
// (MTU), 3 on an unhandled panic recovered at main.
const (
	ExitOK            = 0
	ExitConfigOrSocket = 1
	ExitHardware      = 2
	ExitPanic         = 3
)

// CLI is the parsed command-line surface common to every detector binary.
type CLI struct {
	Detector        string
	ConfigPath      string
	CalibrationPath string
	RxAddr          string
	Port            int
	Broker          string
	Topic           string
	StopAfter       int // seconds; 0 means run indefinitely
	DumpPrefix      string
	Graphite        string
	GraphitePort    int
	UpdateInterval  int // seconds; counter scrape cadence
	ReadConfig      bool
}

// Parse parses args (normally os.Args[1:]) for detector, the exact name
// this binary identifies itself with. --detector may repeat that name
// explicitly (a shared launch script passes it uniformly across detector
// variants); a mismatch is a fatal named config error, the same treatment
// hybrid.LoadConfig gives a mismatched Detector field in the JSON config.
//
// Unknown flags are ordinarily an error. If --read_config is present
// anywhere in args, a shared launch script is assumed to be passing flags
// meant for other detector variants too, and unrecognized flags are
// dropped instead of aborting the parse.
func Parse(name string, args []string) (*CLI, error) {
	cli := &CLI{Detector: name, UpdateInterval: 1}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cli.Detector, "detector", name, "detector name, must match the binary's compiled-in name")
	fs.StringVar(&cli.ConfigPath, "config", "", "path to detector configuration JSON")
	fs.StringVar(&cli.CalibrationPath, "calibration", "", "path to calibration JSON")
	fs.StringVar(&cli.RxAddr, "rx", "0.0.0.0", "UDP listen address")
	fs.IntVar(&cli.Port, "port", 9000, "UDP listen port")
	fs.StringVar(&cli.Broker, "broker", "", "broker host:port")
	fs.StringVar(&cli.Topic, "topic", "", "output topic")
	fs.IntVar(&cli.StopAfter, "stopafter", 0, "stop after N seconds (0 = run indefinitely)")
	fs.StringVar(&cli.DumpPrefix, "dumpprefix", "", "optional raw packet dump file prefix")
	fs.StringVar(&cli.Graphite, "graphite", "", "graphite-style TCP shipper host")
	fs.IntVar(&cli.GraphitePort, "gport", 2003, "graphite-style TCP shipper port")
	fs.IntVar(&cli.UpdateInterval, "updateinterval", 1, "counter scrape cadence in seconds")
	fs.BoolVar(&cli.ReadConfig, "read_config", false, "tolerate unknown flags during this pass")

	tolerant := hasReadConfigFlag(args)
	remaining := args
	for {
		err := fs.Parse(remaining)
		if err == nil {
			break
		}
		name, ok := unrecognizedFlagName(err)
		if !tolerant || !ok {
			return nil, fmt.Errorf("config: parsing flags: %w", err)
		}
		remaining = dropFlag(remaining, name)
	}

	if cli.Detector != name {
		return nil, fmt.Errorf("config: --detector %q does not match binary's detector %q", cli.Detector, name)
	}
	if cli.ConfigPath == "" {
		return nil, fmt.Errorf("config: --config is required")
	}
	if cli.Broker == "" {
		return nil, fmt.Errorf("config: --broker is required")
	}
	if cli.Topic == "" {
		return nil, fmt.Errorf("config: --topic is required")
	}

	return cli, nil
}

// hasReadConfigFlag does a lenient pre-scan of args for --read_config (or
// -read_config) set to a true-ish value, before the real FlagSet has had a
// chance to reject anything. It deliberately doesn't handle every flag.Value
// parsing edge case; it only needs to decide tolerant-vs-strict mode ahead
// of the real parse.
func hasReadConfigFlag(args []string) bool {
	for _, a := range args {
		name := strings.TrimLeft(a, "-")
		switch {
		case name == "read_config":
			return true
		case strings.HasPrefix(name, "read_config="):
			v := strings.TrimPrefix(name, "read_config=")
			return v != "false" && v != "0"
		}
	}
	return false
}

// unrecognizedFlagName extracts the flag name from flag.Parse's "flag
// provided but not defined: -xxx" error, the only flag.ContinueOnError
// failure mode dropFlag knows how to recover from.
func unrecognizedFlagName(err error) (string, bool) {
	const prefix = "flag provided but not defined: -"
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	return strings.TrimPrefix(msg, prefix), true
}

// dropFlag removes one occurrence of --name (or -name), along with its
// value argument if the value was space-separated rather than joined with
// "=", from args.
func dropFlag(args []string, name string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		trimmed := strings.TrimLeft(a, "-")
		if trimmed == name {
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		if strings.HasPrefix(trimmed, name+"=") {
			continue
		}
		out = append(out, a)
	}
	return out
}
