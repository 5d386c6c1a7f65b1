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

package scrape

import (
	"bufio"
	"net"
	"testing"
	"time"

	"efu-go/pkg/counters"
)

func TestGraphiteShipper_ShipsCounterLines(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	lines := make(chan string, 8)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	fabric := counters.NewFabric("freia")
	h, err := fabric.Create("RxPackets")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.Inc()

	shipper := NewGraphiteShipper(ln.Addr().String(), fabric, 10*time.Millisecond)
	shipper.Start()
	defer shipper.Stop()

	select {
	case line := <-lines:
		if line == "" {
			t.Fatal("got empty line")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a shipped line")
	}
}
