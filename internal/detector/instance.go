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

package detector

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"efu-go/internal/dump"
	"efu-go/pkg/counters"
	"efu-go/pkg/essreadout"
	"efu-go/pkg/ring"
	"efu-go/pkg/vmm3"
)

const (
	udpReadDeadline = 100 * time.Millisecond
	idleSleep       = 10 * time.Microsecond
	stopGrace       = 200 * time.Millisecond
	flushInterval   = 100 * time.Millisecond
)

// Instance owns one detector's full ingress/processing pipeline: one UDP
// reader goroutine filling the PacketRing, one processing goroutine
// draining it through the readout/VMM3 parsers and the ProcessingPlugin,
// and a periodic flush that calls into the plugin and the serializer
// even under a quiet line.
type Instance struct {
	conn   *net.UDPConn
	rb     *ring.PacketRing
	fifo   *ring.SlotFifo
	parser *essreadout.Parser
	vmm    *vmm3.Parser
	plugin ProcessingPlugin
	dumper dump.RawDumpSink

	rxPackets      *counters.Handle
	rxIdle         *counters.Handle
	fifoPushErrors *counters.Handle

	runThreads atomic.Bool
	wg         sync.WaitGroup
	seq        atomic.Uint64

	lastRef essreadout.TimeRef
}

// NewInstance constructs an Instance bound to conn. dumper may be nil to
// disable the raw debug-dump path.
func NewInstance(
	conn *net.UDPConn,
	ringSize int,
	parser *essreadout.Parser,
	vmmParser *vmm3.Parser,
	plugin ProcessingPlugin,
	dumper dump.RawDumpSink,
	rxPackets, rxIdle, fifoPushErrors *counters.Handle,
) *Instance {
	if ringSize <= 0 {
		ringSize = ring.DefaultSlotCount
	}
	inst := &Instance{
		conn:           conn,
		rb:             ring.NewPacketRing(ringSize),
		fifo:           ring.NewSlotFifo(ringSize),
		parser:         parser,
		vmm:            vmmParser,
		plugin:         plugin,
		dumper:         dumper,
		rxPackets:      rxPackets,
		rxIdle:         rxIdle,
		fifoPushErrors: fifoPushErrors,
	}
	inst.runThreads.Store(true)
	return inst
}

// Start launches the ingress and processing goroutines.
func (inst *Instance) Start() {
	inst.wg.Add(2)
	go func() {
		defer inst.wg.Done()
		inst.ingressLoop()
	}()
	go func() {
		defer inst.wg.Done()
		inst.processingLoop()
	}()
}

// Stop requests both goroutines to exit and waits for them to do so.
// Per the concurrency model, shutdown discards any in-flight packet
// rather than draining it, and bounds total shutdown latency to roughly
// stopGrace (the ingress read deadline plus the processing idle sleep).
func (inst *Instance) Stop() {
	inst.runThreads.Store(false)
	done := make(chan struct{})
	go func() {
		inst.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopGrace):
		fmt.Println("ERROR: detector instance did not stop within grace period")
	}
}

func (inst *Instance) ingressLoop() {
	for inst.runThreads.Load() {
		_ = inst.conn.SetReadDeadline(time.Now().Add(udpReadDeadline))

		slotIdx := inst.rb.Reserve()
		slot := inst.rb.Slot(slotIdx)
		n, err := inst.conn.Read(slot.Buf[:])
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			continue
		}
		inst.rb.Commit(slotIdx, n)
		if inst.rxPackets != nil {
			inst.rxPackets.Inc()
		}

		if inst.dumper != nil {
			seq := inst.seq.Add(1)
			_ = inst.dumper.Dump(context.Background(), seq, slot.Buf[:n])
		}

		if !inst.fifo.Push(slotIdx) {
			// FIFO is full: the processing side can't keep up. The packet
			// is dropped; there is no back-pressure path by design.
			if inst.fifoPushErrors != nil {
				inst.fifoPushErrors.Inc()
			}
			continue
		}
	}
}

func (inst *Instance) processingLoop() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for inst.runThreads.Load() {
		select {
		case <-ticker.C:
			inst.flush(false)
			continue
		default:
		}

		slotIdx, ok := inst.fifo.Pop()
		if !ok {
			if inst.rxIdle != nil {
				inst.rxIdle.Inc()
			}
			time.Sleep(idleSleep)
			continue
		}

		slot := inst.rb.Slot(slotIdx)
		env, ref, data, _, ok := inst.parser.Validate(slot.Buf[:], slot.Len)
		if !ok {
			continue
		}
		_ = env
		inst.lastRef = ref

		readouts := inst.vmm.Parse(data)
		inst.plugin.ProcessReadouts(readouts, ref)
		inst.plugin.FlushEvents(false, ref)
	}

	// A clean stop (the only way this loop exits) still owes the broker
	// a final produce of whatever the serializer is holding.
	inst.flush(true)
}

func (inst *Instance) flush(final bool) {
	inst.plugin.FlushEvents(final, inst.lastRef)
	_ = inst.plugin.FlushSerializer()
}
