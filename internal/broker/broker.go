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

// Package broker adapts the ev44 serializer's Producer contract onto a
// minimal Kafka abstraction, the same way the rate limiter's persistence
// package adapts its commit log onto one. We intentionally avoid
// importing a specific Kafka client library here: the wire codec and
// broker transport are an external concern, so only the produce
// boundary is modeled and exercised.
package broker

import (
	"context"
	"fmt"
	"time"
)

// Producer is a minimal abstraction over a Kafka client: topic, key,
// value and headers, exactly the shape a real client's ProduceMessage
// call takes. Swapping in a real client means implementing this
// interface, not changing any caller.
type Producer interface {
	Produce(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error
}

// LoggingProducer is a dependency-free stand-in that logs every publish.
// It lets a detector run end to end without a broker present, the same
// role persistence.LoggingKafkaProducer plays for the rate limiter demo.
type LoggingProducer struct{}

func (LoggingProducer) Produce(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	fmt.Printf("[broker-demo] TOPIC=%s KEY=%s BYTES=%d HEADERS=%v\n", topic, string(key), len(value), headers)
	return nil
}

// EV44Publisher adapts a Producer and a fixed topic into the
// ev44.Producer contract the Serializer drives.
type EV44Publisher struct {
	producer Producer
	topic    string
	timeout  time.Duration
}

// NewEV44Publisher constructs a publisher bound to topic.
func NewEV44Publisher(producer Producer, topic string) *EV44Publisher {
	return &EV44Publisher{producer: producer, topic: topic, timeout: 10 * time.Second}
}

// Produce implements ev44.Producer. referenceTimeNS, encoded as the
// message key, lets downstream consumers partition or dedupe by pulse
// without decoding the payload.
func (p *EV44Publisher) Produce(payload []byte, referenceTimeNS uint64) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	key := []byte(fmt.Sprintf("%d", referenceTimeNS))
	headers := map[string]string{"content-type": "application/octet-stream"}
	return p.producer.Produce(ctx, p.topic, key, payload, headers)
}
