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

// Package dump implements the optional raw-packet debug path: every
// Nth ingress packet is shipped, unmodified, to a debug topic so an
// operator can inspect live traffic without touching the hot path.
package dump

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RawDumpSink accepts one raw packet at a time. Implementations must not
// block the ingress thread for any meaningful duration.
type RawDumpSink interface {
	Dump(ctx context.Context, seq uint64, payload []byte) error
}

// RedisDebugPublisher ships raw packets onto a Redis stream via XADD,
// capped so the debug stream cannot grow unbounded if nobody is reading
// it.
type RedisDebugPublisher struct {
	client    *redis.Client
	streamKey string
	maxLen    int64
}

// NewRedisDebugPublisher connects to addr and publishes onto streamKey,
// trimming the stream to approximately maxLen entries.
func NewRedisDebugPublisher(addr, streamKey string, maxLen int64) *RedisDebugPublisher {
	if maxLen <= 0 {
		maxLen = 10_000
	}
	return &RedisDebugPublisher{
		client:    redis.NewClient(&redis.Options{Addr: addr}),
		streamKey: streamKey,
		maxLen:    maxLen,
	}
}

// Dump publishes one raw packet as a stream entry.
func (p *RedisDebugPublisher) Dump(ctx context.Context, seq uint64, payload []byte) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamKey,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"seq":     seq,
			"payload": payload,
			"ts":      time.Now().UnixNano(),
		},
	}).Err()
}

// Close releases the underlying Redis connection pool.
func (p *RedisDebugPublisher) Close() error {
	return p.client.Close()
}

// EveryNth wraps a RawDumpSink so only every nth packet is forwarded,
// keeping the debug path's overhead proportional to a configurable
// sampling rate rather than full line rate.
type EveryNth struct {
	sink RawDumpSink
	n    uint64
}

// NewEveryNth wraps sink to forward one in every n calls to Dump. n <= 1
// forwards every packet.
func NewEveryNth(sink RawDumpSink, n uint64) *EveryNth {
	if n == 0 {
		n = 1
	}
	return &EveryNth{sink: sink, n: n}
}

// Dump forwards to the wrapped sink only when seq is a multiple of n.
func (e *EveryNth) Dump(ctx context.Context, seq uint64, payload []byte) error {
	if seq%e.n != 0 {
		return nil
	}
	return e.sink.Dump(ctx, seq, payload)
}
