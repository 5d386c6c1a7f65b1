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

// Package affinity routes an envelope's output-queue id (0-23) to one of
// a fixed set of processing shards via rendezvous hashing, so a given
// output queue sticks to the same shard across packets without any
// shared routing table between shards.
package affinity

import (
	"fmt"
	"hash/fnv"
	"strconv"

	rendezvous "github.com/dgryski/go-rendezvous"
)

// Router assigns output-queue ids to named processing shards.
type Router struct {
	rv     *rendezvous.Rendezvous
	shards []string
}

// NewRouter builds a Router over shardCount named shards ("shard-0",
// "shard-1", ...). A single-shard deployment (the common case today) is
// just a Router of size 1 that always resolves to "shard-0".
func NewRouter(shardCount int) *Router {
	if shardCount < 1 {
		shardCount = 1
	}
	shards := make([]string, shardCount)
	for i := range shards {
		shards[i] = fmt.Sprintf("shard-%d", i)
	}
	return &Router{
		rv:     rendezvous.New(shards, hashString),
		shards: shards,
	}
}

// Shard returns the shard name that owns outputQueue.
func (r *Router) Shard(outputQueue uint8) string {
	return r.rv.Lookup(strconv.Itoa(int(outputQueue)))
}

// ShardIndex returns the numeric index (0..shardCount-1) of the shard
// that owns outputQueue, for callers indexing directly into a slice of
// per-shard processing state.
func (r *Router) ShardIndex(outputQueue uint8) int {
	name := r.Shard(outputQueue)
	for i, s := range r.shards {
		if s == name {
			return i
		}
	}
	return 0
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
