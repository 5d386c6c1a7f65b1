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

package affinity

import "testing"

func TestRouter_StableAssignment(t *testing.T) {
	r := NewRouter(4)
	for q := uint8(0); q < 24; q++ {
		first := r.Shard(q)
		second := r.Shard(q)
		if first != second {
			t.Errorf("queue %d: shard changed across calls (%s vs %s)", q, first, second)
		}
	}
}

func TestRouter_SingleShardAlwaysShard0(t *testing.T) {
	r := NewRouter(1)
	for q := uint8(0); q < 24; q++ {
		if idx := r.ShardIndex(q); idx != 0 {
			t.Errorf("queue %d: ShardIndex = %d, want 0", q, idx)
		}
	}
}

func TestRouter_DistributesAcrossShards(t *testing.T) {
	r := NewRouter(4)
	seen := map[int]bool{}
	for q := uint8(0); q < 24; q++ {
		seen[r.ShardIndex(q)] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected queues to spread across multiple shards, got %d distinct", len(seen))
	}
}
