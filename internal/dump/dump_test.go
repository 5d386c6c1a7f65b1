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

package dump

import (
	"context"
	"path/filepath"
	"testing"
)

type recordingSink struct {
	seqs []uint64
}

func (r *recordingSink) Dump(_ context.Context, seq uint64, _ []byte) error {
	r.seqs = append(r.seqs, seq)
	return nil
}

func TestEveryNth_ForwardsOnlyMultiples(t *testing.T) {
	rec := &recordingSink{}
	sink := NewEveryNth(rec, 10)

	for seq := uint64(0); seq < 30; seq++ {
		if err := sink.Dump(context.Background(), seq, nil); err != nil {
			t.Fatalf("Dump: %v", err)
		}
	}

	want := []uint64{0, 10, 20}
	if len(rec.seqs) != len(want) {
		t.Fatalf("forwarded %v, want %v", rec.seqs, want)
	}
	for i, s := range want {
		if rec.seqs[i] != s {
			t.Errorf("rec.seqs[%d] = %d, want %d", i, rec.seqs[i], s)
		}
	}
}

func TestEveryNth_ZeroMeansEveryPacket(t *testing.T) {
	rec := &recordingSink{}
	sink := NewEveryNth(rec, 0)

	for seq := uint64(0); seq < 3; seq++ {
		if err := sink.Dump(context.Background(), seq, nil); err != nil {
			t.Fatalf("Dump: %v", err)
		}
	}
	if len(rec.seqs) != 3 {
		t.Fatalf("forwarded %d packets, want 3", len(rec.seqs))
	}
}

func TestFileSink_WritesAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.jsonl")
	sink, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if err := sink.Dump(context.Background(), 1, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
