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
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"sync"
	"time"
)

// record is one JSONL entry written by FileSink.
type record struct {
	Seq       uint64 `json:"seq"`
	TimeNS    int64  `json:"time_ns"`
	PayloadB64 string `json:"payload_b64"`
}

// FileSink is a buffered JSONL raw-packet dump, one line per packet. It
// is safe for concurrent use, though in practice only the ingress thread
// calls Dump.
type FileSink struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer

	lastFlush time.Time
}

// NewFileSink opens (or creates) the file at path in append mode with a
// buffered writer. Call Close when done.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f, w: bufio.NewWriterSize(f, 1<<20), lastFlush: time.Now()}, nil
}

// Dump appends one raw packet as a JSON line.
func (s *FileSink) Dump(_ context.Context, seq uint64, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := record{Seq: seq, TimeNS: time.Now().UnixNano(), PayloadB64: base64.StdEncoding.EncodeToString(payload)}
	if err := json.NewEncoder(s.w).Encode(&r); err != nil {
		return err
	}
	if time.Since(s.lastFlush) > 100*time.Millisecond {
		if err := s.w.Flush(); err != nil {
			return err
		}
		s.lastFlush = time.Now()
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.w.Flush()
	return s.f.Close()
}
