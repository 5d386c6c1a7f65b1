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

// Package efulog is a thin leveled wrapper around the standard log
// package. It exists so every detector component logs through the same
// small surface (Info/Warn/Error/Fatal) instead of reaching for fmt and
// log directly throughout the tree.
package efulog

import (
	"log"
	"os"
)

// Logger prefixes every line with a component tag and a level.
type Logger struct {
	std *log.Logger
}

// New returns a Logger tagging every line with component, e.g. "freia".
func New(component string) *Logger {
	return &Logger{std: log.New(os.Stderr, "["+component+"] ", log.LstdFlags)}
}

func (l *Logger) Info(format string, args ...any)  { l.std.Printf("INFO  "+format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.std.Printf("WARN  "+format, args...) }
func (l *Logger) Error(format string, args ...any) { l.std.Printf("ERROR "+format, args...) }

// Fatal logs and exits with code 1, matching the teacher's use of
// log.Fatalf for unrecoverable start-up failures.
func (l *Logger) Fatal(format string, args ...any) { l.std.Fatalf("FATAL "+format, args...) }
