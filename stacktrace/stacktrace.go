// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package stacktrace captures and filters call frames for the debug
// bridge's optional action stack traces (§4.8). It is active only when
// the process is in development mode and the bridge is configured with
// tracing enabled; otherwise Capture returns "" with no allocation, per
// §4.8 "zero allocation on the hot path".
//
// Frame capture is grounded on the teacher's util.PanicHandler
// (tsunami/util/util.go), which calls runtime/debug.PrintStack on a
// recovered panic; here runtime.Callers/runtime.CallersFrames is used
// instead so frames can be filtered and joined rather than dumped raw.
package stacktrace

import (
	"fmt"
	"runtime"
	"strings"
)

const DefaultMaxFrames = 10

// defaultNoise lists substrings identifying frames to drop: the tracer's
// own Capture frame, the Go test runner, and the goroutine entry frame,
// none of which add debugging value to an action trace.
var defaultNoise = []string{
	"nexus-state/stacktrace.Capture",
	"testing.tRunner",
	"runtime.goexit",
}

// Options configures a capture.
type Options struct {
	MaxFrames int
	Noise     []string
}

// Capture walks the call stack (skipping the frames used to get here),
// filters frames matching noise, and returns them newline-joined, most
// recent call first. It returns "" when dev is false (§4.8 "In all other
// conditions the tracer returns nothing").
func Capture(dev bool, opts Options) string {
	if !dev {
		return ""
	}
	maxFrames := opts.MaxFrames
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	noise := opts.Noise
	if noise == nil {
		noise = defaultNoise
	}

	pcs := make([]uintptr, maxFrames*4)
	n := runtime.Callers(2, pcs) // skip runtime.Callers and Capture itself
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])

	var lines []string
	for {
		frame, more := frames.Next()
		if !isNoise(frame.Function, noise) {
			lines = append(lines, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
			if len(lines) >= maxFrames {
				break
			}
		}
		if !more {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func isNoise(function string, noise []string) bool {
	for _, n := range noise {
		if strings.Contains(function, n) {
			return true
		}
	}
	return false
}
