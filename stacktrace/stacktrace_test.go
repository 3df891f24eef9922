// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package stacktrace

import (
	"strings"
	"testing"
)

func TestCaptureReturnsEmptyWhenNotDev(t *testing.T) {
	if got := Capture(false, Options{}); got != "" {
		t.Fatalf("Capture(false, ...) = %q, want empty", got)
	}
}

func TestCaptureReturnsFramesWhenDev(t *testing.T) {
	got := Capture(true, Options{})
	if got == "" {
		t.Fatalf("Capture(true, ...) returned empty, want at least one frame")
	}
	if !strings.Contains(got, "TestCaptureReturnsFramesWhenDev") {
		t.Fatalf("Capture(true, ...) = %q, want it to include the calling test frame", got)
	}
}

func TestCaptureFiltersNoise(t *testing.T) {
	got := Capture(true, Options{Noise: []string{"TestCaptureFiltersNoise"}})
	if strings.Contains(got, "TestCaptureFiltersNoise") {
		t.Fatalf("Capture() included a frame matching the configured noise filter: %q", got)
	}
}

func TestCaptureRespectsMaxFrames(t *testing.T) {
	got := Capture(true, Options{MaxFrames: 1})
	lines := strings.Split(got, "\n\t")
	frameCount := 0
	for _, l := range strings.Split(got, "\n") {
		if !strings.HasPrefix(l, "\t") {
			frameCount++
		}
	}
	if frameCount > 1 {
		t.Fatalf("Capture(MaxFrames: 1) returned %d frames (lines=%v), want at most 1", frameCount, lines)
	}
}
