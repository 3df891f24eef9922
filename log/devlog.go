// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package log provides the development-only structured logger shared by the
// time-travel controller and the debug bridge. Production builds (or any
// process with NEXUS_ENV=production) get a no-op logger so the ambient
// diagnostics carry zero cost off the hot path.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once    sync.Once
	sugared *zap.SugaredLogger
)

// IsDevelopment reports whether the process is running outside of the
// belt-and-braces production signal consulted by the bridge (§4.6(7), §6.4).
func IsDevelopment() bool {
	return os.Getenv("NEXUS_ENV") != "production"
}

// L returns the shared development logger, built lazily on first use.
func L() *zap.SugaredLogger {
	once.Do(func() {
		if !IsDevelopment() {
			sugared = zap.NewNop().Sugar()
			return
		}
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		logger, err := cfg.Build()
		if err != nil {
			sugared = zap.NewNop().Sugar()
			return
		}
		sugared = logger.Sugar()
	})
	return sugared
}

// SetForTesting swaps in a nop logger, mirroring how codenerd's tests pin
// `logger = zap.NewNop()` before exercising CLI commands.
func SetForTesting() {
	sugared = zap.NewNop().Sugar()
}
