// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

// Package nexuserr defines the stable error taxonomy for nexus-state.
// Every error the core raises is a CodedError so callers can recover the
// category with errors.As instead of matching on message text.
package nexuserr

import (
	"errors"
	"fmt"
)

const (
	CodeInvalidAtomDefinition = "invalid_atom_definition"
	CodeWriteToComputed       = "write_to_computed"
	CodeCircularDependency    = "circular_dependency"
	CodeUnknownAtom           = "unknown_atom"
	CodeMalformedDebugMessage = "malformed_debug_message"
	CodePluginFailure         = "plugin_failure"
	CodeSubscriberFailure     = "subscriber_failure"
)

// CodedError wraps an error with a stable string code for categorization.
type CodedError struct {
	Code string
	Err  error
}

func (e *CodedError) Error() string {
	return e.Err.Error()
}

func (e *CodedError) Unwrap() error {
	return e.Err
}

func make(code string, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Err: fmt.Errorf(format, args...)}
}

// GetCode extracts the error code from anywhere in err's chain.
// Returns "" if err is nil or carries no CodedError.
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

func InvalidAtomDefinition(reason string) error {
	return make(CodeInvalidAtomDefinition, "invalid atom definition: %s", reason)
}

func WriteToComputed(atomName string) error {
	return make(CodeWriteToComputed, "cannot write to computed atom %q", atomName)
}

func CircularDependency(atomName string) error {
	return make(CodeCircularDependency, "circular dependency detected while evaluating atom %q", atomName)
}

func UnknownAtom(id string) error {
	return make(CodeUnknownAtom, "unknown atom %q", id)
}

func MalformedDebugMessage(reason string) error {
	return make(CodeMalformedDebugMessage, "malformed debug message: %s", reason)
}

func PluginFailure(reason string) error {
	return make(CodePluginFailure, "plugin failure: %s", reason)
}

func SubscriberFailure(reason string) error {
	return make(CodeSubscriberFailure, "subscriber failure: %s", reason)
}
