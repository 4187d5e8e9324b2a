package models

import "log/slog"

// UploadedFile describes a temporary upload handed to the input node. The
// input node deletes Path after reading it, whether or not the read succeeds.
type UploadedFile struct {
	Path         string `json:"path"`
	OriginalName string `json:"originalName"`
}

// ExecutionContext carries the per-execution inputs and logger through the
// pipeline. It is created by the executor and passed to every node.
type ExecutionContext struct {
	ExecutionID string        `json:"execution_id"`
	WorkflowID  string        `json:"workflow_id"`
	InputText   string        `json:"-"`
	File        *UploadedFile `json:"-"`
	SessionID   string        `json:"session_id,omitempty"`
	Logger      *slog.Logger  `json:"-"`
}

// WithLogger returns a shallow copy of the context bound to the given logger.
func (ec *ExecutionContext) WithLogger(logger *slog.Logger) *ExecutionContext {
	copied := *ec
	copied.Logger = logger

	return &copied
}

// ExecutionResult is the executor's return value: every node's output keyed
// by node ID, plus the final payload.
type ExecutionResult struct {
	Success     bool               `json:"success"`
	ExecutionID string             `json:"executionId"`
	Results     map[string]Payload `json:"results"`
	FinalOutput Payload            `json:"finalOutput"`
}
