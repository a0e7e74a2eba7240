package pipeline

import (
	"errors"
	"fmt"
)

// ErrValidation marks a job rejected before any processing started.
var ErrValidation = errors.New("pipeline: invalid job")

// Failure codes surfaced in error reports. Stable strings so callers
// and report consumers can branch on them.
const (
	CodeDocLoadFailed      = "DOC_LOAD_FAILED"
	CodeRulesEngineFailed  = "RULES_ENGINE_FAILED"
	CodeAIProcessingFailed = "AI_PROCESSING_FAILED"
	CodeOutputSaveFailed   = "OUTPUT_SAVE_FAILED"
	CodeUnexpectedFailure  = "UNEXPECTED_FAILURE"
)

// RedactionError ties a failure to the pipeline stage that produced it
// and a stable code for the failure report.
type RedactionError struct {
	Stage string
	Code  string
	Err   error
}

func (e *RedactionError) Error() string {
	return fmt.Sprintf("pipeline: %s stage failed [%s]: %v", e.Stage, e.Code, e.Err)
}

func (e *RedactionError) Unwrap() error { return e.Err }

func stageErr(stage, code string, err error) error {
	return &RedactionError{Stage: stage, Code: code, Err: err}
}
