package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Stage names used to tag external-service failures.
const (
	StageRefine  = "refine"
	StageSpecify = "specify"
	StagePlan    = "plan"
)

// ErrTimeout marks a stage that exceeded its configured deadline.
var ErrTimeout = errors.New("pipeline: stage timed out")

// ValidationError reports unusable input; no external call was made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "pipeline: " + e.Reason }

// ExternalServiceError reports a failed external call, tagged with the stage
// that was running when it failed.
type ExternalServiceError struct {
	Stage string
	Err   error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("pipeline: %s stage failed: %v", e.Stage, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func stageError(stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return &ExternalServiceError{Stage: stage, Err: err}
}
