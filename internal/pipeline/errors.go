package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned when the first page could not be fetched, so nothing
	// was accumulated. It is distinct from an empty but successful fetch.
	ErrNoData = errors.New("pipeline: no execution data fetched")

	ErrPollInFlight = errors.New("pipeline: poll already in flight")
)

const (
	StageWorkflows  = "workflows"
	StageExecutions = "executions"
	StageDeadline   = "deadline"
)

type PollError struct {
	CycleID string
	Stage   string
	Err     error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll %s failed at %s: %v", e.CycleID, e.Stage, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}
