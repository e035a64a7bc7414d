package summary

import (
	"fmt"
	"time"

	"n8n-monitor/internal/domain/execution"
)

// Window is the trailing range [Start, End] that decides which executions are recent.
type Window struct {
	Start time.Time
	End   time.Time
	Hours int
}

func NewWindow(now time.Time, hours int) Window {
	now = now.UTC()
	return Window{
		Start: now.Add(-time.Duration(hours) * time.Hour),
		End:   now,
		Hours: hours,
	}
}

// Includes reports whether an execution started at t is retained for this window.
// Records without a start time are retained so they still show up in status counts.
// The upper bound is not enforced: upstream clocks may run slightly ahead of ours.
func (w Window) Includes(t *time.Time) bool {
	if t == nil {
		return true
	}
	return !t.Before(w.Start)
}

func (w Window) Label() string {
	return fmt.Sprintf("%dh", w.Hours)
}

// StatusCounts always carries all five normalized statuses.
type StatusCounts map[execution.Status]int

func NewStatusCounts() StatusCounts {
	c := make(StatusCounts, len(execution.Statuses))
	for _, s := range execution.Statuses {
		c[s] = 0
	}
	return c
}

func (c StatusCounts) Total() int {
	var n int
	for _, v := range c {
		n += v
	}
	return n
}

type WorkflowItem struct {
	ID                    string       `json:"id"`
	Name                  string       `json:"name"`
	Active                bool         `json:"active"`
	LastExecutionTime     *time.Time   `json:"lastExecutionTime"`
	RecentExecutionCounts StatusCounts `json:"recentExecutionCounts"`
}

type WorkflowsSummary struct {
	Items       []WorkflowItem `json:"items"`
	Total       int            `json:"total"`
	Active      int            `json:"active"`
	GeneratedAt time.Time      `json:"generatedAt"`
	WindowHours int            `json:"windowHours"`
}

type ExecutionItem struct {
	ID           string     `json:"id"`
	WorkflowID   string     `json:"workflowId"`
	WorkflowName string     `json:"workflowName"`
	StartedAt    *time.Time `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt"`
	DurationMs   *int64     `json:"durationMs"`
	Error        string     `json:"error,omitempty"`
}

// Bucket holds the most recent items for one status. Count is the size before truncation.
type Bucket struct {
	Count int             `json:"count"`
	Items []ExecutionItem `json:"items"`
}

type ExecutionsSummary struct {
	Total       int       `json:"total"`
	Success     Bucket    `json:"success"`
	Error       Bucket    `json:"error"`
	Running     Bucket    `json:"running"`
	Canceled    Bucket    `json:"canceled"`
	Unknown     Bucket    `json:"unknown"`
	Window      string    `json:"window"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Bucket returns the bucket for s, or nil for an invalid status.
func (e *ExecutionsSummary) Bucket(s execution.Status) *Bucket {
	switch s {
	case execution.StatusSuccess:
		return &e.Success
	case execution.StatusError:
		return &e.Error
	case execution.StatusRunning:
		return &e.Running
	case execution.StatusCanceled:
		return &e.Canceled
	case execution.StatusUnknown:
		return &e.Unknown
	default:
		return nil
	}
}

// Result is the pair of documents produced from one fetch. They are never built separately.
type Result struct {
	Workflows  WorkflowsSummary  `json:"workflows"`
	Executions ExecutionsSummary `json:"executions"`
}
