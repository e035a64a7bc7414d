package execution

import (
	"log/slog"
	"time"
)

type Workflow struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Record is one execution as fetched from upstream. Payload keeps the untouched
// JSON object so nested error details can be dug out later.
type Record struct {
	ID         string
	WorkflowID string
	RawStatus  string
	StartedAt  *time.Time
	FinishedAt *time.Time
	Payload    map[string]any
}

// DecodeWorkflow reads a workflow listing entry. Entries without an id are rejected.
func DecodeWorkflow(raw map[string]any) (Workflow, bool) {
	id := lookupString(raw, "id")
	if id == "" {
		return Workflow{}, false
	}
	var active bool
	if v, ok := lookup(raw, "active"); ok {
		active = asBool(v)
	}
	return Workflow{
		ID:     id,
		Name:   lookupString(raw, "name"),
		Active: active,
	}, true
}

// DecodeRecord reads an execution entry. Wrong-typed fields are treated as absent.
func DecodeRecord(raw map[string]any, logger *slog.Logger) Record {
	rec := Record{
		ID:         lookupString(raw, "id"),
		WorkflowID: lookupString(raw, "workflowId"),
		RawStatus:  lookupString(raw, "status"),
		StartedAt:  ParseTime(lookupString(raw, "startedAt"), logger),
		Payload:    raw,
	}

	finished := lookupString(raw, "stoppedAt")
	if finished == "" {
		finished = lookupString(raw, "finishedAt")
	}
	rec.FinishedAt = ParseTime(finished, logger)

	// Older servers omit status and only report a finished flag.
	if rec.RawStatus == "" {
		if v, ok := lookup(raw, "finished"); ok && asBool(v) {
			rec.RawStatus = string(StatusSuccess)
		}
	}
	return rec
}

// WorkflowNameHint returns the workflow name embedded in the execution payload, if any.
func (r Record) WorkflowNameHint() string {
	return lookupString(r.Payload, "workflowData", "name")
}

// DurationMs is finishedAt - startedAt in whole milliseconds, nil unless both are known.
func (r Record) DurationMs() *int64 {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return nil
	}
	d := r.FinishedAt.Sub(*r.StartedAt).Milliseconds()
	return &d
}
