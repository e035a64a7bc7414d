package summary

import (
	"log/slog"
	"sort"
	"time"

	"n8n-monitor/internal/domain/execution"
)

const UnknownWorkflowName = "Unknown"

type Engine struct {
	log *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{log: logger}
}

// Aggregate builds both summary documents from a single fetch.
//
// Records outside the window only influence a workflow's lastExecutionTime.
// Buckets are ordered by startedAt descending (unknown start times last, ties keep
// fetch order) and cut to attrLimit items; attrLimit <= 0 disables the cut.
func (e *Engine) Aggregate(workflows []execution.Workflow, records []execution.Record, window Window, attrLimit int) Result {
	statuses := make([]execution.Status, len(records))
	retained := make([]bool, len(records))
	byWorkflow := make(map[string][]int, len(workflows))
	for i, rec := range records {
		statuses[i] = execution.NormalizeStatus(rec.RawStatus, e.log)
		retained[i] = window.Includes(rec.StartedAt)
		byWorkflow[rec.WorkflowID] = append(byWorkflow[rec.WorkflowID], i)
	}

	names := make(map[string]string, len(workflows))
	wfSummary := WorkflowsSummary{
		Items:       make([]WorkflowItem, 0, len(workflows)),
		Total:       len(workflows),
		GeneratedAt: window.End,
		WindowHours: window.Hours,
	}
	for _, wf := range workflows {
		names[wf.ID] = wf.Name
		if wf.Active {
			wfSummary.Active++
		}

		item := WorkflowItem{
			ID:                    wf.ID,
			Name:                  wf.Name,
			Active:                wf.Active,
			RecentExecutionCounts: NewStatusCounts(),
		}
		for _, i := range byWorkflow[wf.ID] {
			if st := records[i].StartedAt; st != nil {
				if item.LastExecutionTime == nil || st.After(*item.LastExecutionTime) {
					t := *st
					item.LastExecutionTime = &t
				}
			}
			if retained[i] {
				item.RecentExecutionCounts[statuses[i]]++
			}
		}
		wfSummary.Items = append(wfSummary.Items, item)
	}

	exSummary := ExecutionsSummary{
		Window:      window.Label(),
		GeneratedAt: window.End,
	}
	for _, s := range execution.Statuses {
		exSummary.Bucket(s).Items = make([]ExecutionItem, 0)
	}
	for i, rec := range records {
		if !retained[i] {
			continue
		}
		item := ExecutionItem{
			ID:           rec.ID,
			WorkflowID:   rec.WorkflowID,
			WorkflowName: resolveWorkflowName(names, rec),
			StartedAt:    rec.StartedAt,
			FinishedAt:   rec.FinishedAt,
			DurationMs:   rec.DurationMs(),
		}
		if statuses[i] == execution.StatusError {
			item.Error = execution.ExtractError(rec.Payload)
		}
		b := exSummary.Bucket(statuses[i])
		b.Items = append(b.Items, item)
	}

	for _, s := range execution.Statuses {
		b := exSummary.Bucket(s)
		b.Count = len(b.Items)
		sortNewestFirst(b.Items)
		if attrLimit > 0 && len(b.Items) > attrLimit {
			b.Items = b.Items[:attrLimit:attrLimit]
		}
		exSummary.Total += b.Count
	}

	e.log.Debug("summaries aggregated",
		"workflows", wfSummary.Total,
		"records", len(records),
		"retained", exSummary.Total,
		"window", exSummary.Window,
	)

	return Result{Workflows: wfSummary, Executions: exSummary}
}

func resolveWorkflowName(names map[string]string, rec execution.Record) string {
	if name, ok := names[rec.WorkflowID]; ok && name != "" {
		return name
	}
	if hint := rec.WorkflowNameHint(); hint != "" {
		return hint
	}
	return UnknownWorkflowName
}

func sortNewestFirst(items []ExecutionItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return startedAfter(items[i].StartedAt, items[j].StartedAt)
	})
}

func startedAfter(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}
