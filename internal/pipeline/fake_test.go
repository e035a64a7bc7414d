package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"n8n-monitor/internal/domain/execution"
	"n8n-monitor/internal/infrastructure/n8n"
)

var errUpstreamDown = errors.New("upstream down")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func rec(id, workflowID, status string, startedAt *time.Time) execution.Record {
	return execution.Record{ID: id, WorkflowID: workflowID, RawStatus: status, StartedAt: startedAt}
}

// fakeUpstream serves a fixed sequence of execution pages keyed by cursor.
type fakeUpstream struct {
	mu sync.Mutex

	workflows    []execution.Workflow
	workflowsErr error

	pages   []n8n.ExecutionPage
	failAt  map[int]error
	block   chan struct{}
	queries []n8n.ExecutionQuery
}

func (f *fakeUpstream) ListWorkflows(ctx context.Context, pageSize, maxPages int) ([]execution.Workflow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.workflowsErr != nil {
		return nil, f.workflowsErr
	}
	return append([]execution.Workflow(nil), f.workflows...), nil
}

func (f *fakeUpstream) ListExecutions(ctx context.Context, q n8n.ExecutionQuery) (n8n.ExecutionPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	idx := len(f.queries) - 1
	block := f.block
	err := f.failAt[idx]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return n8n.ExecutionPage{}, ctx.Err()
		}
	}
	if err != nil {
		return n8n.ExecutionPage{}, err
	}

	want := 0
	if q.Cursor != "" {
		if _, scanErr := fmt.Sscanf(q.Cursor, "c%d", &want); scanErr != nil {
			return n8n.ExecutionPage{}, scanErr
		}
	}
	if want >= len(f.pages) {
		return n8n.ExecutionPage{}, nil
	}
	return f.pages[want], nil
}

func (f *fakeUpstream) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeUpstream) setWorkflowsErr(err error) {
	f.mu.Lock()
	f.workflowsErr = err
	f.mu.Unlock()
}

func cursor(i int) string {
	return fmt.Sprintf("c%d", i)
}

type recordingObserver struct {
	mu        sync.Mutex
	published []Snapshot
	failures  []PollFailure
}

func (o *recordingObserver) SummaryPublished(_ context.Context, snap Snapshot) {
	o.mu.Lock()
	o.published = append(o.published, snap)
	o.mu.Unlock()
}

func (o *recordingObserver) PollFailed(_ context.Context, f PollFailure) {
	o.mu.Lock()
	o.failures = append(o.failures, f)
	o.mu.Unlock()
}

func (o *recordingObserver) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.published), len(o.failures)
}
