package summary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"n8n-monitor/internal/domain/execution"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func decodeRecords(t *testing.T, raw string) []execution.Record {
	t.Helper()
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &rows))
	out := make([]execution.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, execution.DecodeRecord(row, quietLogger()))
	}
	return out
}

func at(ts string) *time.Time {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	t = t.UTC()
	return &t
}

func TestAggregate_EndToEndScenario(t *testing.T) {
	workflows := []execution.Workflow{{ID: "w1", Name: "Sync", Active: true}}
	records := decodeRecords(t, `[
		{"id":"e1","workflowId":"w1","status":"success","startedAt":"2024-01-01T10:00:00Z"},
		{"id":"e2","workflowId":"w1","status":"Error","startedAt":"2024-01-01T09:00:00Z",
		 "data":{"resultData":{"error":{"message":"boom"}}}}
	]`)
	window := NewWindow(*at("2024-01-01T11:00:00Z"), 24)

	res := NewEngine(quietLogger()).Aggregate(workflows, records, window, 50)

	require.Len(t, res.Workflows.Items, 1)
	require.Equal(t, StatusCounts{
		execution.StatusSuccess:  1,
		execution.StatusError:    1,
		execution.StatusRunning:  0,
		execution.StatusCanceled: 0,
		execution.StatusUnknown:  0,
	}, res.Workflows.Items[0].RecentExecutionCounts)
	require.True(t, at("2024-01-01T10:00:00Z").Equal(*res.Workflows.Items[0].LastExecutionTime))
	require.Equal(t, 1, res.Workflows.Total)
	require.Equal(t, 1, res.Workflows.Active)
	require.Equal(t, 24, res.Workflows.WindowHours)

	require.Equal(t, 2, res.Executions.Total)
	require.Len(t, res.Executions.Error.Items, 1)
	require.Equal(t, "boom", res.Executions.Error.Items[0].Error)
	require.Equal(t, "Sync", res.Executions.Error.Items[0].WorkflowName)
	require.Equal(t, "", res.Executions.Success.Items[0].Error)
	require.Equal(t, "24h", res.Executions.Window)
}

func TestAggregate_AllInWindowRoundTrip(t *testing.T) {
	now := *at("2024-03-01T12:00:00Z")
	statuses := []string{"success", "error", "running", "canceled", "mystery", "FAILED", "waiting"}
	var records []execution.Record
	const n = 137
	for i := 0; i < n; i++ {
		st := now.Add(-time.Duration(i) * time.Minute)
		records = append(records, execution.Record{
			ID:         fmt.Sprintf("e%d", i),
			WorkflowID: fmt.Sprintf("w%d", i%3),
			RawStatus:  statuses[i%len(statuses)],
			StartedAt:  &st,
		})
	}

	res := NewEngine(quietLogger()).Aggregate(nil, records, NewWindow(now, 6), 10)

	require.Equal(t, n, res.Executions.Total)
	var sum int
	for _, s := range execution.Statuses {
		sum += res.Executions.Bucket(s).Count
	}
	require.Equal(t, n, sum)
}

func TestAggregate_WindowBoundary(t *testing.T) {
	now := *at("2024-01-02T00:00:00Z")
	window := NewWindow(now, 24)
	before := window.Start.Add(-time.Second)
	inside := window.Start.Add(time.Hour)

	workflows := []execution.Workflow{
		{ID: "old", Name: "Old only", Active: false},
		{ID: "mix", Name: "Mixed", Active: true},
	}
	records := []execution.Record{
		{ID: "o1", WorkflowID: "old", RawStatus: "success", StartedAt: &before},
		{ID: "m1", WorkflowID: "mix", RawStatus: "success", StartedAt: &inside},
		{ID: "m0", WorkflowID: "mix", RawStatus: "error", StartedAt: &before},
	}

	res := NewEngine(quietLogger()).Aggregate(workflows, records, window, 50)

	old := res.Workflows.Items[0]
	require.Equal(t, 0, old.RecentExecutionCounts.Total())
	require.NotNil(t, old.LastExecutionTime)
	require.True(t, before.Equal(*old.LastExecutionTime))

	mix := res.Workflows.Items[1]
	require.Equal(t, 1, mix.RecentExecutionCounts[execution.StatusSuccess])
	require.Equal(t, 0, mix.RecentExecutionCounts[execution.StatusError])
	require.True(t, inside.Equal(*mix.LastExecutionTime))

	require.Equal(t, 1, res.Executions.Total)
	require.Equal(t, 0, res.Executions.Error.Count)
	require.Equal(t, "m1", res.Executions.Success.Items[0].ID)

	exactlyStart := window.Start
	res = NewEngine(quietLogger()).Aggregate(nil, []execution.Record{
		{ID: "edge", RawStatus: "success", StartedAt: &exactlyStart},
	}, window, 50)
	require.Equal(t, 1, res.Executions.Success.Count)
}

func TestAggregate_CompactOffsetOutsideWindow(t *testing.T) {
	workflows := []execution.Workflow{{ID: "w1", Name: "Sync", Active: true}}
	records := decodeRecords(t, `[
		{"id":"old","workflowId":"w1","status":"success","startedAt":"2023-06-01T10:00:00+0000"},
		{"id":"new","workflowId":"w1","status":"error","startedAt":"2024-01-01T19:00:00+09"}
	]`)
	window := NewWindow(*at("2024-01-01T11:00:00Z"), 24)

	res := NewEngine(quietLogger()).Aggregate(workflows, records, window, 50)

	require.Equal(t, 1, res.Executions.Total)
	require.Equal(t, 0, res.Executions.Success.Count)
	require.Equal(t, "new", res.Executions.Error.Items[0].ID)

	item := res.Workflows.Items[0]
	require.Equal(t, 0, item.RecentExecutionCounts[execution.StatusSuccess])
	require.Equal(t, 1, item.RecentExecutionCounts[execution.StatusError])
	require.NotNil(t, item.LastExecutionTime)
	require.True(t, at("2024-01-01T10:00:00Z").Equal(*item.LastExecutionTime))
}

func TestAggregate_TruncationKeepsMostRecent(t *testing.T) {
	now := *at("2024-01-01T12:00:00Z")
	const m, k = 25, 10
	var records []execution.Record
	// Oldest first on purpose; the engine must reorder.
	for i := m - 1; i >= 0; i-- {
		st := now.Add(-time.Duration(i) * time.Minute)
		records = append(records, execution.Record{ID: fmt.Sprintf("e%02d", i), RawStatus: "success", StartedAt: &st})
	}

	res := NewEngine(quietLogger()).Aggregate(nil, records, NewWindow(now, 1), k)

	b := res.Executions.Success
	require.Equal(t, m, b.Count)
	require.Len(t, b.Items, k)
	for i, it := range b.Items {
		require.Equal(t, fmt.Sprintf("e%02d", i), it.ID)
	}
}

func TestAggregate_OrderingNilLastAndStableTies(t *testing.T) {
	now := *at("2024-01-01T12:00:00Z")
	same := now.Add(-time.Hour)
	later := now.Add(-time.Minute)
	records := []execution.Record{
		{ID: "nil-1", RawStatus: "running"},
		{ID: "tie-a", RawStatus: "running", StartedAt: &same},
		{ID: "late", RawStatus: "running", StartedAt: &later},
		{ID: "tie-b", RawStatus: "running", StartedAt: &same},
		{ID: "nil-2", RawStatus: "running"},
	}

	res := NewEngine(quietLogger()).Aggregate(nil, records, NewWindow(now, 6), 50)

	var ids []string
	for _, it := range res.Executions.Running.Items {
		ids = append(ids, it.ID)
	}
	require.Equal(t, []string{"late", "tie-a", "tie-b", "nil-1", "nil-2"}, ids)
	require.Equal(t, 5, res.Executions.Running.Count)
}

func TestAggregate_WorkflowNameResolution(t *testing.T) {
	now := *at("2024-01-01T12:00:00Z")
	st := now.Add(-time.Minute)
	records := []execution.Record{
		{ID: "1", WorkflowID: "known", RawStatus: "success", StartedAt: &st},
		{ID: "2", WorkflowID: "hinted", RawStatus: "success", StartedAt: &st,
			Payload: map[string]any{"workflowData": map[string]any{"name": "From payload"}}},
		{ID: "3", WorkflowID: "ghost", RawStatus: "success", StartedAt: &st},
	}

	res := NewEngine(quietLogger()).Aggregate([]execution.Workflow{{ID: "known", Name: "Known"}}, records, NewWindow(now, 1), 50)

	names := map[string]string{}
	for _, it := range res.Executions.Success.Items {
		names[it.ID] = it.WorkflowName
	}
	require.Equal(t, map[string]string{"1": "Known", "2": "From payload", "3": UnknownWorkflowName}, names)
}

func TestAggregate_DurationAndErrorOnlyForErrors(t *testing.T) {
	now := *at("2024-01-01T12:00:00Z")
	start := now.Add(-10 * time.Second)
	end := now.Add(-7500 * time.Millisecond)
	records := []execution.Record{
		{ID: "ok", RawStatus: "success", StartedAt: &start, FinishedAt: &end,
			Payload: map[string]any{"data": map[string]any{"error": "ignored"}}},
		{ID: "bad", RawStatus: "crashed", StartedAt: &start},
	}

	res := NewEngine(quietLogger()).Aggregate(nil, records, NewWindow(now, 1), 50)

	ok := res.Executions.Success.Items[0]
	require.NotNil(t, ok.DurationMs)
	require.EqualValues(t, 2500, *ok.DurationMs)
	require.Empty(t, ok.Error)

	bad := res.Executions.Error.Items[0]
	require.Nil(t, bad.DurationMs)
	require.Equal(t, execution.UnknownErrorMessage, bad.Error)
}

func TestAggregate_EmptyInputsMarshalEmptyLists(t *testing.T) {
	res := NewEngine(quietLogger()).Aggregate(nil, nil, NewWindow(time.Now(), 6), 50)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	require.Contains(t, string(b), `"items":[]`)
	require.NotContains(t, string(b), `"items":null`)
	require.Equal(t, 0, res.Executions.Total)
	require.Equal(t, 0, res.Workflows.Total)
}

func TestAggregate_CountsNeverExceedWindowedExecutions(t *testing.T) {
	now := *at("2024-01-01T12:00:00Z")
	var records []execution.Record
	for i := 0; i < 40; i++ {
		st := now.Add(-time.Duration(i*15) * time.Minute)
		records = append(records, execution.Record{ID: fmt.Sprint(i), WorkflowID: "w", RawStatus: "success", StartedAt: &st})
	}
	window := NewWindow(now, 6)

	res := NewEngine(quietLogger()).Aggregate([]execution.Workflow{{ID: "w", Name: "W"}}, records, window, 50)

	var inWindow int
	for _, r := range records {
		if window.Includes(r.StartedAt) {
			inWindow++
		}
	}
	require.Equal(t, inWindow, res.Workflows.Items[0].RecentExecutionCounts.Total())
	require.Equal(t, inWindow, res.Executions.Total)
}
