package execution

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeWorkflow(t *testing.T) {
	wf, ok := DecodeWorkflow(payload(t, `{"id":"w1","name":"Sync","active":true}`))
	require.True(t, ok)
	require.Equal(t, Workflow{ID: "w1", Name: "Sync", Active: true}, wf)

	wf, ok = DecodeWorkflow(payload(t, `{"id":17,"name":"Numeric"}`))
	require.True(t, ok)
	require.Equal(t, "17", wf.ID)
	require.False(t, wf.Active)

	_, ok = DecodeWorkflow(payload(t, `{"name":"no id"}`))
	require.False(t, ok)
}

func TestDecodeRecord(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	rec := DecodeRecord(payload(t, `{
		"id": 101,
		"workflowId": "w1",
		"status": "Error",
		"startedAt": "2024-01-01T09:00:00.000Z",
		"stoppedAt": "2024-01-01T09:00:01.500Z",
		"workflowData": {"name": "Sync"}
	}`), logger)

	require.Equal(t, "101", rec.ID)
	require.Equal(t, "w1", rec.WorkflowID)
	require.Equal(t, "Error", rec.RawStatus)
	require.NotNil(t, rec.StartedAt)
	require.True(t, rec.StartedAt.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	require.NotNil(t, rec.DurationMs())
	require.EqualValues(t, 1500, *rec.DurationMs())
	require.Equal(t, "Sync", rec.WorkflowNameHint())
}

func TestDecodeRecord_LegacyAndMalformed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	rec := DecodeRecord(payload(t, `{"id":"1","finished":true,"startedAt":"garbage","finishedAt":"2024-01-01T10:00:00Z"}`), logger)
	require.Equal(t, "success", rec.RawStatus)
	require.Nil(t, rec.StartedAt)
	require.NotNil(t, rec.FinishedAt)
	require.Nil(t, rec.DurationMs())

	rec = DecodeRecord(payload(t, `{"id":"2","status":["x"],"workflowId":{"a":1},"startedAt":5}`), logger)
	require.Equal(t, "", rec.RawStatus)
	require.Equal(t, "", rec.WorkflowID)
	require.Nil(t, rec.StartedAt)
	require.Equal(t, "", rec.WorkflowNameHint())
}
