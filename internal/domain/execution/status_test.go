package execution

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus_Aliases(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"success", StatusSuccess},
		{"finished", StatusSuccess},
		{"error", StatusError},
		{"failed", StatusError},
		{"crashed", StatusError},
		{"running", StatusRunning},
		{"executing", StatusRunning},
		{"new", StatusRunning},
		{"waiting", StatusRunning},
		{"canceled", StatusCanceled},
		{"cancelled", StatusCanceled},
		{"stopped", StatusCanceled},
		{"crash", StatusCanceled},
		{"", StatusUnknown},
		{"   ", StatusUnknown},
		{"paused", StatusUnknown},
	}

	for _, tt := range tests {
		got := NormalizeStatus(tt.raw, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
		require.Equal(t, tt.want, got, "raw=%q", tt.raw)
	}
}

func TestNormalizeStatus_CaseInsensitive(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	for _, raw := range []string{"Success", "ERROR", "Running", "CanCelled", "Waiting", "bogus", " Error "} {
		require.Equal(t, NormalizeStatus(raw, logger), NormalizeStatus(strings.ToUpper(raw), logger), "raw=%q", raw)
		require.Equal(t, NormalizeStatus(raw, logger), NormalizeStatus(strings.ToLower(raw), logger), "raw=%q", raw)
	}
}

func TestNormalizeStatus_LogsUnknownOnlyForNonEmpty(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	NormalizeStatus("", logger)
	require.Empty(t, buf.String())

	NormalizeStatus("success", logger)
	require.Empty(t, buf.String())

	NormalizeStatus("exploded", logger)
	require.Contains(t, buf.String(), "unrecognized execution status")
	require.Contains(t, buf.String(), "raw_status=exploded")

	buf.Reset()
	NormalizeStatus("exploded", logger)
	require.Contains(t, buf.String(), "raw_status=exploded")
}

func TestLookupStatus(t *testing.T) {
	st, ok := LookupStatus("FINISHED")
	require.True(t, ok)
	require.Equal(t, StatusSuccess, st)

	st, ok = LookupStatus("whatever")
	require.False(t, ok)
	require.Equal(t, StatusUnknown, st)
}
