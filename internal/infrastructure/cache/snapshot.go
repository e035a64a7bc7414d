package cache

import (
	"context"
	"log/slog"
	"time"

	"n8n-monitor/internal/pipeline"
)

const (
	KeyPrefix         = "n8n-monitor:"
	KeyWorkflows      = KeyPrefix + "summary:workflows"
	KeyExecutions     = KeyPrefix + "summary:executions"
	KeyLastFailure    = KeyPrefix + "summary:last_failure"
	KeyPollLock       = KeyPrefix + "poll:lock"
	ChannelEvents     = KeyPrefix + "events"
	sinkWriteTimeout  = 3 * time.Second
	eventSummaryReady = "summary_updated"
	eventPollFailed   = "poll_failed"
)

type jsonStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	PublishJSON(ctx context.Context, channel string, value any) error
}

// SnapshotMirror copies each published cycle to Redis for external readers and
// announces it on ChannelEvents. It is write-only; nothing reads it back.
type SnapshotMirror struct {
	store jsonStore
	log   *slog.Logger
}

func NewSnapshotMirror(store jsonStore, logger *slog.Logger) *SnapshotMirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotMirror{store: store, log: logger}
}

type mirrorEvent struct {
	Type    string    `json:"type"`
	CycleID string    `json:"cycleId"`
	At      time.Time `json:"at"`
	Error   string    `json:"error,omitempty"`
}

func (m *SnapshotMirror) SummaryPublished(ctx context.Context, snap pipeline.Snapshot) {
	if m == nil || m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkWriteTimeout)
	defer cancel()

	if err := m.store.SetJSON(ctx, KeyWorkflows, snap.Result.Workflows, 0); err != nil {
		m.log.Warn("mirror workflows summary failed", "cycle_id", snap.CycleID, "error", err)
		return
	}
	if err := m.store.SetJSON(ctx, KeyExecutions, snap.Result.Executions, 0); err != nil {
		m.log.Warn("mirror executions summary failed", "cycle_id", snap.CycleID, "error", err)
		return
	}
	ev := mirrorEvent{Type: eventSummaryReady, CycleID: snap.CycleID, At: snap.PublishedAt}
	if err := m.store.PublishJSON(ctx, ChannelEvents, ev); err != nil {
		m.log.Warn("publish summary event failed", "cycle_id", snap.CycleID, "error", err)
	}
}

func (m *SnapshotMirror) PollFailed(ctx context.Context, f pipeline.PollFailure) {
	if m == nil || m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkWriteTimeout)
	defer cancel()

	ev := mirrorEvent{Type: eventPollFailed, CycleID: f.CycleID, At: f.At, Error: f.Error}
	if err := m.store.SetJSON(ctx, KeyLastFailure, ev, 0); err != nil {
		m.log.Warn("mirror poll failure failed", "cycle_id", f.CycleID, "error", err)
	}
	if err := m.store.PublishJSON(ctx, ChannelEvents, ev); err != nil {
		m.log.Warn("publish failure event failed", "cycle_id", f.CycleID, "error", err)
	}
}
