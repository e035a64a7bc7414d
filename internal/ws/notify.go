package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"n8n-monitor/internal/pipeline"
)

const (
	EventSummaryUpdated = "summary_updated"
	EventPollFailed     = "poll_failed"
)

type SummaryUpdatedEvent struct {
	Type            string    `json:"type"`
	CycleID         string    `json:"cycleId"`
	WorkflowsTotal  int       `json:"workflowsTotal"`
	ExecutionsTotal int       `json:"executionsTotal"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

type PollFailedEvent struct {
	Type    string    `json:"type"`
	CycleID string    `json:"cycleId"`
	Error   string    `json:"error"`
	At      time.Time `json:"at"`
}

// Notifier turns coordinator outcomes into hub broadcasts.
type Notifier struct {
	hub    *Hub
	last   atomic.Pointer[[]byte]
	logger *slog.Logger
}

func NewNotifier(hub *Hub, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{hub: hub, logger: logger}
}

func (n *Notifier) SummaryPublished(_ context.Context, snap pipeline.Snapshot) {
	n.send(SummaryUpdatedEvent{
		Type:            EventSummaryUpdated,
		CycleID:         snap.CycleID,
		WorkflowsTotal:  snap.Result.Workflows.Total,
		ExecutionsTotal: snap.Result.Executions.Total,
		GeneratedAt:     snap.Result.Executions.GeneratedAt,
	})
}

func (n *Notifier) PollFailed(_ context.Context, f pipeline.PollFailure) {
	n.send(PollFailedEvent{
		Type:    EventPollFailed,
		CycleID: f.CycleID,
		Error:   f.Error,
		At:      f.At,
	})
}

func (n *Notifier) send(evt any) {
	if n == nil {
		return
	}
	b, err := json.Marshal(evt)
	if err != nil {
		n.logger.Warn("ws event encode failed", "error", err)
		return
	}
	n.last.Store(&b)
	n.hub.Broadcast(b)
}

// Last returns the most recent event sent, or nil.
func (n *Notifier) Last() []byte {
	if n == nil {
		return nil
	}
	if p := n.last.Load(); p != nil {
		return *p
	}
	return nil
}
