package dto

import (
	"time"

	"n8n-monitor/internal/domain/summary"
	"n8n-monitor/internal/pipeline"
)

// SensorResponse mirrors a numeric sensor: a state value plus attributes.
type SensorResponse[T any] struct {
	State       int       `json:"state"`
	Available   bool      `json:"available"`
	CycleID     string    `json:"cycleId"`
	LastUpdated time.Time `json:"lastUpdated"`
	Attributes  T         `json:"attributes"`
}

type ExecutionAttributes struct {
	Success     summary.Bucket `json:"success"`
	Error       summary.Bucket `json:"error"`
	Running     summary.Bucket `json:"running"`
	Canceled    summary.Bucket `json:"canceled"`
	Unknown     summary.Bucket `json:"unknown"`
	Window      string         `json:"window"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

func NewWorkflowsSensor(snap pipeline.Snapshot, available bool) SensorResponse[summary.WorkflowsSummary] {
	ws := snap.Result.Workflows
	return SensorResponse[summary.WorkflowsSummary]{
		State:       ws.Total,
		Available:   available,
		CycleID:     snap.CycleID,
		LastUpdated: snap.PublishedAt,
		Attributes:  ws,
	}
}

func NewExecutionsSensor(snap pipeline.Snapshot, available bool) SensorResponse[ExecutionAttributes] {
	es := snap.Result.Executions
	return SensorResponse[ExecutionAttributes]{
		State:       es.Total,
		Available:   available,
		CycleID:     snap.CycleID,
		LastUpdated: snap.PublishedAt,
		Attributes: ExecutionAttributes{
			Success:     es.Success,
			Error:       es.Error,
			Running:     es.Running,
			Canceled:    es.Canceled,
			Unknown:     es.Unknown,
			Window:      es.Window,
			GeneratedAt: es.GeneratedAt,
		},
	}
}

type StatusResponse struct {
	pipeline.Status
	Interval    string `json:"interval"`
	WSClients   int    `json:"wsClients"`
	HasSnapshot bool   `json:"hasSnapshot"`
}
