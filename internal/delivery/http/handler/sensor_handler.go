package handler

import (
	"context"
	"time"

	"n8n-monitor/internal/delivery/http/dto"
	"n8n-monitor/internal/delivery/http/middleware"
	"n8n-monitor/internal/pipeline"
	"n8n-monitor/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type SummaryReader interface {
	Snapshot() (pipeline.Snapshot, bool)
	Status() pipeline.Status
}

type Poller interface {
	SummaryReader
	Refresh(ctx context.Context) (pipeline.Snapshot, error)
	Interval() time.Duration
}

type SensorHandler struct {
	summaries SummaryReader
}

func NewSensorHandler(summaries SummaryReader) *SensorHandler {
	return &SensorHandler{summaries: summaries}
}

func (h *SensorHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/sensors/workflows", h.GetWorkflows)
	r.Get("/sensors/executions", h.GetExecutions)
}

func (h *SensorHandler) snapshot() (pipeline.Snapshot, bool, error) {
	if h == nil || h.summaries == nil {
		return pipeline.Snapshot{}, false, fiber.ErrServiceUnavailable
	}
	snap, ok := h.summaries.Snapshot()
	if !ok {
		return pipeline.Snapshot{}, false, middleware.NewAppError(fiber.StatusServiceUnavailable, response.MessageServiceUnavailable, h.summaries.Status(), nil)
	}
	return snap, h.summaries.Status().Available, nil
}

func (h *SensorHandler) GetWorkflows(c fiber.Ctx) error {
	snap, available, err := h.snapshot()
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewWorkflowsSensor(snap, available))
}

func (h *SensorHandler) GetExecutions(c fiber.Ctx) error {
	snap, available, err := h.snapshot()
	if err != nil {
		return err
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewExecutionsSensor(snap, available))
}
