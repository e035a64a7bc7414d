package handler

import (
	"n8n-monitor/internal/delivery/http/dto"
	"n8n-monitor/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type ClientCounter interface {
	ClientCount() int
}

// HealthHandler reports liveness on /health and the poller state on
// /api/v1/status. Liveness stays 200 while stale data is served.
type HealthHandler struct {
	poller Poller
	ws     ClientCounter
}

func NewHealthHandler(poller Poller, ws ClientCounter) *HealthHandler {
	return &HealthHandler{poller: poller, ws: ws}
}

func (h *HealthHandler) RegisterRoutes(app fiber.Router) {
	if app == nil {
		return
	}
	app.Get("/health", h.Health)
}

func (h *HealthHandler) RegisterAPIRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/status", h.Status)
}

func (h *HealthHandler) Health(c fiber.Ctx) error {
	if h == nil || h.poller == nil {
		return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, h.poller.Status())
}

func (h *HealthHandler) Status(c fiber.Ctx) error {
	if h == nil || h.poller == nil {
		return fiber.ErrServiceUnavailable
	}
	_, hasSnapshot := h.poller.Snapshot()
	out := dto.StatusResponse{
		Status:      h.poller.Status(),
		Interval:    h.poller.Interval().String(),
		HasSnapshot: hasSnapshot,
	}
	if h.ws != nil {
		out.WSClients = h.ws.ClientCount()
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}
