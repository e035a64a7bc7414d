package handler

import (
	"errors"

	"n8n-monitor/internal/delivery/http/dto"
	"n8n-monitor/internal/delivery/http/middleware"
	"n8n-monitor/internal/pipeline"
	"n8n-monitor/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type RefreshHandler struct {
	poller Poller
}

func NewRefreshHandler(poller Poller) *RefreshHandler {
	return &RefreshHandler{poller: poller}
}

// RegisterRoutes mounts POST /refresh behind guard when one is given.
func (h *RefreshHandler) RegisterRoutes(r fiber.Router, guard fiber.Handler) {
	if r == nil {
		return
	}
	if guard == nil {
		r.Post("/refresh", h.Refresh)
		return
	}
	r.Post("/refresh", guard, h.Refresh)
}

// Refresh runs one poll synchronously. A failed poll answers 502 and leaves the
// previous summaries in place.
func (h *RefreshHandler) Refresh(c fiber.Ctx) error {
	if h == nil || h.poller == nil {
		return fiber.ErrServiceUnavailable
	}

	snap, err := h.poller.Refresh(c.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrPollInFlight) {
			return middleware.NewAppError(fiber.StatusConflict, "poll already in flight", nil, err)
		}
		return middleware.NewAppError(fiber.StatusBadGateway, response.MessageBadGateway, h.poller.Status(), err)
	}

	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewExecutionsSensor(snap, true))
}
