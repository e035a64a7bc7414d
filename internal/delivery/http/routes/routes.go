package routes

import (
	"n8n-monitor/internal/delivery/http/handler"
	"n8n-monitor/internal/delivery/http/middleware"
	"n8n-monitor/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health  *handler.HealthHandler
	sensors *handler.SensorHandler
	refresh *handler.RefreshHandler
	ws      fiber.Handler
	auth    *middleware.AuthMiddleware
}

// NewRegistry wires the HTTP surface. jwtSvc nil disables authentication.
func NewRegistry(poller handler.Poller, clients handler.ClientCounter, wsHandler fiber.Handler, jwtSvc jwt.Service) *Registry {
	r := &Registry{
		health:  handler.NewHealthHandler(poller, clients),
		sensors: handler.NewSensorHandler(poller),
		refresh: handler.NewRefreshHandler(poller),
		ws:      wsHandler,
	}
	if jwtSvc != nil {
		r.auth = middleware.NewAuthMiddleware(jwtSvc)
	}
	return r
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.health.RegisterRoutes(app)
	r.registerAPI(app)
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")
	v1 := api.Group("/v1")

	// /ws goes ahead of the group middleware and authenticates on its own,
	// the only route where a query-string token is accepted.
	if r.ws != nil {
		if r.auth != nil {
			v1.Get("/ws", r.auth.WebSocketMiddleware(), r.ws)
		} else {
			v1.Get("/ws", r.ws)
		}
	}
	if r.auth != nil {
		v1.Use(r.auth.Middleware())
	}

	r.health.RegisterAPIRoutes(v1)
	r.sensors.RegisterRoutes(v1)

	var guard fiber.Handler
	if r.auth != nil {
		guard = middleware.RequireScope(jwt.ScopeRefresh)
	}
	r.refresh.RegisterRoutes(v1, guard)
}
