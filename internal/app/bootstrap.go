package app

import (
	"fmt"
	"strings"

	"n8n-monitor/internal/delivery/http/middleware"
	"n8n-monitor/internal/delivery/http/routes"
	"n8n-monitor/internal/pkg/jwt"
	"n8n-monitor/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type App struct {
	Fiber *fiber.App
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{AppName: "n8n-monitor " + Version})

	registerGlobalMiddleware(f, c)
	registerRoutes(f, c)

	return &App{Fiber: f}
}

func registerGlobalMiddleware(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	app.Use(middleware.NewErrorMiddleware(c.Logger).Middleware())
	app.Use(middleware.NewAccessLogMiddleware(c.Logger.With("component", "http")).Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	var jwtSvc jwt.Service
	if c.JWT != nil {
		jwtSvc = c.JWT
	}
	wsHandler := ws.NewHandler(c.Hub, c.Notifier, c.Logger)

	routes.NewRegistry(c.Coordinator, c.Hub, wsHandler.HandleSummaryWS, jwtSvc).Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
