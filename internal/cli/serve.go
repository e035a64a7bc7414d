package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"n8n-monitor/internal/app"
	"n8n-monitor/internal/config"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the poll loop and serve summaries over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	addr, err := app.ListenAddr(cfg.App.HTTPPort)
	if err != nil {
		return fmt.Errorf("invalid HTTP port: %w", err)
	}

	c, err := app.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("cleanup error", "error", err)
		}
	}()

	logger.Info("running first poll", "url", cfg.N8N.URL, "window_hours", cfg.Poll.WindowHours)
	if err := c.Coordinator.Start(ctx); err != nil {
		return fmt.Errorf("first poll failed: %w", err)
	}

	a := app.New(c)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.Hub.Run(gctx) })
	g.Go(func() error { return c.Coordinator.Run(gctx) })
	g.Go(func() error {
		logger.Info("http listening", "addr", addr)
		return a.Fiber.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Fiber.ShutdownWithContext(sctx)
	})

	err = g.Wait()
	logger.Info("stopped")
	return err
}
