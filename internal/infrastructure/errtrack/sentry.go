package errtrack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"n8n-monitor/internal/infrastructure/n8n"
	"n8n-monitor/internal/pipeline"

	"github.com/getsentry/sentry-go"
)

type Config struct {
	DSN         string
	Environment string
	Release     string
}

// Reporter forwards poll failures to Sentry. A Reporter without a DSN drops
// everything.
type Reporter struct {
	hub *sentry.Hub
	log *slog.Logger
}

func NewReporter(cfg Config, logger *slog.Logger) (*Reporter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		logger.Debug("sentry dsn not configured, error tracking disabled")
		return &Reporter{log: logger}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		BeforeSend:  scrub,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	logger.Info("sentry initialized", "environment", cfg.Environment)
	return newReporter(client, logger), nil
}

func newReporter(client *sentry.Client, logger *slog.Logger) *Reporter {
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope()), log: logger}
}

func scrub(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil && event.Request.Headers != nil {
		delete(event.Request.Headers, "Authorization")
		delete(event.Request.Headers, n8n.APIKeyHeader)
	}
	return event
}

func (r *Reporter) enabled() bool {
	return r != nil && r.hub != nil
}

func (r *Reporter) SummaryPublished(_ context.Context, snap pipeline.Snapshot) {
	if !r.enabled() {
		return
	}
	r.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "poll",
		Message:  "summaries published",
		Level:    sentry.LevelInfo,
		Data: map[string]any{
			"cycle_id":   snap.CycleID,
			"executions": snap.Result.Executions.Total,
			"partial":    snap.Partial,
		},
	}, nil)
}

func (r *Reporter) PollFailed(_ context.Context, f pipeline.PollFailure) {
	if !r.enabled() || f.Err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("cycle_id", f.CycleID)
		scope.SetTag("has_stale", fmt.Sprint(f.HasStale))

		var pollErr *pipeline.PollError
		if errors.As(f.Err, &pollErr) {
			scope.SetTag("stage", pollErr.Stage)
		}
		var apiErr *n8n.APIError
		if errors.As(f.Err, &apiErr) {
			scope.SetTag("upstream_status", fmt.Sprint(apiErr.StatusCode))
		}
		if n8n.IsTransport(f.Err) {
			scope.SetTag("failure_kind", "transport")
			var tErr *n8n.TransportError
			errors.As(f.Err, &tErr)
			scope.SetTag("upstream_host", tErr.Host)
		}

		if !f.HasStale {
			scope.SetLevel(sentry.LevelFatal)
		}
		r.hub.CaptureException(f.Err)
	})
	r.log.Debug("poll failure captured in sentry", "cycle_id", f.CycleID)
}

// Flush waits for queued events.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.enabled() {
		return true
	}
	return r.hub.Flush(timeout)
}
