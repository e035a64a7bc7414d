package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"n8n-monitor/internal/config"
	"n8n-monitor/internal/infrastructure/cache"
	"n8n-monitor/internal/infrastructure/errtrack"
	"n8n-monitor/internal/infrastructure/n8n"
	"n8n-monitor/internal/pipeline"
	"n8n-monitor/internal/pkg/jwt"
	"n8n-monitor/internal/ws"
)

// Version is stamped at build time.
var Version = "dev"

type Container struct {
	Config      config.Config
	Logger      *slog.Logger
	Client      *n8n.Client
	Coordinator *pipeline.Coordinator
	Redis       *cache.Redis
	Reporter    *errtrack.Reporter
	Hub         *ws.Hub
	Notifier    *ws.Notifier
	JWT         *jwt.HMACService
}

// NewContainer builds every component. Optional sinks whose backing service is
// not configured degrade to no-ops.
func NewContainer(cfg config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := n8n.NewClient(cfg.N8N.URL, cfg.N8N.APIKey,
		n8n.WithTimeout(cfg.N8N.RequestTimeout),
		n8n.WithVerifySSL(cfg.N8N.VerifySSL),
		n8n.WithLogger(logger.With("component", "n8n")),
	)
	if err != nil {
		return nil, err
	}

	reporter, err := errtrack.NewReporter(errtrack.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.App.Environment,
		Release:     Version,
	}, logger)
	if err != nil {
		return nil, err
	}

	var rdb *cache.Redis
	if cfg.Redis.Enabled() {
		rdb = cache.NewRedis(cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, logger.With("component", "redis"))
	} else {
		logger.Info("redis not configured, summaries are not mirrored")
	}

	hub := ws.NewHub(logger.With("component", "ws"))
	notifier := ws.NewNotifier(hub, logger)

	opts := []pipeline.CoordinatorOption{
		pipeline.WithObservers(notifier, reporter),
	}
	if rdb.Available() {
		opts = append(opts,
			pipeline.WithObservers(cache.NewSnapshotMirror(rdb, logger)),
			pipeline.WithPollLock(cache.NewPollLock(rdb)),
		)
	}

	coord := pipeline.NewCoordinator(client, PollOptions(cfg), logger.With("component", "coordinator"), opts...)

	c := &Container{
		Config:      cfg,
		Logger:      logger,
		Client:      client,
		Coordinator: coord,
		Redis:       rdb,
		Reporter:    reporter,
		Hub:         hub,
		Notifier:    notifier,
	}
	if cfg.JWT.Enabled() {
		c.JWT = jwt.NewHMACService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	}
	return c, nil
}

func PollOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		WindowHours: cfg.Poll.WindowHours,
		PageSize:    cfg.N8N.EffectivePageSize(),
		MaxPages:    cfg.N8N.MaxPages,
		AttrLimit:   cfg.Poll.AttrLimit,
		IncludeData: cfg.N8N.IncludeData,
		Interval:    cfg.Poll.ScanInterval,
		PollTimeout: cfg.Poll.PollTimeout,
	}
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Reporter != nil && !c.Reporter.Flush(2*time.Second) {
		errs = append(errs, errors.New("sentry flush timed out"))
	}
	if err := c.Redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis close: %w", err))
	}
	return errors.Join(errs...)
}
