package cli

import (
	"log/slog"

	"n8n-monitor/internal/config"
	"n8n-monitor/internal/logging"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func NewRoot() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "n8n-monitor",
		Short:         "Poll an n8n server and publish workflow and execution summaries",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "override LOG_FORMAT (text, json)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newPollCmd(opts))
	cmd.AddCommand(newTokenCmd())
	return cmd
}

// load reads configuration and builds the logger, letting flags win over it.
func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.logLevel != "" {
		if _, err := logging.ParseLevel(o.logLevel); err != nil {
			return config.Config{}, nil, err
		}
		cfg.App.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.App.LogFormat = o.logFormat
	}

	logger := logging.New(cfg.App.LogLevel, cfg.App.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
