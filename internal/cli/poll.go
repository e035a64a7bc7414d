package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"n8n-monitor/internal/app"
	"n8n-monitor/internal/domain/execution"
	"n8n-monitor/internal/domain/summary"
	"n8n-monitor/internal/infrastructure/n8n"
	"n8n-monitor/internal/pipeline"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newPollCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput, check bool

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Run one poll cycle and print both summaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			client, err := n8n.NewClient(cfg.N8N.URL, cfg.N8N.APIKey,
				n8n.WithTimeout(cfg.N8N.RequestTimeout),
				n8n.WithVerifySSL(cfg.N8N.VerifySSL),
				n8n.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if check {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.N8N.RequestTimeout)
				defer cancel()
				if err := client.Ping(ctx); err != nil {
					color.New(color.FgRed).Fprintf(out, "connection failed: %v\n", err)
					return err
				}
				color.New(color.FgGreen).Fprintf(out, "connected to %s\n", client.BaseURL())
				return nil
			}

			coord := pipeline.NewCoordinator(client, app.PollOptions(cfg), logger)
			snap, err := coord.Refresh(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap.Result)
			}
			renderSummary(out, snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the summary documents as JSON")
	cmd.Flags().BoolVar(&check, "check", false, "only verify connectivity and the API key")
	return cmd
}

var statusColors = map[execution.Status]color.Attribute{
	execution.StatusSuccess:  color.FgGreen,
	execution.StatusError:    color.FgRed,
	execution.StatusRunning:  color.FgCyan,
	execution.StatusCanceled: color.FgYellow,
	execution.StatusUnknown:  color.FgWhite,
}

func renderSummary(w io.Writer, snap pipeline.Snapshot) {
	wf := snap.Result.Workflows
	ex := snap.Result.Executions
	bold := color.New(color.Bold)

	bold.Fprintf(w, "Workflows: %d (%d active)\n", wf.Total, wf.Active)
	for _, it := range wf.Items {
		last := "never"
		if it.LastExecutionTime != nil {
			last = it.LastExecutionTime.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "  %-32s active=%-5t last=%s %s\n", truncate(it.Name, 32), it.Active, last, countsLine(it.RecentExecutionCounts))
	}

	bold.Fprintf(w, "\nExecutions in last %s: %d\n", ex.Window, ex.Total)
	for _, st := range execution.Statuses {
		b := ex.Bucket(st)
		color.New(statusColors[st]).Fprintf(w, "  %-9s %d\n", st, b.Count)
	}

	if len(ex.Error.Items) > 0 {
		bold.Fprintf(w, "\nRecent errors:\n")
		for _, it := range ex.Error.Items {
			started := "?"
			if it.StartedAt != nil {
				started = it.StartedAt.Format(time.RFC3339)
			}
			color.New(color.FgRed).Fprintf(w, "  %s %s: %s\n", started, it.WorkflowName, it.Error)
		}
	}
}

func countsLine(c summary.StatusCounts) string {
	return fmt.Sprintf("ok=%d err=%d run=%d cancel=%d unknown=%d",
		c[execution.StatusSuccess], c[execution.StatusError], c[execution.StatusRunning],
		c[execution.StatusCanceled], c[execution.StatusUnknown])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
