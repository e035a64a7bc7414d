package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"n8n-monitor/internal/domain/execution"
	"n8n-monitor/internal/infrastructure/n8n"
)

type ExecutionSource interface {
	ListExecutions(ctx context.Context, q n8n.ExecutionQuery) (n8n.ExecutionPage, error)
}

type FetchParams struct {
	WindowStart time.Time
	PageSize    int
	MaxPages    int
	IncludeData bool
}

// FetchResult holds the in-window records in fetch order. Boundary carries the
// pre-window records seen along the way; they only feed lastExecutionTime.
type FetchResult struct {
	Records  []execution.Record
	Boundary []execution.Record
	Pages    int
	Partial  bool
	// PageErr is the error that cut a partial fetch short.
	PageErr error
}

type Fetcher struct {
	src ExecutionSource
	log *slog.Logger
}

func NewFetcher(src ExecutionSource, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{src: src, log: logger}
}

// FetchWindow walks the newest-first execution pages until the window is
// exhausted, the cursor runs out, or MaxPages requests were made.
//
// A failure on the first page returns ErrNoData. A failure on a later page
// returns what was accumulated with Partial set, unless ctx itself is done,
// in which case the error is returned so no partial cycle gets published.
func (f *Fetcher) FetchWindow(ctx context.Context, p FetchParams) (FetchResult, error) {
	if f == nil || f.src == nil {
		return FetchResult{}, fmt.Errorf("%w: fetcher not configured", ErrNoData)
	}
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	res := FetchResult{
		Records:  make([]execution.Record, 0),
		Boundary: make([]execution.Record, 0),
	}
	seen := make(map[string]struct{})
	cursor := ""

	for res.Pages < maxPages {
		page, err := f.src.ListExecutions(ctx, n8n.ExecutionQuery{
			Limit:       p.PageSize,
			Cursor:      cursor,
			IncludeData: p.IncludeData,
		})
		if err != nil {
			if res.Pages == 0 {
				return FetchResult{}, fmt.Errorf("%w: %w", ErrNoData, err)
			}
			if ctx.Err() != nil {
				return FetchResult{}, err
			}
			f.log.Warn("execution fetch cut short, keeping partial result",
				"pages", res.Pages, "records", len(res.Records), "error", err)
			res.Partial = true
			res.PageErr = err
			return res, nil
		}
		res.Pages++

		parsed, before := 0, 0
		for _, rec := range page.Records {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}

			if rec.StartedAt == nil {
				res.Records = append(res.Records, rec)
				continue
			}
			parsed++
			if rec.StartedAt.Before(p.WindowStart) {
				before++
				res.Boundary = append(res.Boundary, rec)
				continue
			}
			res.Records = append(res.Records, rec)
		}

		f.log.Debug("execution page fetched",
			"page", res.Pages, "records", len(page.Records), "before_window", before)

		if len(page.Records) == 0 || page.NextCursor == "" {
			break
		}
		if parsed > 0 && before == parsed {
			break
		}
		cursor = page.NextCursor
	}

	return res, nil
}
