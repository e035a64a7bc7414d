package n8n

import (
	"context"
	"net/url"
	"strconv"

	"n8n-monitor/internal/domain/execution"
)

type ExecutionQuery struct {
	Limit       int
	Cursor      string
	IncludeData bool
	Status      string
	WorkflowID  string
}

func (q ExecutionQuery) values() url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(clampPageSize(q.Limit)))
	if q.Cursor != "" {
		v.Set("cursor", q.Cursor)
	}
	if q.IncludeData {
		v.Set("includeData", "true")
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.WorkflowID != "" {
		v.Set("workflowId", q.WorkflowID)
	}
	return v
}

// ExecutionPage is one page of records, newest first as served.
type ExecutionPage struct {
	Records    []execution.Record
	NextCursor string
}

func (c *Client) ListExecutions(ctx context.Context, q ExecutionQuery) (ExecutionPage, error) {
	raw, err := c.getJSON(ctx, "/executions", q.values())
	if err != nil {
		return ExecutionPage{}, err
	}

	rows, next, ok := decodeList(raw)
	if !ok {
		c.log.Warn("unexpected execution list shape, treating as empty", "url", c.baseURL)
		return ExecutionPage{Records: []execution.Record{}}, nil
	}

	page := ExecutionPage{Records: make([]execution.Record, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		rec := execution.DecodeRecord(row, c.log)
		if rec.ID == "" {
			c.log.Debug("skipping execution without id")
			continue
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}
