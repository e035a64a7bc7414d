package n8n

import (
	"context"
	"net/url"
	"strconv"

	"n8n-monitor/internal/domain/execution"
)

type WorkflowPage struct {
	Workflows  []execution.Workflow
	NextCursor string
}

func (c *Client) ListWorkflowsPage(ctx context.Context, limit int, cursor string) (WorkflowPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(clampPageSize(limit)))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	raw, err := c.getJSON(ctx, "/workflows", q)
	if err != nil {
		return WorkflowPage{}, err
	}

	rows, next, ok := decodeList(raw)
	if !ok {
		c.log.Warn("unexpected workflow list shape, treating as empty", "url", c.baseURL)
		return WorkflowPage{Workflows: []execution.Workflow{}}, nil
	}

	page := WorkflowPage{Workflows: make([]execution.Workflow, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		wf, valid := execution.DecodeWorkflow(row)
		if !valid {
			c.log.Debug("skipping workflow without id")
			continue
		}
		page.Workflows = append(page.Workflows, wf)
	}
	return page, nil
}

// ListWorkflows follows nextCursor until exhausted or maxPages is reached.
// Workflow ids seen twice keep their first occurrence.
func (c *Client) ListWorkflows(ctx context.Context, pageSize, maxPages int) ([]execution.Workflow, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	out := make([]execution.Workflow, 0)
	seen := make(map[string]struct{})
	cursor := ""
	for page := 0; page < maxPages; page++ {
		p, err := c.ListWorkflowsPage(ctx, pageSize, cursor)
		if err != nil {
			return nil, err
		}
		for _, wf := range p.Workflows {
			if _, dup := seen[wf.ID]; dup {
				continue
			}
			seen[wf.ID] = struct{}{}
			out = append(out, wf)
		}
		if p.NextCursor == "" || len(p.Workflows) == 0 {
			return out, nil
		}
		cursor = p.NextCursor
	}

	c.log.Warn("workflow listing stopped at page cap", "max_pages", maxPages, "workflows", len(out))
	return out, nil
}

// Ping performs the cheapest authenticated request.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListWorkflowsPage(ctx, 1, "")
	return err
}
