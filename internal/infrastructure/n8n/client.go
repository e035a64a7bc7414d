package n8n

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	APIV1Base    = "/api/v1"
	APIRESTBase  = "/rest"
	APIKeyHeader = "X-N8N-API-KEY"

	// MaxPageSize is the largest limit the public API accepts.
	MaxPageSize = 250

	maxErrorBody    = 512
	maxResponseBody = 64 << 20
	userAgent       = "n8n-monitor"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithVerifySSL toggles certificate verification for self-hosted servers.
func WithVerifySSL(verify bool) Option {
	return func(c *Client) {
		if verify {
			return
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via VERIFY_SSL=false
		c.http.Transport = tr
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("n8n: empty base url")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("n8n: invalid base url: %w", err)
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

// getJSON requests path under the versioned API root and retries once under the
// legacy REST root when the first answer is a 404.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values) (any, error) {
	if c == nil || c.http == nil {
		return nil, errors.New("n8n: nil client")
	}

	body, err := c.get(ctx, APIV1Base+path, query)
	if IsNotFound(err) {
		c.log.Debug("n8n versioned endpoint not found, trying legacy root", "path", path)
		body, err = c.get(ctx, APIRESTBase+path, query)
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, &DecodeError{URL: c.baseURL + path, Err: err}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		tErr := &TransportError{URL: endpoint, Host: req.URL.Host, Err: err}
		c.log.Warn("n8n request failed", "url", endpoint, "host", req.URL.Host, "error", err)
		return nil, tErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			URL:        endpoint,
			Body:       strings.TrimSpace(string(rb)),
		}
		if resp.StatusCode != http.StatusNotFound || strings.HasPrefix(path, APIRESTBase) {
			c.log.Warn("n8n request rejected", "url", endpoint, "host", req.URL.Host, "status_code", resp.StatusCode, "body", apiErr.Body)
		}
		return nil, apiErr
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &TransportError{URL: endpoint, Host: req.URL.Host, Err: err}
	}
	return b, nil
}

// decodeList accepts either a bare JSON array or an object with a data array and
// optional nextCursor. Non-object rows are dropped.
func decodeList(v any) (rows []map[string]any, next string, ok bool) {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		data, isList := t["data"].([]any)
		if !isList {
			return nil, "", false
		}
		items = data
		if s, isStr := t["nextCursor"].(string); isStr {
			next = strings.TrimSpace(s)
		}
	default:
		return nil, "", false
	}

	rows = make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, isObj := it.(map[string]any); isObj {
			rows = append(rows, m)
		}
	}
	return rows, next, true
}

func clampPageSize(n int) int {
	if n <= 0 {
		return 100
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
