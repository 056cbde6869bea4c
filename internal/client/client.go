// Package client is the HTTP client for the record service. It performs
// single-shot requests (no retries) and maps transport failures to the
// typed errors in errors.go. It never touches console state: refreshing the
// listing after a mutation is the controller's job.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lptrack/internal/schema"
)

// Config carries the explicit endpoint configuration. The base URL is
// injected at construction, never read from ambient process state.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// List fetches every record of the given entity type.
func (c *Client) List(ctx context.Context, t schema.EntityType) ([]schema.Record, error) {
	var records []schema.Record
	if err := c.do(ctx, "list", http.MethodGet, c.dataURL(t, ""), nil, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []schema.Record{}
	}
	return records, nil
}

// Create submits a normalized record. The caller is expected to have run
// the record through the normalizer first.
func (c *Client) Create(ctx context.Context, t schema.EntityType, rec schema.Record) error {
	return c.do(ctx, "create", http.MethodPost, c.dataURL(t, ""), rec, nil)
}

// Update replaces the record addressed by id. The identifier value is
// resolved by the caller from the entity's identifier field.
func (c *Client) Update(ctx context.Context, t schema.EntityType, id any, rec schema.Record) error {
	return c.do(ctx, "update", http.MethodPut, c.dataURL(t, IdentifierString(id)), rec, nil)
}

// Remove deletes the record addressed by id. Interactive confirmation is
// the caller's responsibility; by the time Remove is invoked the operator
// has already agreed.
func (c *Client) Remove(ctx context.Context, t schema.EntityType, id any) error {
	return c.do(ctx, "delete", http.MethodDelete, c.dataURL(t, IdentifierString(id)), nil, nil)
}

// ExportOne asks the service to export a single table to CSV.
func (c *Client) ExportOne(ctx context.Context, t schema.EntityType) error {
	u := fmt.Sprintf("%s/api/data/export/%s", c.baseURL, t.PathSegment())
	return c.do(ctx, "export", http.MethodPost, u, nil, nil)
}

// ExportAll asks the service to export every table.
func (c *Client) ExportAll(ctx context.Context) error {
	return c.do(ctx, "export-all", http.MethodPost, c.baseURL+"/api/data/export-all", nil, nil)
}

func (c *Client) dataURL(t schema.EntityType, id string) string {
	u := fmt.Sprintf("%s/api/data/%s", c.baseURL, t.PathSegment())
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

// do performs one request. mutating 4xx responses with a {"detail"} body
// become ValidationErrors; any other non-2xx becomes a StatusError.
func (c *Client) do(ctx context.Context, op, method, u string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &NetworkError{Op: op, URL: u, Err: err}
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return &NetworkError{Op: op, URL: u, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, URL: u, Err: err}
	}

	c.log.Debug().
		Str("op", op).
		Str("method", method).
		Str("url", u).
		Int("status", resp.StatusCode).
		Msg("record service request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			var detail struct {
				Detail string `json:"detail"`
			}
			if jsonErr := json.Unmarshal(raw, &detail); jsonErr == nil && detail.Detail != "" {
				return &ValidationError{Status: resp.StatusCode, Detail: detail.Detail}
			}
		}
		return &StatusError{Op: op, URL: u, Status: resp.StatusCode, Body: string(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &NetworkError{Op: op, URL: u, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// IdentifierString renders an identifier value for use in a URL path.
// Numeric ids arrive as float64 from JSON decoding and must not pick up a
// decimal point.
func IdentifierString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", id)
	}
}
