// Package client is a Go client for the notesync HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	notesync "github.com/ultramynd/notesync/internal/sync"
	"github.com/ultramynd/notesync/internal/types"
)

// Wire types shared with the server.
type (
	SyncRequest       = notesync.SyncRequest
	SyncData          = notesync.SyncData
	ChangeSet         = notesync.ChangeSet
	Millis            = notesync.Millis
	Flag              = notesync.Flag
	TagRecord         = notesync.TagRecord
	CategoryRecord    = notesync.CategoryRecord
	SourceRecord      = notesync.SourceRecord
	TakeawayRecord    = notesync.TakeawayRecord
	TakeawayTagRecord = notesync.TakeawayTagRecord
	HealthResponse    = types.HealthResponse
)

// Config holds the client configuration
type Config struct {
	BaseURL    string        // Server base URL, e.g. https://notes.example.com
	Token      string        // Bearer token
	Timeout    time.Duration // Request timeout (default: 30 seconds)
	HTTPClient *http.Client  // Optional; overrides Timeout
}

// Client talks to a notesync server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode    int
	Kind          string
	Message       string
	CorrelationID string
}

func (e *APIError) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("notesync: %d %s: %s (correlation id %s)", e.StatusCode, e.Kind, e.Message, e.CorrelationID)
	}
	return fmt.Sprintf("notesync: %d %s: %s", e.StatusCode, e.Kind, e.Message)
}

// New creates a new Client
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse BaseURL: %w", err)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    hc,
	}, nil
}

// Health checks connectivity to the server
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sync pushes req.Changes and returns everything changed since req.LastSynced.
func (c *Client) Sync(ctx context.Context, req SyncRequest) (*SyncData, error) {
	var env struct {
		Data SyncData `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sync/syncdata", req, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Download returns everything changed since lastSynced without pushing.
func (c *Client) Download(ctx context.Context, lastSynced int64) (*SyncData, error) {
	var env struct {
		Data SyncData `json:"data"`
	}
	path := "/api/sync/downloaddata?last_synced=" + strconv.FormatInt(lastSynced, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// do sends an authenticated request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode:    resp.StatusCode,
		Message:       http.StatusText(resp.StatusCode),
		CorrelationID: resp.Header.Get("X-Correlation-ID"),
	}

	var env struct {
		Message       string `json:"message"`
		ErrorKind     string `json:"error_kind"`
		CorrelationID string `json:"correlation_id"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&env); err == nil {
		if env.Message != "" {
			apiErr.Message = env.Message
		}
		apiErr.Kind = env.ErrorKind
		if env.CorrelationID != "" {
			apiErr.CorrelationID = env.CorrelationID
		}
	}
	return apiErr
}
