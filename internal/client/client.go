// Package client talks to a running traffic-light server over its HTTP API.
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

	wire "github.com/DoyleJ11/traffic-light-server/pkg/types"
)

// ErrRejected is returned when the server answers with success=false.
var ErrRejected = errors.New("request rejected")

// StatusError carries a non-2xx response that had no JSON envelope.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, strings.TrimSpace(e.Body))
}

type Client struct {
	base string
	http *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must be http or https", baseURL)
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Status(ctx context.Context) (wire.TrafficStatus, error) {
	var st wire.TrafficStatus
	err := c.do(ctx, http.MethodGet, "/traffic-status", nil, &st)
	return st, err
}

// Command sends a {mode, color} request. Color is ignored unless mode is
// manual.
func (c *Client) Command(ctx context.Context, mode, color string) (wire.TrafficStatus, error) {
	var resp wire.CommandResponse
	if err := c.do(ctx, http.MethodPost, "/control-traffic", wire.CommandRequest{Mode: mode, Color: color}, &resp); err != nil {
		return wire.TrafficStatus{}, err
	}
	return commandResult(resp)
}

func (c *Client) Emergency(ctx context.Context) (wire.TrafficStatus, error) {
	var resp wire.CommandResponse
	if err := c.do(ctx, http.MethodPost, "/emergency", nil, &resp); err != nil {
		return wire.TrafficStatus{}, err
	}
	return commandResult(resp)
}

func (c *Client) UpdateSettings(ctx context.Context, req wire.SettingsRequest) (wire.Settings, error) {
	var resp wire.SettingsResponse
	if err := c.do(ctx, http.MethodPost, "/update-settings", req, &resp); err != nil {
		return wire.Settings{}, err
	}
	return settingsResult(resp)
}

func (c *Client) ApplyPattern(ctx context.Context, key string) (wire.Settings, error) {
	var resp wire.SettingsResponse
	path := "/traffic-patterns/" + url.PathEscape(key) + "/apply"
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return wire.Settings{}, err
	}
	return settingsResult(resp)
}

func (c *Client) Patterns(ctx context.Context) (map[string]wire.Pattern, error) {
	var out map[string]wire.Pattern
	err := c.do(ctx, http.MethodGet, "/traffic-patterns", nil, &out)
	return out, err
}

func (c *Client) Stats(ctx context.Context) (wire.StatsResponse, error) {
	var st wire.StatsResponse
	err := c.do(ctx, http.MethodGet, "/traffic-stats", nil, &st)
	return st, err
}

func (c *Client) Health(ctx context.Context) (wire.HealthResponse, error) {
	var h wire.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &h)
	return h, err
}

// History returns the most recent journal entries, newest first. A limit of
// zero uses the server default.
func (c *Client) History(ctx context.Context, limit int) ([]wire.HistoryEntry, error) {
	path := "/traffic-history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []wire.HistoryEntry
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func commandResult(resp wire.CommandResponse) (wire.TrafficStatus, error) {
	if !resp.Success || resp.Status == nil {
		return wire.TrafficStatus{}, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return *resp.Status, nil
}

func settingsResult(resp wire.SettingsResponse) (wire.Settings, error) {
	if !resp.Success || resp.Settings == nil {
		return wire.Settings{}, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return *resp.Settings, nil
}

// do sends body as JSON and decodes the reply into out. Error responses that
// carry a JSON envelope are decoded as well so the caller sees the server's
// message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	isJSON := strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
	if resp.StatusCode >= 300 && !isJSON {
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= 300 {
			return &StatusError{Code: resp.StatusCode, Body: string(data)}
		}
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
