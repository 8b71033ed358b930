// Package client talks to the Audient REST API.
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
	"strings"
	"time"

	"audient.app/internal/fieldops"
	"audient.app/internal/workhours"
)

var (
	ErrUnauthorized = errors.New("client: unauthorized")
	ErrForbidden    = errors.New("client: forbidden")
	ErrNotFound     = errors.New("client: not found")
)

// APIError carries a non-2xx response body.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api error %d: %s (request %s)", e.Status, e.Message, e.RequestID)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client is a thin JSON client. It holds no session state; callers pass the
// bearer token per call.
type Client struct {
	base *url.URL
	http *http.Client
	ua   string
}

// Option configures Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithUserAgent(ua string) Option { return func(c *Client) { c.ua = ua } }

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: 15 * time.Second},
		ua:   "audient-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// LoginRequest mirrors the login payload. Coordinates are optional on the
// wire.
type LoginRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (c *Client) Register(ctx context.Context, in fieldops.RegisterInput) (fieldops.User, string, error) {
	var out struct {
		User  fieldops.User `json:"user"`
		Token string        `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/register", "", in, &out)
	return out.User, out.Token, err
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (fieldops.LoginResult, error) {
	var out fieldops.LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", req, &out)
	return out, err
}

func (c *Client) Me(ctx context.Context, token string) (fieldops.User, error) {
	var out struct {
		User fieldops.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out)
	return out.User, err
}

func (c *Client) OrgConfig(ctx context.Context, token string) (workhours.Config, error) {
	var out struct {
		Config workhours.Config `json:"config"`
	}
	err := c.do(ctx, http.MethodGet, "/api/config", token, nil, &out)
	return out.Config, err
}

// TodayAttendance returns nil when the user has not logged in today.
func (c *Client) TodayAttendance(ctx context.Context, token string) (*fieldops.Attendance, error) {
	var out struct {
		Attendance *fieldops.Attendance `json:"attendance"`
	}
	err := c.do(ctx, http.MethodGet, "/api/attendance/today", token, nil, &out)
	return out.Attendance, err
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.ua)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
	}
	apiErr := &APIError{Status: resp.StatusCode, Message: body.Error, RequestID: body.RequestID}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	default:
		return apiErr
	}
}
