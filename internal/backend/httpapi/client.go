// Package httpapi implements the service interfaces over the task API's HTTP+JSON protocol.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"taskdash/internal/service"
)

const (
	// DefaultTimeout is the per-call timeout when none is configured.
	DefaultTimeout = 10 * time.Second

	// RequestIDHeader carries a unique ID for every request.
	RequestIDHeader = "X-Request-ID"
)

// Option configures a client.
type Option func(*client)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log *slog.Logger) Option {
	return func(c *client) { c.log = log }
}

// WithHTTPClient sets the underlying HTTP client (for testing).
// TaskClient wraps its transport with bearer-token injection.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.http = hc }
}

// client holds what AuthClient and TaskClient share.
type client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	log     *slog.Logger
}

func newClient(baseURL string, opts []Option) (*client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url: %s", baseURL)
	}

	c := &client{
		base:    base,
		http:    &http.Client{},
		timeout: DefaultTimeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AuthClient implements service.Authenticator. Its requests carry no token.
type AuthClient struct {
	c *client
}

// NewAuthClient creates an AuthClient for the API at baseURL.
func NewAuthClient(baseURL string, opts ...Option) (*AuthClient, error) {
	c, err := newClient(baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &AuthClient{c: c}, nil
}

// Login implements service.Authenticator.
func (a *AuthClient) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := a.c.do(ctx, "login", http.MethodPost, nil, body, &resp, "auth", "login"); err != nil {
		return service.AuthResult{}, err
	}
	return resp.toService(), nil
}

// Register implements service.Authenticator.
func (a *AuthClient) Register(ctx context.Context, name, email, password string) (service.AuthResult, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	var resp authResponse
	if err := a.c.do(ctx, "register", http.MethodPost, nil, body, &resp, "auth", "register"); err != nil {
		return service.AuthResult{}, err
	}
	return resp.toService(), nil
}

// TaskClient implements service.TaskGateway.
// Every request asks tokens for the bearer token; when no session is active
// the request is not sent and the call fails with service.ErrNotAuthenticated.
type TaskClient struct {
	c *client
}

// NewTaskClient creates a TaskClient for the API at baseURL.
func NewTaskClient(baseURL string, tokens oauth2.TokenSource, opts ...Option) (*TaskClient, error) {
	c, err := newClient(baseURL, opts)
	if err != nil {
		return nil, err
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	authed := *c.http
	authed.Transport = &oauth2.Transport{Source: tokens, Base: base}
	c.http = &authed

	return &TaskClient{c: c}, nil
}

// ListTasks implements service.TaskGateway.
func (t *TaskClient) ListTasks(ctx context.Context, page, limit int, search string) (service.TaskPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if search != "" {
		q.Set("search", search)
	}

	var resp wirePage
	if err := t.c.do(ctx, "list tasks", http.MethodGet, q, nil, &resp, "tasks"); err != nil {
		return service.TaskPage{}, err
	}
	return resp.toService(), nil
}

// CreateTask implements service.TaskGateway.
func (t *TaskClient) CreateTask(ctx context.Context, title, description string) (service.Task, error) {
	body := struct {
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
	}{title, description}

	var resp wireTask
	if err := t.c.do(ctx, "create task", http.MethodPost, nil, body, &resp, "tasks"); err != nil {
		return service.Task{}, err
	}
	return resp.toService(), nil
}

// UpdateTask implements service.TaskGateway.
func (t *TaskClient) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	var resp wireTask
	if err := t.c.do(ctx, "update task", http.MethodPatch, nil, patch, &resp, "tasks", id); err != nil {
		return service.Task{}, err
	}
	return resp.toService(), nil
}

// DeleteTask implements service.TaskGateway.
func (t *TaskClient) DeleteTask(ctx context.Context, id string) error {
	return t.c.do(ctx, "delete task", http.MethodDelete, nil, nil, nil, "tasks", id)
}

// do performs one JSON request. in is encoded as the body when non-nil and
// the response is decoded into out when non-nil. Every failure is a
// *service.GatewayError.
func (c *client) do(ctx context.Context, op, method string, query url.Values, in, out any, path ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.base.JoinPath(path...)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &service.GatewayError{Op: op, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return &service.GatewayError{Op: op, Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "op", op, "request_id", requestID, "error", err)
		return wrapError(op, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		"op", op,
		"method", method,
		"path", u.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID)

	if err := googleapi.CheckResponse(resp); err != nil {
		return statusError(op, err)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &service.GatewayError{Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

// wrapError converts a transport failure into a GatewayError with
// user-friendly messages.
func wrapError(op string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &service.GatewayError{Op: op, Message: "request timed out", Err: err}
	case errors.Is(err, service.ErrNotAuthenticated):
		return &service.GatewayError{Op: op, Message: "not logged in", Err: service.ErrNotAuthenticated}
	default:
		return &service.GatewayError{Op: op, Err: err}
	}
}

// statusError converts a non-2xx response reported by googleapi.CheckResponse.
func statusError(op string, err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return &service.GatewayError{Op: op, Err: err}
	}

	msg := apiErr.Message
	if msg == "" {
		msg = messageFromBody(apiErr.Body)
	}
	return &service.GatewayError{Op: op, Status: apiErr.Code, Message: msg, Err: apiErr}
}

// messageFromBody extracts {"message": ...} or {"error": "..."} from an error body.
func messageFromBody(body string) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if json.Unmarshal([]byte(body), &payload) != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	var s string
	if json.Unmarshal(payload.Error, &s) == nil {
		return s
	}
	return ""
}
