// Package rsmapi implements the service.Service interface over the task
// service's HTTP API.
package rsmapi

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
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"rsm/internal/auth"
	"rsm/internal/config"
	"rsm/internal/response"
	"rsm/internal/service"
)

const (
	// RequestIDHeader carries the client-generated request id.
	RequestIDHeader = "X-Request-ID"

	// DefaultTimeout is used when no timeout is configured.
	DefaultTimeout = 10 * time.Second

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 4 << 20

	// sessionCookie is the cookie the server sets on login.
	sessionCookie = "Authorization"
)

// Client implements service.Service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

var _ service.Service = (*Client)(nil)

// New creates a client from cfg. The stored token, if any, is attached to
// every request as a bearer token.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	token, err := cfg.LoadToken()
	if err != nil && !errors.Is(err, config.ErrNoToken) {
		return nil, err
	}
	return NewWithToken(cfg.APIURL, cfg.Timeout, token), nil
}

// NewWithToken creates a client for baseURL. token may be nil.
func NewWithToken(baseURL string, timeout time.Duration, token *oauth2.Token) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := &http.Client{}
	if token != nil {
		httpClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(token),
			Base:   http.DefaultTransport,
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		timeout: timeout,
	}
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, s service.Signup) (string, error) {
	msg, _, err := call[string](ctx, c, http.MethodPost, "/signup", nil, s)
	return msg, err
}

// Login exchanges credentials for a session token. The token is read from
// the session cookie, or from the res member when no cookie is set.
func (c *Client) Login(ctx context.Context, creds service.Credentials) (service.Session, error) {
	msg, resp, err := call[string](ctx, c, http.MethodPost, "/login", nil, creds)
	if err != nil {
		return service.Session{}, err
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookie && cookie.Value != "" {
			token := strings.TrimSpace(strings.TrimPrefix(cookie.Value, auth.TokenType+" "))
			return service.Session{Token: token, Message: msg}, nil
		}
	}
	if strings.TrimSpace(msg) == "" {
		return service.Session{}, &response.FormatError{Err: errors.New("login returned no session token")}
	}
	return service.Session{Token: strings.TrimSpace(msg)}, nil
}

// Logout invalidates the current session on the server.
func (c *Client) Logout(ctx context.Context) (string, error) {
	msg, _, err := call[string](ctx, c, http.MethodPost, "/logout", nil, map[string]bool{"logout": true})
	return msg, err
}

// CreateTable creates a table with the given optional columns.
func (c *Client) CreateTable(ctx context.Context, name string, opts service.TableOptions) (string, error) {
	msg, _, err := call[string](ctx, c, http.MethodPost, "/table/"+url.PathEscape(name), nil, opts)
	return msg, err
}

// DropTable deletes a table.
func (c *Client) DropTable(ctx context.Context, name string) (string, error) {
	msg, _, err := call[string](ctx, c, http.MethodDelete, "/table/"+url.PathEscape(name), nil, nil)
	return msg, err
}

// ListTables returns the definitions of all tables.
func (c *Client) ListTables(ctx context.Context) ([]service.TableSpec, error) {
	specs, _, err := call[[]service.TableSpec](ctx, c, http.MethodGet, "/table/list", nil, nil)
	return specs, err
}

// ListTasks returns the contents of a table.
func (c *Client) ListTasks(ctx context.Context, table string, q service.Query) ([]service.Task, error) {
	query := url.Values{}
	if q.Group != "" {
		query.Set("group", q.Group)
	}
	if q.SortBy != "" {
		query.Set("sort_by", q.SortBy)
	}
	tasks, _, err := call[[]service.Task](ctx, c, http.MethodGet, "/"+url.PathEscape(table), query, nil)
	return tasks, err
}

// AddTask appends a task to a table.
func (c *Client) AddTask(ctx context.Context, table string, t service.NewTask) (string, error) {
	msg, _, err := call[string](ctx, c, http.MethodPost, "/"+url.PathEscape(table), nil, t)
	return msg, err
}

// RemoveTask deletes a task by ID.
func (c *Client) RemoveTask(ctx context.Context, table string, id int64) (string, error) {
	msg, _, err := call[string](ctx, c, http.MethodDelete, taskPath(table, id), nil, nil)
	return msg, err
}

// UpdateTask changes the non-nil fields of a task.
func (c *Client) UpdateTask(ctx context.Context, table string, id int64, u service.TaskUpdate) (string, error) {
	msg, _, err := call[string](ctx, c, http.MethodPut, taskPath(table, id), nil, u)
	return msg, err
}

// ClearTable deletes every task of a table.
func (c *Client) ClearTable(ctx context.Context, table string) (string, error) {
	msg, _, err := call[string](ctx, c, http.MethodDelete, "/"+url.PathEscape(table)+"/clear", nil, nil)
	return msg, err
}

func taskPath(table string, id int64) string {
	return "/" + url.PathEscape(table) + "/" + strconv.FormatInt(id, 10)
}

// call sends one request and classifies the body, whatever the status code,
// into a T or an error.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, payload any) (T, *http.Response, error) {
	var zero T
	log := zerolog.Ctx(ctx)

	body, resp, err := c.do(ctx, method, path, query, payload)
	if err != nil {
		return zero, nil, err
	}

	out, err := response.Classify[T](body)
	if err != nil {
		var fe *response.FormatError
		if errors.As(err, &fe) {
			log.Error().
				Err(err).
				Str("method", method).
				Str("path", path).
				Int("status", resp.StatusCode).
				Str("body", fe.Excerpt).
				Msg("unexpected response format")
		}
		return zero, resp, err
	}

	value, err := out.Result()
	if err != nil {
		log.Warn().
			Str("kind", out.Failure.Kind.String()).
			Str("req_uuid", out.Failure.RequestID).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("request failed")
		return zero, resp, err
	}
	return value, resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, *http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := zerolog.Ctx(ctx).With().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Logger()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("request failed to complete")
		return nil, nil, wrapError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		log.Error().Err(err).Int("status", resp.StatusCode).Msg("failed to read response")
		return nil, nil, fmt.Errorf("read response: %w", wrapError(err))
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")
	return body, resp, nil
}

// wrapError wraps transport errors with user-friendly messages.
func wrapError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("request timed out: %w", err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connection refused, the server is down: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("cancelled: %w", err)
	}
	return err
}
