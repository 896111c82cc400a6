// Package restapi implements service.Remote against the task tracker's
// HTTP/JSON API.
package restapi

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

	"github.com/google/uuid"

	"tasksync/internal/service"
)

const (
	// DefaultTimeout is the per-request timeout when none is configured.
	DefaultTimeout = 5 * time.Second

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 4 << 20
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "http://localhost:5173/api".
	BaseURL string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// HTTPClient is used for requests. Nil means http.DefaultClient.
	HTTPClient *http.Client

	// UserAgent is sent with every request when set.
	UserAgent string
}

// Client implements service.Remote over HTTP.
type Client struct {
	base      string
	http      *http.Client
	timeout   time.Duration
	userAgent string
	creds     service.CredentialSource
}

// New creates a Client. creds supplies the headers for operations that
// require a session.
func New(opts Options, creds service.CredentialSource) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url: %q", opts.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url scheme: %s", u.Scheme)
	}

	c := &Client{
		base:      strings.TrimRight(u.String(), "/"),
		http:      opts.HTTPClient,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		creds:     creds,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c, nil
}

type authResponse struct {
	Token string        `json:"token"`
	User  *service.User `json:"user"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type deleteResponse struct {
	ID string `json:"id"`
}

// Login implements service.Remote.
func (c *Client) Login(ctx context.Context, creds service.Credentials) (service.Session, error) {
	return c.authenticate(ctx, "login", "/login", creds, service.MsgLoginFailed)
}

// Signup implements service.Remote.
func (c *Client) Signup(ctx context.Context, creds service.Credentials) (service.Session, error) {
	return c.authenticate(ctx, "signup", "/signup", creds, service.MsgSignupFailed)
}

func (c *Client) authenticate(ctx context.Context, op, path string, creds service.Credentials, transportMsg string) (service.Session, error) {
	status, body, err := c.do(ctx, http.MethodPost, path, creds, false)
	if err != nil {
		return service.Session{}, &service.AuthError{Op: op, Message: transportMsg, Err: err}
	}
	if !success(status) {
		msg := service.MsgAuthFailed
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && strings.TrimSpace(e.Message) != "" {
			msg = e.Message
		}
		return service.Session{}, &service.AuthError{Op: op, Message: msg, StatusCode: status}
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return service.Session{}, &service.AuthError{Op: op, Message: transportMsg, StatusCode: status, Err: err}
	}
	return service.Session{Token: resp.Token, User: resp.User}, nil
}

// ListTasks implements service.Remote.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var items []service.Task
	if err := c.call(ctx, "list tasks", http.MethodGet, "/tasks", nil, service.MsgListFailed, &items, false); err != nil {
		return nil, err
	}
	if items == nil {
		items = []service.Task{}
	}
	return items, nil
}

// CreateTask implements service.Remote.
func (c *Client) CreateTask(ctx context.Context, fields service.TaskFields) (service.Task, error) {
	var task service.Task
	if err := c.call(ctx, "create task", http.MethodPost, "/tasks", fields, service.MsgCreateFailed, &task, false); err != nil {
		return service.Task{}, err
	}
	return confirmed("create task", service.MsgCreateFailed, task)
}

// UpdateTask implements service.Remote.
func (c *Client) UpdateTask(ctx context.Context, id string, fields service.TaskFields) (service.Task, error) {
	var task service.Task
	if err := c.call(ctx, "update task", http.MethodPut, "/tasks/"+url.PathEscape(id), fields, service.MsgUpdateFailed, &task, false); err != nil {
		return service.Task{}, err
	}
	return confirmed("update task", service.MsgUpdateFailed, task)
}

// confirmed rejects a decoded task that carries no id.
func confirmed(op, msg string, task service.Task) (service.Task, error) {
	if task.ID == "" {
		return service.Task{}, &service.RequestError{Op: op, Message: msg, Err: errors.New("response has no task id")}
	}
	return task, nil
}

// DeleteTask implements service.Remote.
func (c *Client) DeleteTask(ctx context.Context, id string) (string, error) {
	var resp deleteResponse
	if err := c.call(ctx, "delete task", http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, service.MsgDeleteFailed, &resp, true); err != nil {
		return "", err
	}
	if resp.ID == "" {
		resp.ID = id
	}
	return resp.ID, nil
}

// call performs an authenticated task request and decodes a success body
// into out. An empty success body is accepted only when emptyOK is set.
// Every failure carries the operation's generic message.
func (c *Client) call(ctx context.Context, op, method, path string, in any, msg string, out any, emptyOK bool) error {
	status, body, err := c.do(ctx, method, path, in, true)
	if err != nil {
		return &service.RequestError{Op: op, Message: msg, Err: err}
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &service.AuthError{Op: op, Message: msg, StatusCode: status, Err: serverError(body)}
	case !success(status):
		return &service.RequestError{Op: op, Message: msg, StatusCode: status, Err: serverError(body)}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		if emptyOK {
			return nil
		}
		return &service.RequestError{Op: op, Message: msg, StatusCode: status, Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &service.RequestError{Op: op, Message: msg, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// do sends one request and returns the status and body.
func (c *Client) do(ctx context.Context, method, path string, in any, withAuth bool) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if withAuth && c.creds != nil {
		for k, vs := range c.creds.AuthHeaders() {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, wrapTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, wrapTransport(err)
	}
	return resp.StatusCode, body, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// serverError extracts the server's message for debug detail.
func serverError(body []byte) error {
	var e errorResponse
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return errors.New(e.Message)
	}
	return nil
}

func wrapTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}
	return err
}
