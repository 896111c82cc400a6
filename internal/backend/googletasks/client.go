// Package googletasks implements service.Remote on top of the Google Tasks
// API, using the user's default task list.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasksync/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"

	// progressMarker is the first line of the notes of an in-progress task.
	// Google Tasks only knows needsAction and completed.
	progressMarker = "[in-progress]"

	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"
)

// ErrPasswordLogin is the message returned by Login and Signup.
const ErrPasswordLogin = "password login is not supported by the google backend (run: tasksync login --google)"

// Client implements service.Remote using the Google Tasks API.
type Client struct {
	svc     *tasks.Service
	timeout time.Duration
}

// New creates a Google Tasks client whose bearer token is read from creds on
// every request. Extra options are applied after the HTTP client, which lets
// tests point the client at a local endpoint.
func New(ctx context.Context, creds service.CredentialSource, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	// oauth2.NewClient would cache the first token; the session can change
	// between requests, so creds are consulted on every round trip.
	httpClient := &http.Client{Transport: &sessionTransport{creds: creds, base: http.DefaultTransport}}
	return NewWithHTTPClient(ctx, httpClient, timeout, opts...)
}

// NewWithHTTPClient creates a client with a custom HTTP client.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if timeout <= 0 {
		timeout = APITimeout
	}
	return &Client{svc: svc, timeout: timeout}, nil
}

// sessionTransport signs requests with the session's bearer token through
// oauth2.Transport. Without a session the request goes out unsigned and the
// server's rejection is reported as an auth error.
type sessionTransport struct {
	creds service.CredentialSource
	base  http.RoundTripper
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, ok := bearerToken(t.creds)
	if !ok {
		return t.base.RoundTrip(req)
	}
	signed := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}),
		Base:   t.base,
	}
	return signed.RoundTrip(req)
}

// bearerToken extracts the token from the store's Authorization header.
func bearerToken(creds service.CredentialSource) (string, bool) {
	if creds == nil {
		return "", false
	}
	tok, ok := strings.CutPrefix(creds.AuthHeaders().Get("Authorization"), "Bearer ")
	return tok, ok && tok != ""
}

// Login implements service.Remote. Google accounts authenticate through the
// browser flow in Authorize instead.
func (c *Client) Login(ctx context.Context, creds service.Credentials) (service.Session, error) {
	return service.Session{}, &service.AuthError{Op: "login", Message: ErrPasswordLogin}
}

// Signup implements service.Remote.
func (c *Client) Signup(ctx context.Context, creds service.Credentials) (service.Session, error) {
	return service.Session{}, &service.AuthError{Op: "signup", Message: ErrPasswordLogin}
}

// ListTasks returns every task in the default list, completed ones included.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := []service.Task{}
	err := c.svc.Tasks.List(DefaultListID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, toTask(t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError("list tasks", service.MsgListFailed, err)
	}
	return result, nil
}

// CreateTask inserts a task at the top of the default list.
func (c *Client) CreateTask(ctx context.Context, fields service.TaskFields) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	t, err := c.svc.Tasks.Insert(DefaultListID, fromFields(fields)).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError("create task", service.MsgCreateFailed, err)
	}
	return toTask(t), nil
}

// UpdateTask replaces the title, notes and status of a task.
func (c *Client) UpdateTask(ctx context.Context, id string, fields service.TaskFields) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := fromFields(fields)
	body.Id = id
	t, err := c.svc.Tasks.Update(DefaultListID, id, body).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError("update task", service.MsgUpdateFailed, err)
	}
	return toTask(t), nil
}

// DeleteTask deletes a task. The API returns no body, so the id is echoed.
func (c *Client) DeleteTask(ctx context.Context, id string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(DefaultListID, id).Context(ctx).Do(); err != nil {
		return "", wrapError("delete task", service.MsgDeleteFailed, err)
	}
	return id, nil
}

func toTask(t *tasks.Task) service.Task {
	out := service.Task{
		ID:    t.Id,
		Title: t.Title,
	}

	notes := t.Notes
	switch {
	case t.Status == statusCompleted:
		out.Status = service.StatusDone
	case notes == progressMarker || strings.HasPrefix(notes, progressMarker+"\n"):
		out.Status = service.StatusInProgress
		notes = strings.TrimPrefix(strings.TrimPrefix(notes, progressMarker), "\n")
	default:
		out.Status = service.StatusTodo
	}
	out.Description = notes

	if ts, err := time.Parse(time.RFC3339, t.Updated); err == nil {
		out.UpdatedAt = ts
		// Google Tasks has no creation time.
		out.CreatedAt = ts
	}
	return out
}

func fromFields(f service.TaskFields) *tasks.Task {
	t := &tasks.Task{
		Title:  f.Title,
		Notes:  f.Description,
		Status: statusNeedsAction,
	}
	switch f.Status {
	case service.StatusDone:
		t.Status = statusCompleted
	case service.StatusInProgress:
		t.Notes = progressMarker
		if f.Description != "" {
			t.Notes += "\n" + f.Description
		}
	}
	if t.Status == statusNeedsAction {
		// Reopening a task requires clearing its completion time.
		t.NullFields = []string{"Completed"}
	}
	if t.Notes == "" {
		t.ForceSendFields = []string{"Notes"}
	}
	return t
}

// wrapError maps API failures onto the service error types.
func wrapError(op, msg string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden {
			return &service.AuthError{Op: op, Message: msg, StatusCode: gerr.Code, Err: err}
		}
		return &service.RequestError{Op: op, Message: msg, StatusCode: gerr.Code, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("request timed out: %w", err)
	}
	return &service.RequestError{Op: op, Message: msg, Err: err}
}
