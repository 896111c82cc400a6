// Package service defines the backend-agnostic types and interface for task operations.
package service

import (
	"context"
	"net/http"
)

// Remote defines the request/response contract with the task API.
// Every call blocks until the request settles and normalizes failures into
// *AuthError or *RequestError. Implementations hold no task or session state.
type Remote interface {
	// Login exchanges credentials for a session.
	Login(ctx context.Context, creds Credentials) (Session, error)

	// Signup registers an account and returns its session.
	Signup(ctx context.Context, creds Credentials) (Session, error)

	// ListTasks returns all tasks in API order (no client-side sorting).
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns it as stored by the server.
	CreateTask(ctx context.Context, fields TaskFields) (Task, error)

	// UpdateTask replaces the editable fields of an existing task.
	UpdateTask(ctx context.Context, id string, fields TaskFields) (Task, error)

	// DeleteTask deletes a task and returns the echoed id.
	DeleteTask(ctx context.Context, id string) (string, error)
}

// CredentialSource supplies request headers for operations that require a session.
// The state coordinator is the only implementation; remotes consult it before
// every authenticated call. An empty header set means no session.
type CredentialSource interface {
	AuthHeaders() http.Header
}
