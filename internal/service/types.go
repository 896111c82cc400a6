// Package service defines the backend-agnostic types and interface for task operations.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists every valid status in display order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseTaskStatus parses a user-supplied status (case-insensitive, trimmed).
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo":
		return StatusTodo, nil
	case "in-progress", "inprogress", "in_progress", "doing":
		return StatusInProgress, nil
	case "done":
		return StatusDone, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidStatus, s)
}

// Task represents a single task item as confirmed by the remote API.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Status      TaskStatus `json:"status" yaml:"status"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// Fields returns the editable fields of the task.
func (t Task) Fields() TaskFields {
	return TaskFields{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
	}
}

// TaskFields is the request body for creating or updating a task.
type TaskFields struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
}

// Validation errors.
var (
	ErrTitleRequired = errors.New("title required")
	ErrInvalidStatus = errors.New("invalid status")
)

// IsValidation reports whether err is a field validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrTitleRequired) || errors.Is(err, ErrInvalidStatus)
}

// Validate checks the fields and fills in the default status.
func (f *TaskFields) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrTitleRequired
	}
	if f.Status == "" {
		f.Status = StatusTodo
	}
	if !f.Status.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, f.Status)
	}
	return nil
}

// User identifies the authenticated account.
type User struct {
	Username string `json:"username"`
}

// Session is the authenticated credential state.
// An empty Token means logged out; User is nil exactly when Token is empty.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Valid reports whether the session satisfies the token/user invariant.
func (s Session) Valid() bool {
	if s.Token == "" {
		return s.User == nil
	}
	return s.User != nil
}

// LoggedIn reports whether the session carries a credential.
func (s Session) LoggedIn() bool {
	return s.Token != "" && s.User != nil
}

// Clone returns a copy that shares no memory with s.
func (s Session) Clone() Session {
	if s.User == nil {
		return Session{Token: s.Token}
	}
	u := *s.User
	return Session{Token: s.Token, User: &u}
}

// Credentials is a username/password pair submitted to login or signup.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Status is the request lifecycle of a state machine.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)
