package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    TaskStatus
		wantErr bool
	}{
		{"todo", StatusTodo, false},
		{" TODO ", StatusTodo, false},
		{"in-progress", StatusInProgress, false},
		{"in_progress", StatusInProgress, false},
		{"doing", StatusInProgress, false},
		{"Done", StatusDone, false},
		{"blocked", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTaskStatus(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTaskStatus(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTaskStatus(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTaskStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTaskFieldsValidate(t *testing.T) {
	f := TaskFields{Title: "  "}
	if err := f.Validate(); !errors.Is(err, ErrTitleRequired) {
		t.Errorf("expected ErrTitleRequired, got %v", err)
	}

	f = TaskFields{Title: "Write docs"}
	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Status != StatusTodo {
		t.Errorf("expected default status todo, got %q", f.Status)
	}

	f = TaskFields{Title: "Write docs", Status: "blocked"}
	if err := f.Validate(); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestSessionValid(t *testing.T) {
	if !(Session{}).Valid() {
		t.Error("empty session should be valid")
	}
	if (Session{Token: "t"}).Valid() {
		t.Error("token without user should be invalid")
	}
	if (Session{User: &User{Username: "a"}}).Valid() {
		t.Error("user without token should be invalid")
	}
	s := Session{Token: "t", User: &User{Username: "a"}}
	if !s.Valid() || !s.LoggedIn() {
		t.Error("token with user should be valid and logged in")
	}

	c := s.Clone()
	c.User.Username = "b"
	if s.User.Username != "a" {
		t.Error("Clone should not share the user")
	}
}

func TestMessage(t *testing.T) {
	cause := errors.New("connection refused")
	re := &RequestError{Op: "list tasks", Message: MsgListFailed, Err: cause}
	wrapped := fmt.Errorf("fetch: %w", re)

	if got := Message(wrapped); got != MsgListFailed {
		t.Errorf("Message() = %q, want %q", got, MsgListFailed)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected RequestError to unwrap to its cause")
	}
	if IsAuth(wrapped) {
		t.Error("RequestError should not be classified as auth")
	}

	ae := &AuthError{Op: "login", Message: "Invalid credentials", StatusCode: 401}
	if got := Message(ae); got != "Invalid credentials" {
		t.Errorf("Message() = %q", got)
	}
	if !IsAuth(ae) {
		t.Error("expected IsAuth to be true")
	}
	if got := Detail(ae); got != "login: Invalid credentials (status 401)" {
		t.Errorf("Detail() = %q", got)
	}
	if Message(nil) != "" {
		t.Error("Message(nil) should be empty")
	}
}

func TestIsValidation(t *testing.T) {
	f := TaskFields{Title: "x", Status: "later"}
	err := f.Validate()
	if !IsValidation(err) {
		t.Errorf("IsValidation(%v) = false", err)
	}
	if err.Error() != "invalid status: later" {
		t.Errorf("message = %q", err.Error())
	}
	wrapped := &RequestError{Op: "create task", Message: ErrTitleRequired.Error(), Err: ErrTitleRequired}
	if !IsValidation(wrapped) {
		t.Error("wrapped title error should be a validation error")
	}
	if IsValidation(&RequestError{Op: "create task", Message: MsgCreateFailed}) {
		t.Error("plain request error is not a validation error")
	}
}
