// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tasksync/internal/service"
)

// DemoToken is the token issued by FakeRemote and APIServer.
const DemoToken = "demo-jwt-token"

// Seed account accepted by FakeRemote and APIServer.
const (
	SeedUsername = "test"
	SeedPassword = "test123"
)

// FakeRemote is an in-memory implementation of service.Remote for testing.
type FakeRemote struct {
	mu     sync.Mutex
	users  map[string]string
	tasks  []service.Task
	nextID int
	clock  time.Time

	// Error injection for testing
	LoginErr  error
	SignupErr error
	ListErr   error
	CreateErr error
	UpdateErr error
	DeleteErr error

	// LenientDelete makes DeleteTask succeed for unknown ids.
	LenientDelete bool

	// BeforeSettle, if set, is called with the operation name after the
	// fake has computed its result and before it returns. Tests use it to
	// control settlement order.
	BeforeSettle func(op string)

	calls []string
}

// NewFakeRemote creates a FakeRemote with the seed account and no tasks.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		users: map[string]string{SeedUsername: SeedPassword},
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// AddTask adds a server-side task, appended after existing ones.
func (f *FakeRemote) AddTask(id, title string, status service.TaskStatus) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	t := service.Task{ID: id, Title: title, Status: status, CreatedAt: now, UpdatedAt: now}
	f.tasks = append(f.tasks, t)
	return t
}

// RemoveTask deletes a server-side task without going through the API.
func (f *FakeRemote) RemoveTask(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return
		}
	}
}

// Tasks returns a copy of the server-side tasks.
func (f *FakeRemote) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Calls returns the operations invoked so far, in order.
func (f *FakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// tick advances the fake clock by one second. Must be called with mu held.
func (f *FakeRemote) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *FakeRemote) record(op string) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
}

func (f *FakeRemote) settle(op string) {
	if f.BeforeSettle != nil {
		f.BeforeSettle(op)
	}
}

// Login implements service.Remote.
func (f *FakeRemote) Login(ctx context.Context, creds service.Credentials) (service.Session, error) {
	f.record("login")
	defer f.settle("login")
	if f.LoginErr != nil {
		return service.Session{}, f.LoginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if pw, ok := f.users[creds.Username]; !ok || pw != creds.Password {
		return service.Session{}, &service.AuthError{Op: "login", Message: "Invalid credentials", StatusCode: http.StatusUnauthorized}
	}
	return service.Session{Token: DemoToken, User: &service.User{Username: creds.Username}}, nil
}

// Signup implements service.Remote.
func (f *FakeRemote) Signup(ctx context.Context, creds service.Credentials) (service.Session, error) {
	f.record("signup")
	defer f.settle("signup")
	if f.SignupErr != nil {
		return service.Session{}, f.SignupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[creds.Username]; exists {
		return service.Session{}, &service.AuthError{Op: "signup", Message: "Username already taken", StatusCode: http.StatusConflict}
	}
	f.users[creds.Username] = creds.Password
	return service.Session{Token: DemoToken, User: &service.User{Username: creds.Username}}, nil
}

// ListTasks implements service.Remote.
func (f *FakeRemote) ListTasks(ctx context.Context) ([]service.Task, error) {
	f.record("list")
	defer f.settle("list")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Tasks(), nil
}

// CreateTask implements service.Remote.
func (f *FakeRemote) CreateTask(ctx context.Context, fields service.TaskFields) (service.Task, error) {
	f.record("create")
	defer f.settle("create")
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	now := f.tick()
	t := service.Task{
		ID:          fmt.Sprintf("task-%d", f.nextID),
		Title:       fields.Title,
		Description: fields.Description,
		Status:      fields.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.tasks = append([]service.Task{t}, f.tasks...)
	return t, nil
}

// UpdateTask implements service.Remote.
func (f *FakeRemote) UpdateTask(ctx context.Context, id string, fields service.TaskFields) (service.Task, error) {
	f.record("update")
	defer f.settle("update")
	if f.UpdateErr != nil {
		return service.Task{}, f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			t.Title = fields.Title
			t.Description = fields.Description
			t.Status = fields.Status
			t.UpdatedAt = f.tick()
			f.tasks[i] = t
			return t, nil
		}
	}
	return service.Task{}, &service.RequestError{Op: "update task", Message: service.MsgUpdateFailed, StatusCode: http.StatusNotFound}
}

// DeleteTask implements service.Remote.
func (f *FakeRemote) DeleteTask(ctx context.Context, id string) (string, error) {
	f.record("delete")
	defer f.settle("delete")
	if f.DeleteErr != nil {
		return "", f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return id, nil
		}
	}
	if f.LenientDelete {
		return id, nil
	}
	return "", &service.RequestError{Op: "delete task", Message: service.MsgDeleteFailed, StatusCode: http.StatusNotFound}
}
