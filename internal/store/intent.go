package store

import "tasksync/internal/service"

// Intent is a request from the presentation layer. The set is closed.
type Intent interface {
	intent()
}

// Login submits credentials.
type Login struct {
	Credentials service.Credentials
}

// Signup registers an account.
type Signup struct {
	Credentials service.Credentials
}

// Logout clears the session.
type Logout struct{}

// AdoptSession stores a session obtained by an external authorization flow.
type AdoptSession struct {
	Session service.Session
}

// FetchTasks reloads the task list from the remote.
type FetchTasks struct{}

// CreateTask creates a task.
type CreateTask struct {
	Fields service.TaskFields
}

// UpdateTask replaces a task's editable fields.
type UpdateTask struct {
	ID     string
	Fields service.TaskFields
}

// DeleteTask deletes a task.
type DeleteTask struct {
	ID string
}

func (Login) intent()        {}
func (Signup) intent()       {}
func (Logout) intent()       {}
func (AdoptSession) intent() {}
func (FetchTasks) intent()   {}
func (CreateTask) intent()   {}
func (UpdateTask) intent()   {}
func (DeleteTask) intent()   {}

// Result carries the confirmed value of a settled intent. Only the field
// matching the intent is set.
type Result struct {
	Session service.Session // Login, Signup, AdoptSession
	Tasks   []service.Task  // FetchTasks
	Task    service.Task    // CreateTask, UpdateTask
	ID      string          // DeleteTask
}
