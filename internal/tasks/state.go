// Package tasks implements the task collection state machine: the mirrored
// task list, the fetch-all lifecycle, and the application of
// server-confirmed mutations.
package tasks

import "tasksync/internal/service"

// DefaultFetchError is stored when a fetch failure carries no message.
const DefaultFetchError = "Failed to load tasks"

// State is the task collection snapshot read by the presentation layer.
// Status and Error describe the fetch-all lifecycle only; mutations never
// touch them.
type State struct {
	Items  []service.Task
	Status service.Status
	Error  string
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	s.Items = cloneItems(s.Items)
	return s
}

// Event is a transition input for Reduce.
type Event interface {
	isEvent()
}

// FetchStarted marks a fetch-all request as outstanding.
type FetchStarted struct{}

// Fetched carries the server's full task list.
type Fetched struct {
	Items []service.Task
}

// FetchFailed carries the message of a failed fetch-all.
type FetchFailed struct {
	Message string
}

// Created carries a task confirmed by a create request.
type Created struct {
	Task service.Task
}

// Updated carries a task confirmed by an update request.
type Updated struct {
	Task service.Task
}

// Deleted carries the id confirmed by a delete request.
type Deleted struct {
	ID string
}

// Reset returns an outstanding fetch to idle. Items are kept.
type Reset struct{}

func (FetchStarted) isEvent() {}
func (Fetched) isEvent()      {}
func (FetchFailed) isEvent()  {}
func (Created) isEvent()      {}
func (Updated) isEvent()      {}
func (Deleted) isEvent()      {}
func (Reset) isEvent()        {}

// Reduce applies ev to s and returns the new state. It has no side effects
// and never modifies the slice backing s.Items.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case FetchStarted:
		s.Status = service.StatusLoading
		s.Error = ""
	case Fetched:
		s.Items = cloneItems(ev.Items)
		if s.Items == nil {
			s.Items = []service.Task{}
		}
		s.Status = service.StatusSucceeded
		s.Error = ""
	case FetchFailed:
		s.Status = service.StatusFailed
		s.Error = ev.Message
		if s.Error == "" {
			s.Error = DefaultFetchError
		}
	case Created:
		items := make([]service.Task, 0, len(s.Items)+1)
		items = append(items, ev.Task)
		s.Items = append(items, s.Items...)
	case Updated:
		if i := IndexOf(s.Items, ev.Task.ID); i >= 0 {
			items := cloneItems(s.Items)
			items[i] = ev.Task
			s.Items = items
		}
	case Deleted:
		if i := IndexOf(s.Items, ev.ID); i >= 0 {
			items := make([]service.Task, 0, len(s.Items)-1)
			items = append(items, s.Items[:i]...)
			s.Items = append(items, s.Items[i+1:]...)
		}
	case Reset:
		if s.Status == service.StatusLoading {
			s.Status = service.StatusIdle
		}
	}
	return s
}

// IndexOf returns the position of the task with id, or -1.
func IndexOf(items []service.Task, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneItems(items []service.Task) []service.Task {
	if items == nil {
		return nil
	}
	out := make([]service.Task, len(items))
	copy(out, items)
	return out
}
