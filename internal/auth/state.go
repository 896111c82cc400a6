// Package auth implements the session state machine: credential submission,
// the current session, and the last failure message.
package auth

import "tasksync/internal/service"

// State is the auth snapshot read by the presentation layer.
type State struct {
	Session service.Session
	Status  service.Status
	Error   string
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	s.Session = s.Session.Clone()
	return s
}

// Event is a transition input for Reduce.
type Event interface {
	isEvent()
}

// Started marks a login or signup request as outstanding.
type Started struct{}

// Succeeded carries the session returned by a confirmed login or signup.
type Succeeded struct {
	Session service.Session
}

// Failed carries the message of a rejected login or signup.
// Fallback is used when Message is empty.
type Failed struct {
	Message  string
	Fallback string
}

// LoggedOut clears the session.
type LoggedOut struct{}

func (Started) isEvent()   {}
func (Succeeded) isEvent() {}
func (Failed) isEvent()    {}
func (LoggedOut) isEvent() {}

// Reduce applies ev to s and returns the new state. It has no side effects.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case Started:
		s.Status = service.StatusLoading
		s.Error = ""
	case Succeeded:
		s.Session = ev.Session.Clone()
		s.Status = service.StatusSucceeded
		s.Error = ""
	case Failed:
		s.Status = service.StatusFailed
		s.Error = ev.Message
		if s.Error == "" {
			s.Error = ev.Fallback
		}
	case LoggedOut:
		s = State{Status: service.StatusIdle}
	}
	return s
}
