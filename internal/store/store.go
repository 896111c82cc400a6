// Package store composes the auth and task state machines into the single
// process-wide store read and driven by the presentation layer.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"tasksync/internal/auth"
	"tasksync/internal/logging"
	"tasksync/internal/mirror"
	"tasksync/internal/service"
	"tasksync/internal/tasks"
)

// Snapshot is a consistent-per-machine read of the whole store.
type Snapshot struct {
	Auth  auth.State
	Tasks tasks.State
}

// ConnectFunc builds the remote client. The store passes itself as the
// credential source so the client derives its headers from the session.
type ConnectFunc func(creds service.CredentialSource) (service.Remote, error)

// Store is the state coordinator. Construct it once per process with New.
type Store struct {
	auth   *auth.Machine
	tasks  *tasks.Machine
	mirror *mirror.Mirror
	logger *slog.Logger

	mu        sync.Mutex
	listeners map[int]func(Snapshot)
	nextID    int
}

// New creates the store, rehydrating both machines from m.
func New(m *mirror.Mirror, connect ConnectFunc, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Store{
		mirror:    m,
		logger:    logger,
		listeners: make(map[int]func(Snapshot)),
	}
	// connect only keeps a reference to s; headers are read per request.
	remote, err := connect(s)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	s.auth = auth.New(m, remote, logger)
	s.tasks = tasks.New(m, remote, logger)
	return s, nil
}

// Snapshot returns the current state of both machines.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Auth:  s.auth.Snapshot(),
		Tasks: s.tasks.Snapshot(),
	}
}

// IsAuthenticated reports whether a session is present.
func (s *Store) IsAuthenticated() bool {
	return s.auth.Snapshot().Session.LoggedIn()
}

// AuthHeaders implements service.CredentialSource. It is the only place
// credentials are derived.
func (s *Store) AuthHeaders() http.Header {
	h := make(http.Header)
	sess := s.auth.Snapshot().Session
	if sess.Token != "" {
		h.Set("Authorization", "Bearer "+sess.Token)
	}
	return h
}

// FindTask returns the mirrored task with id.
func (s *Store) FindTask(id string) (service.Task, bool) {
	return s.tasks.Find(id)
}

// Dispatch runs intent to settlement and notifies subscribers.
// Mutation failures are returned without altering shared state; login and
// fetch failures are also recorded on the respective machine.
func (s *Store) Dispatch(ctx context.Context, intent Intent) (Result, error) {
	res, err := s.dispatch(ctx, intent)
	s.notify()
	return res, err
}

func (s *Store) dispatch(ctx context.Context, intent Intent) (Result, error) {
	switch in := intent.(type) {
	case Login:
		sess, err := s.auth.Login(ctx, in.Credentials)
		return Result{Session: sess}, err
	case Signup:
		sess, err := s.auth.Signup(ctx, in.Credentials)
		return Result{Session: sess}, err
	case Logout:
		s.auth.Logout()
		s.tasks.Invalidate()
		return Result{}, nil
	case AdoptSession:
		if err := s.auth.Adopt(in.Session); err != nil {
			return Result{}, err
		}
		return Result{Session: in.Session.Clone()}, nil
	case FetchTasks:
		items, err := s.tasks.Fetch(ctx)
		return Result{Tasks: items}, err
	case CreateTask:
		task, err := s.tasks.Create(ctx, in.Fields)
		return Result{Task: task}, err
	case UpdateTask:
		task, err := s.tasks.Update(ctx, in.ID, in.Fields)
		return Result{Task: task}, err
	case DeleteTask:
		id, err := s.tasks.Delete(ctx, in.ID)
		return Result{ID: id}, err
	}
	return Result{}, fmt.Errorf("unknown intent %T", intent)
}

// Subscribe registers fn to receive a snapshot after every dispatched
// intent settles. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	if len(fns) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// Close releases the persistence backend.
func (s *Store) Close() error {
	return s.mirror.Close()
}
