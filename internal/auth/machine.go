package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"tasksync/internal/logging"
	"tasksync/internal/mirror"
	"tasksync/internal/service"
)

// Fallback messages stored when a rejection carries no message.
const (
	LoginFailed  = "Login failed"
	SignupFailed = "Signup failed"
)

// Machine owns the auth state. Transitions are applied one at a time under
// a lock; remote calls run outside it.
type Machine struct {
	mu     sync.Mutex
	state  State
	epoch  uint64 // bumped by Logout; settlements from older epochs are dropped
	mirror *mirror.Mirror
	remote service.Remote
	logger *slog.Logger
}

// New creates a Machine, rehydrating the session from the mirror.
// Status starts idle whether or not a session was found.
func New(m *mirror.Mirror, remote service.Remote, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = logging.Discard()
	}
	mc := &Machine{
		state:  State{Status: service.StatusIdle},
		mirror: m,
		remote: remote,
		logger: logger.With("machine", "auth"),
	}

	var sess service.Session
	if m.Load(mirror.SessionKey, &sess) {
		if sess.LoggedIn() {
			mc.state.Session = sess
			mc.logger.Debug("session rehydrated", "user", sess.User.Username)
		} else {
			mc.logger.Debug("persisted session ignored: token and user disagree")
		}
	}
	return mc
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Login submits credentials to the remote. On success the session is stored
// and persisted; on failure the previous session is kept and the message is
// recorded.
func (m *Machine) Login(ctx context.Context, creds service.Credentials) (service.Session, error) {
	return m.authenticate(ctx, "login", creds, m.remote.Login, LoginFailed)
}

// Signup registers an account; otherwise identical to Login.
func (m *Machine) Signup(ctx context.Context, creds service.Credentials) (service.Session, error) {
	return m.authenticate(ctx, "signup", creds, m.remote.Signup, SignupFailed)
}

type authFunc func(context.Context, service.Credentials) (service.Session, error)

func (m *Machine) authenticate(ctx context.Context, op string, creds service.Credentials, call authFunc, fallback string) (service.Session, error) {
	m.mu.Lock()
	epoch := m.epoch
	m.apply(Started{})
	m.mu.Unlock()

	sess, err := call(ctx, creds)
	if err == nil && !sess.LoggedIn() {
		err = &service.AuthError{Op: op, Message: service.MsgAuthFailed, Err: errors.New("response has no token or user")}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		m.logger.Debug("settlement dropped after logout", "op", op)
		return service.Session{}, service.ErrSuperseded
	}
	if err != nil {
		m.logger.Debug("authentication failed", "op", op, "err", service.Detail(err))
		m.apply(Failed{Message: service.Message(err), Fallback: fallback})
		return service.Session{}, err
	}

	m.apply(Succeeded{Session: sess})
	m.mirror.Save(mirror.SessionKey, m.state.Session)
	return sess.Clone(), nil
}

// Adopt stores a session obtained outside the login/signup contract, such
// as an OAuth authorization, exactly as if a login had succeeded.
func (m *Machine) Adopt(sess service.Session) error {
	if !sess.LoggedIn() {
		return &service.AuthError{Op: "adopt", Message: service.MsgAuthFailed, Err: errors.New("session has no token or user")}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(Succeeded{Session: sess})
	m.mirror.Save(mirror.SessionKey, m.state.Session)
	return nil
}

// Logout clears the session and its persisted copy. It never calls the
// remote. Login or signup requests still in flight are ignored when they
// settle.
func (m *Machine) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.apply(LoggedOut{})
	m.mirror.Save(mirror.SessionKey, nil)
}

// apply must be called with mu held.
func (m *Machine) apply(ev Event) {
	prev := m.state.Status
	m.state = Reduce(m.state, ev)
	m.logger.Debug("transition", "event", eventName(ev), "from", prev, "to", m.state.Status)
}

func eventName(ev Event) string {
	switch ev.(type) {
	case Started:
		return "started"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case LoggedOut:
		return "logged_out"
	}
	return "unknown"
}
