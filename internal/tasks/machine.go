package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"tasksync/internal/logging"
	"tasksync/internal/mirror"
	"tasksync/internal/service"
)

// Machine owns the task collection. It mirrors the server: items change
// only when a remote call confirms the change. Every transition is applied
// atomically under a lock and the persisted snapshot is written before the
// lock is released.
type Machine struct {
	mu     sync.Mutex
	state  State
	epoch  uint64 // bumped by Invalidate; older settlements are dropped
	mirror *mirror.Mirror
	remote service.Remote
	logger *slog.Logger
}

// New creates a Machine, rehydrating items from the mirror.
// Absent or malformed data yields an empty collection. Status starts idle.
func New(m *mirror.Mirror, remote service.Remote, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = logging.Discard()
	}
	mc := &Machine{
		state:  State{Items: []service.Task{}, Status: service.StatusIdle},
		mirror: m,
		remote: remote,
		logger: logger.With("machine", "tasks"),
	}

	var items []service.Task
	if m.Load(mirror.TasksKey, &items) && items != nil {
		mc.state.Items = items
		mc.logger.Debug("items rehydrated", "count", len(items))
	}
	return mc
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Find returns the mirrored task with id.
func (m *Machine) Find(id string) (service.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := IndexOf(m.state.Items, id); i >= 0 {
		return m.state.Items[i], true
	}
	return service.Task{}, false
}

// Fetch loads the full list from the remote. On success the list replaces
// the mirrored items and is persisted; on failure items and persistence are
// left alone and the message is recorded. Overlapping fetches do not cancel
// each other: whichever settles last wins.
func (m *Machine) Fetch(ctx context.Context) ([]service.Task, error) {
	epoch := m.begin(FetchStarted{})

	items, err := m.remote.ListTasks(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		m.logger.Debug("settlement dropped after logout", "op", "fetch")
		return nil, service.ErrSuperseded
	}
	if err != nil {
		m.logger.Debug("fetch failed", "err", service.Detail(err))
		m.apply(FetchFailed{Message: service.Message(err)})
		return nil, err
	}
	m.apply(Fetched{Items: items})
	m.persist()
	return cloneItems(m.state.Items), nil
}

// Create asks the remote to create a task. Only a confirmed task is added,
// at the front of the list. The fetch status is never touched; failures are
// returned to the caller.
func (m *Machine) Create(ctx context.Context, fields service.TaskFields) (service.Task, error) {
	if err := fields.Validate(); err != nil {
		return service.Task{}, &service.RequestError{Op: "create task", Message: err.Error(), Err: err}
	}
	epoch := m.currentEpoch()

	task, err := m.remote.CreateTask(ctx, fields)
	if err != nil {
		m.logger.Debug("create failed", "err", service.Detail(err))
		return service.Task{}, err
	}
	if task.ID == "" {
		m.logger.Debug("create failed", "err", "confirmed task has no id")
		return service.Task{}, &service.RequestError{Op: "create task", Message: service.MsgCreateFailed, Err: errors.New("confirmed task has no id")}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		m.logger.Debug("settlement dropped after logout", "op", "create", "id", task.ID)
		return task, service.ErrSuperseded
	}
	m.apply(Created{Task: task})
	m.persist()
	return task, nil
}

// Update asks the remote to replace a task's fields. The confirmed task
// replaces the mirrored one in place. If the id is no longer mirrored (a
// concurrent delete won), the confirmation is dropped without error.
func (m *Machine) Update(ctx context.Context, id string, fields service.TaskFields) (service.Task, error) {
	if err := fields.Validate(); err != nil {
		return service.Task{}, &service.RequestError{Op: "update task", Message: err.Error(), Err: err}
	}
	epoch := m.currentEpoch()

	task, err := m.remote.UpdateTask(ctx, id, fields)
	if err != nil {
		m.logger.Debug("update failed", "id", id, "err", service.Detail(err))
		return service.Task{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		m.logger.Debug("settlement dropped after logout", "op", "update", "id", id)
		return task, service.ErrSuperseded
	}
	if IndexOf(m.state.Items, task.ID) < 0 {
		m.logger.Debug("update confirmation for unknown task dropped", "id", task.ID)
		return task, nil
	}
	m.apply(Updated{Task: task})
	m.persist()
	return task, nil
}

// Delete asks the remote to delete a task and, once confirmed, removes the
// requested id. Removing an id that is not mirrored is a no-op.
func (m *Machine) Delete(ctx context.Context, id string) (string, error) {
	epoch := m.currentEpoch()

	deleted, err := m.remote.DeleteTask(ctx, id)
	if err != nil {
		m.logger.Debug("delete failed", "id", id, "err", service.Detail(err))
		return "", err
	}
	if deleted != "" && deleted != id {
		m.logger.Debug("delete confirmed a different id", "id", id, "confirmed", deleted)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		m.logger.Debug("settlement dropped after logout", "op", "delete", "id", id)
		return id, service.ErrSuperseded
	}
	m.apply(Deleted{ID: id})
	m.persist()
	return id, nil
}

// Invalidate makes every request issued so far settle without effect and
// returns an outstanding fetch to idle. Items are kept.
func (m *Machine) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.apply(Reset{})
}

func (m *Machine) begin(ev Event) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(ev)
	return m.epoch
}

func (m *Machine) currentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// apply and persist must be called with mu held.
func (m *Machine) apply(ev Event) {
	prev := m.state.Status
	m.state = Reduce(m.state, ev)
	m.logger.Debug("transition", "event", eventName(ev), "from", prev, "to", m.state.Status, "items", len(m.state.Items))
}

func (m *Machine) persist() {
	m.mirror.Save(mirror.TasksKey, m.state.Items)
}

func eventName(ev Event) string {
	switch ev.(type) {
	case FetchStarted:
		return "fetch_started"
	case Fetched:
		return "fetched"
	case FetchFailed:
		return "fetch_failed"
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	case Reset:
		return "reset"
	}
	return "unknown"
}
