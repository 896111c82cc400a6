// Package mirror provides the durable key-value store that keeps the last
// confirmed session and task list across process restarts.
//
// Mirror never reports failures to its callers. Reads of missing or
// malformed entries yield "absent" and writes that fail are logged and
// dropped, so the state machines always fall back to empty state.
package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"tasksync/internal/logging"
)

// Keys for the persisted snapshots.
const (
	SessionKey = "session"
	TasksKey   = "tasks"
)

// ErrNotFound is returned by a Store when the key has no entry.
var ErrNotFound = errors.New("not found")

// Store is a raw byte key-value backend.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases backend resources.
	Close() error
}

// PersistenceError wraps a backend or encoding failure. It is only ever
// logged.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("mirror %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Mirror serializes snapshots as JSON into a Store.
type Mirror struct {
	store  Store
	logger *slog.Logger
}

// New creates a Mirror over store. A nil logger discards output.
func New(store Store, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Mirror{store: store, logger: logger}
}

// Load decodes the entry for key into v.
// Returns false if the entry is absent or cannot be decoded; v is left
// untouched in that case.
func (m *Mirror) Load(key string, v any) bool {
	data, err := m.store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		m.swallow(&PersistenceError{Op: "read", Key: key, Err: err})
		return false
	}
	if len(data) == 0 || string(data) == "null" {
		return false
	}

	// Decode into a fresh value so a partial decode never leaks into v.
	dst := reflect.ValueOf(v)
	if dst.Kind() != reflect.Pointer || dst.IsNil() {
		m.swallow(&PersistenceError{Op: "decode", Key: key, Err: fmt.Errorf("non-pointer %T", v)})
		return false
	}
	tmp := reflect.New(dst.Elem().Type())
	if err := json.Unmarshal(data, tmp.Interface()); err != nil {
		m.swallow(&PersistenceError{Op: "decode", Key: key, Err: err})
		return false
	}
	dst.Elem().Set(tmp.Elem())
	return true
}

// Save encodes v as the entry for key. A nil v deletes the entry.
func (m *Mirror) Save(key string, v any) {
	if v == nil {
		if err := m.store.Delete(key); err != nil {
			m.swallow(&PersistenceError{Op: "delete", Key: key, Err: err})
		}
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		m.swallow(&PersistenceError{Op: "encode", Key: key, Err: err})
		return
	}
	if err := m.store.Put(key, data); err != nil {
		m.swallow(&PersistenceError{Op: "write", Key: key, Err: err})
	}
}

// Close closes the underlying store.
func (m *Mirror) Close() error {
	return m.store.Close()
}

func (m *Mirror) swallow(err *PersistenceError) {
	m.logger.Debug("persistence failure ignored", "op", err.Op, "key", err.Key, "err", err.Err)
}
