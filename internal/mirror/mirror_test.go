package mirror_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/mirror"
	"tasksync/internal/service"
)

func stores(t *testing.T) map[string]mirror.Store {
	t.Helper()

	sqlite, err := mirror.NewSQLiteStore(filepath.Join(t.TempDir(), "mirror.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]mirror.Store{
		"file":   mirror.NewFileStore(t.TempDir()),
		"sqlite": sqlite,
		"memory": mirror.NewMemStore(),
	}
}

func TestMirror_RoundTripTasks(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	items := []service.Task{
		{ID: "c", Title: "Ship beta", Status: service.StatusTodo, CreatedAt: created, UpdatedAt: created},
		{ID: "a", Title: "Wireframes", Description: "first pass", Status: service.StatusInProgress, CreatedAt: created, UpdatedAt: created.Add(time.Hour)},
		{ID: "b", Title: "QA checklist", Status: service.StatusDone, CreatedAt: created, UpdatedAt: created},
	}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			m := mirror.New(store, nil)
			m.Save(mirror.TasksKey, items)

			// A second Mirror over the same store stands in for a fresh process.
			var got []service.Task
			require.True(t, mirror.New(store, nil).Load(mirror.TasksKey, &got))
			assert.Equal(t, items, got)
		})
	}
}

func TestMirror_NilDeletes(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			m := mirror.New(store, nil)
			m.Save(mirror.SessionKey, service.Session{Token: "tok", User: &service.User{Username: "test"}})

			var s service.Session
			require.True(t, m.Load(mirror.SessionKey, &s))
			assert.Equal(t, "tok", s.Token)

			m.Save(mirror.SessionKey, nil)
			_, err := store.Get(mirror.SessionKey)
			assert.ErrorIs(t, err, mirror.ErrNotFound)
			assert.False(t, m.Load(mirror.SessionKey, &s))

			// Deleting again is harmless.
			m.Save(mirror.SessionKey, nil)
		})
	}
}

func TestMirror_MalformedIsAbsent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(mirror.TasksKey, []byte(`{not json`)))
			require.NoError(t, store.Put(mirror.SessionKey, []byte(`{"token": 42}`)))

			m := mirror.New(store, nil)

			var items []service.Task
			assert.False(t, m.Load(mirror.TasksKey, &items))
			assert.Nil(t, items)

			s := service.Session{Token: "keep"}
			assert.False(t, m.Load(mirror.SessionKey, &s))
			assert.Equal(t, "keep", s.Token, "failed decode must not touch the destination")
		})
	}
}

func TestMirror_WriteFailureIsSwallowed(t *testing.T) {
	store := mirror.NewMemStore()
	store.PutErr = errors.New("disk full")
	store.DeleteErr = errors.New("disk full")

	m := mirror.New(store, nil)
	m.Save(mirror.TasksKey, []service.Task{{ID: "1"}})
	m.Save(mirror.TasksKey, nil)

	assert.False(t, store.Has(mirror.TasksKey))
}

func TestFileStore_Permissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store := mirror.NewFileStore(dir)
	require.NoError(t, store.Put(mirror.SessionKey, []byte(`{}`)))

	info, err := os.Stat(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should not be left behind")
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	store := mirror.NewFileStore(t.TempDir())
	assert.Error(t, store.Put("../escape", []byte(`{}`)))
	_, err := store.Get("a/b")
	assert.Error(t, err)
}

func TestSQLiteStore_ReopenAndOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")

	db, err := mirror.NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = db.Get(mirror.TasksKey)
	assert.ErrorIs(t, err, mirror.ErrNotFound)

	require.NoError(t, db.Put(mirror.TasksKey, []byte(`[]`)))
	require.NoError(t, db.Put(mirror.TasksKey, []byte(`[{"id":"a"}]`)))
	require.NoError(t, db.Put(mirror.SessionKey, []byte(`{"token":"t"}`)))
	require.NoError(t, db.Delete(mirror.SessionKey))
	require.NoError(t, db.Close())

	db, err = mirror.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	got, err := db.Get(mirror.TasksKey)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(got))
	_, err = db.Get(mirror.SessionKey)
	assert.ErrorIs(t, err, mirror.ErrNotFound)
}
