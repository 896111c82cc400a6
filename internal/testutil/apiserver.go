package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"tasksync/internal/service"
)

// APIServer is an httptest server speaking the task tracker API under /api.
// It accepts the seed account, issues DemoToken, and keeps tasks newest
// first.
type APIServer struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]string
	tasks    []service.Task
	requests []*http.Request

	// FailNext, if non-zero, makes the next request return this status.
	FailNext int
}

// NewAPIServer starts an APIServer and registers its shutdown with t.
func NewAPIServer(t *testing.T) *APIServer {
	t.Helper()
	s := &APIServer{users: map[string]string{SeedUsername: SeedPassword}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("GET /api/tasks", s.requireAuth(s.handleList))
	mux.HandleFunc("POST /api/tasks", s.requireAuth(s.handleCreate))
	mux.HandleFunc("PUT /api/tasks/{id}", s.requireAuth(s.handleUpdate))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.requireAuth(s.handleDelete))

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the API root.
func (s *APIServer) BaseURL() string {
	return s.URL + "/api"
}

// Seed adds a task at the end of the server's list.
func (s *APIServer) Seed(title, description string, status service.TaskStatus) service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	t := service.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks = append(s.tasks, t)
	return t
}

// Tasks returns a copy of the server's tasks.
func (s *APIServer) Tasks() []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]service.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// LastRequest returns the most recent request, or nil.
func (s *APIServer) LastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

// RequestCount returns the number of requests received.
func (s *APIServer) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *APIServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(r.Context()))
		fail := s.FailNext
		s.FailNext = 0
		s.mu.Unlock()

		if fail != 0 {
			writeJSON(w, fail, map[string]string{"message": http.StatusText(fail)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *APIServer) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+DemoToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *APIServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request"})
		return
	}
	s.mu.Lock()
	pw, ok := s.users[creds.Username]
	s.mu.Unlock()
	if !ok || pw != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": DemoToken,
		"user":  service.User{Username: creds.Username},
	})
}

func (s *APIServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil ||
		strings.TrimSpace(creds.Username) == "" || strings.TrimSpace(creds.Password) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Username and password are required"})
		return
	}
	s.mu.Lock()
	_, exists := s.users[creds.Username]
	if !exists {
		s.users[creds.Username] = creds.Password
	}
	s.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Username already taken"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": DemoToken,
		"user":  service.User{Username: creds.Username},
	})
}

func (s *APIServer) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Tasks())
}

func (s *APIServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var f service.TaskFields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request"})
		return
	}
	now := time.Now().UTC()
	t := service.Task{
		ID:          uuid.NewString(),
		Title:       f.Title,
		Description: f.Description,
		Status:      f.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.mu.Lock()
	s.tasks = append([]service.Task{t}, s.tasks...)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, t)
}

func (s *APIServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var f service.TaskFields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request"})
		return
	}
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == id {
			t.Title = f.Title
			t.Description = f.Description
			t.Status = f.Status
			t.UpdatedAt = time.Now().UTC()
			if !t.UpdatedAt.After(s.tasks[i].UpdatedAt) {
				t.UpdatedAt = s.tasks[i].UpdatedAt.Add(time.Millisecond)
			}
			s.tasks[i] = t
			writeJSON(w, http.StatusOK, t)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
}

func (s *APIServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"id": id})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Task not found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
