package googletasks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasksync/internal/service"
)

type tokenCreds struct {
	mu    sync.Mutex
	token string
}

func (c *tokenCreds) set(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

func (c *tokenCreds) AuthHeaders() http.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := make(http.Header)
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

// fakeTasksAPI serves the subset of the Google Tasks API the client uses.
type fakeTasksAPI struct {
	mu       sync.Mutex
	items    []*tasks.Task
	nextID   int
	requests int
	lastAuth []string
}

func (f *fakeTasksAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks/v1/lists/{list}/tasks", f.list)
	mux.HandleFunc("POST /tasks/v1/lists/{list}/tasks", f.insert)
	mux.HandleFunc("PUT /tasks/v1/lists/{list}/tasks/{task}", f.update)
	mux.HandleFunc("DELETE /tasks/v1/lists/{list}/tasks/{task}", f.delete)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		f.lastAuth = r.Header.Values("Authorization")
		f.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer good-token" {
			apiError(w, http.StatusUnauthorized, "Invalid Credentials")
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (f *fakeTasksAPI) list(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("list") != DefaultListID {
		apiError(w, http.StatusNotFound, "list not found")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// One task per page exercises pagination.
	start := 0
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		fmt.Sscanf(tok, "%d", &start)
	}
	resp := &tasks.Tasks{Items: []*tasks.Task{}}
	if start < len(f.items) {
		resp.Items = append(resp.Items, f.items[start])
		if start+1 < len(f.items) {
			resp.NextPageToken = fmt.Sprint(start + 1)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (f *fakeTasksAPI) insert(w http.ResponseWriter, r *http.Request) {
	var t tasks.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		apiError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.Id = fmt.Sprintf("g%d", f.nextID)
	t.Updated = time.Date(2024, 1, 1, 12, 0, f.nextID, 0, time.UTC).Format(time.RFC3339)
	f.items = append([]*tasks.Task{&t}, f.items...)
	writeJSON(w, http.StatusOK, &t)
}

func (f *fakeTasksAPI) update(w http.ResponseWriter, r *http.Request) {
	var t tasks.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		apiError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cur := range f.items {
		if cur.Id == r.PathValue("task") {
			t.Id = cur.Id
			t.Updated = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
			f.items[i] = &t
			writeJSON(w, http.StatusOK, &t)
			return
		}
	}
	apiError(w, http.StatusNotFound, "Task not found")
}

func (f *fakeTasksAPI) delete(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, cur := range f.items {
		if cur.Id == r.PathValue("task") {
			f.items = append(f.items[:i], f.items[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	apiError(w, http.StatusNotFound, "Task not found")
}

func (f *fakeTasksAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeTasksAPI) lastAuthorization() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

func apiError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": map[string]any{"code": code, "message": msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T) (*Client, *fakeTasksAPI, *tokenCreds) {
	t.Helper()
	api := &fakeTasksAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	creds := &tokenCreds{token: "good-token"}
	c, err := New(context.Background(), creds, time.Second, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c, api, creds
}

func TestClient_CRUD(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()

	a, err := c.CreateTask(ctx, service.TaskFields{Title: "A", Description: "first", Status: service.StatusTodo})
	require.NoError(t, err)
	assert.Equal(t, "g1", a.ID)
	assert.Equal(t, service.StatusTodo, a.Status)
	assert.Equal(t, "first", a.Description)
	assert.False(t, a.CreatedAt.IsZero())

	b, err := c.CreateTask(ctx, service.TaskFields{Title: "B", Status: service.StatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, service.StatusInProgress, b.Status)
	assert.Empty(t, b.Description)

	items, err := c.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2, "both pages are read")
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)

	done, err := c.UpdateTask(ctx, a.ID, service.TaskFields{Title: "A", Description: "first", Status: service.StatusDone})
	require.NoError(t, err)
	assert.Equal(t, service.StatusDone, done.Status)
	assert.True(t, done.UpdatedAt.After(a.UpdatedAt))

	id, err := c.DeleteTask(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, id)

	items, err = c.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)
}

func TestClient_EmptyList(t *testing.T) {
	c, _, _ := newTestClient(t)
	items, err := c.ListTasks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestClient_NotFound(t *testing.T) {
	c, _, _ := newTestClient(t)

	_, err := c.UpdateTask(context.Background(), "nope", service.TaskFields{Title: "x", Status: service.StatusTodo})
	var re *service.RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, service.MsgUpdateFailed, re.Message)
	assert.Equal(t, http.StatusNotFound, re.StatusCode)

	_, err = c.DeleteTask(context.Background(), "nope")
	require.ErrorAs(t, err, &re)
	assert.Equal(t, service.MsgDeleteFailed, re.Message)
}

func TestClient_RejectedToken(t *testing.T) {
	c, _, creds := newTestClient(t)
	creds.set("expired")

	_, err := c.ListTasks(context.Background())
	var ae *service.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, service.MsgListFailed, ae.Message)
	assert.Equal(t, http.StatusUnauthorized, ae.StatusCode)
}

func TestClient_NoSession(t *testing.T) {
	c, api, creds := newTestClient(t)
	creds.set("")

	_, err := c.CreateTask(context.Background(), service.TaskFields{Title: "x", Status: service.StatusTodo})
	var ae *service.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, service.MsgCreateFailed, ae.Message)
	assert.Equal(t, http.StatusUnauthorized, ae.StatusCode)
	assert.Equal(t, 1, api.requestCount(), "the request is sent and rejected by the server")
	assert.Empty(t, api.lastAuthorization())
}

func TestClient_TokenReadPerRequest(t *testing.T) {
	c, _, creds := newTestClient(t)
	ctx := context.Background()

	_, err := c.ListTasks(ctx)
	require.NoError(t, err)

	creds.set("")
	_, err = c.ListTasks(ctx)
	assert.True(t, service.IsAuth(err), "a logout must take effect immediately")
}

func TestClient_PasswordLoginRejected(t *testing.T) {
	c, api, _ := newTestClient(t)
	creds := service.Credentials{Username: "test", Password: "test123"}

	_, err := c.Login(context.Background(), creds)
	require.True(t, service.IsAuth(err))
	assert.Equal(t, ErrPasswordLogin, service.Message(err))

	_, err = c.Signup(context.Background(), creds)
	require.True(t, service.IsAuth(err))
	assert.Zero(t, api.requestCount())
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		fields service.TaskFields
		status string
		notes  string
	}{
		{"todo", service.TaskFields{Title: "t", Description: "d", Status: service.StatusTodo}, "needsAction", "d"},
		{"done", service.TaskFields{Title: "t", Description: "d", Status: service.StatusDone}, "completed", "d"},
		{"in progress", service.TaskFields{Title: "t", Description: "d", Status: service.StatusInProgress}, "needsAction", "[in-progress]\nd"},
		{"in progress no notes", service.TaskFields{Title: "t", Status: service.StatusInProgress}, "needsAction", "[in-progress]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt := fromFields(tt.fields)
			assert.Equal(t, tt.status, gt.Status)
			assert.Equal(t, tt.notes, gt.Notes)

			back := toTask(gt)
			assert.Equal(t, tt.fields.Status, back.Status)
			assert.Equal(t, tt.fields.Description, back.Description)
			assert.Equal(t, tt.fields.Title, back.Title)
		})
	}
}

func TestToTask_MarkerMustBeWholeLine(t *testing.T) {
	got := toTask(&tasks.Task{Id: "x", Title: "t", Status: "needsAction", Notes: "[in-progress]ish"})
	assert.Equal(t, service.StatusTodo, got.Status)
	assert.Equal(t, "[in-progress]ish", got.Description)
}

func TestFromFields_ReopenClearsCompletion(t *testing.T) {
	assert.Contains(t, fromFields(service.TaskFields{Title: "t", Status: service.StatusTodo}).NullFields, "Completed")
	assert.Empty(t, fromFields(service.TaskFields{Title: "t", Status: service.StatusDone}).NullFields)
}
