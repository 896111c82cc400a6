package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"tasksync/internal/service"
)

func sampleTasks() []service.Task {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return []service.Task{
		{ID: "a", Title: "Wireframes", Status: service.StatusInProgress, CreatedAt: ts, UpdatedAt: ts},
		{ID: "b", Title: "Metrics", Description: "weekly", Status: service.StatusTodo, CreatedAt: ts, UpdatedAt: ts},
		{ID: "c", Title: "Ship\nit", Status: service.StatusDone, CreatedAt: ts, UpdatedAt: ts},
	}
}

func TestFormatTask(t *testing.T) {
	tests := []struct {
		name string
		num  int
		task service.Task
		want string
	}{
		{"todo", 1, service.Task{Title: "Buy milk", Status: service.StatusTodo}, "   1  [ ] Buy milk\n"},
		{"in progress", 12, service.Task{Title: "Draft", Status: service.StatusInProgress}, "  12  [~] Draft\n"},
		{"done", 3, service.Task{Title: "Ship", Status: service.StatusDone}, "   3  [x] Ship\n"},
		{"untitled", 4, service.Task{Title: "  ", Status: service.StatusTodo}, "   4  [ ] (untitled)\n"},
		{"newlines", 5, service.Task{Title: "a\r\nb", Status: service.StatusTodo}, "   5  [ ] a  b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			FormatTask(&buf, tt.num, tt.task)
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteTasks_TextKeepsNumbersWhenFiltered(t *testing.T) {
	all := sampleTasks()
	var buf bytes.Buffer
	if err := WriteTasks(&buf, FormatText, all, Filter(all, service.StatusTodo)); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "   2  [ ] Metrics\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteTasks_JSON(t *testing.T) {
	all := sampleTasks()
	var buf bytes.Buffer
	if err := WriteTasks(&buf, FormatJSON, all, all); err != nil {
		t.Fatal(err)
	}
	var got []service.Task
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if len(got) != 3 || got[1].Description != "weekly" || got[0].Status != service.StatusInProgress {
		t.Errorf("unexpected decode: %+v", got)
	}
	if !strings.Contains(buf.String(), `"createdAt": "2024-01-01T12:00:00Z"`) {
		t.Errorf("missing createdAt field:\n%s", buf.String())
	}
}

func TestWriteTasks_YAML(t *testing.T) {
	all := sampleTasks()
	var buf bytes.Buffer
	if err := WriteTasks(&buf, FormatYAML, all, all[:1]); err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid yaml: %v\n%s", err, buf.String())
	}
	if len(got) != 1 || got[0]["id"] != "a" || got[0]["status"] != "in-progress" {
		t.Errorf("unexpected decode: %v", got)
	}
}

func TestWriteTasks_EmptyJSONIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTasks(&buf, FormatJSON, nil, []service.Task{}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("got %q, want []", got)
	}
}

func TestFilter(t *testing.T) {
	all := sampleTasks()
	if got := Filter(all, ""); len(got) != 3 {
		t.Errorf("empty status: got %d items", len(got))
	}
	got := Filter(all, service.StatusDone)
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("done: got %+v", got)
	}
}

func TestCountAndWriteStats(t *testing.T) {
	s := Count(sampleTasks())
	want := Stats{Total: 3, Todo: 1, InProgress: 1, Done: 1}
	if s != want {
		t.Fatalf("Count = %+v, want %+v", s, want)
	}

	var buf bytes.Buffer
	if err := WriteStats(&buf, FormatText, s); err != nil {
		t.Fatal(err)
	}
	wantText := "total:       3\ntodo:        1\nin-progress: 1\ndone:        1\n"
	if buf.String() != wantText {
		t.Errorf("text stats = %q", buf.String())
	}

	buf.Reset()
	if err := WriteStats(&buf, FormatJSON, s); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"total":3,"todo":1,"inProgress":1,"done":1}` {
		t.Errorf("json stats = %s", got)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "text": FormatText, "JSON": FormatJSON, " yaml ": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestFormatTaskDetail(t *testing.T) {
	var buf bytes.Buffer
	FormatTaskDetail(&buf, sampleTasks()[1])
	want := "id:          b\ntitle:       Metrics\nstatus:      todo\ndescription: weekly\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
