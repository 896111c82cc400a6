// Package output provides formatters for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"tasksync/internal/service"
)

// Format selects how task lists are written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a --format value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("invalid format: %s (want text, json or yaml)", s)
}

// FormatTask formats a task line.
// Format: "{N:>4}  [{M}] {TITLE}\n" where M is ' ', '~' or 'x' by status.
func FormatTask(w io.Writer, num int, task service.Task) {
	title := normalizeTitle(task.Title)
	fmt.Fprintf(w, "%4d  [%c] %s\n", num, statusMark(task.Status), title)
}

// FormatTaskDetail writes a task's fields, one per line.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "id:          %s\n", task.ID)
	fmt.Fprintf(w, "title:       %s\n", normalizeTitle(task.Title))
	fmt.Fprintf(w, "status:      %s\n", task.Status)
	if task.Description != "" {
		fmt.Fprintf(w, "description: %s\n", flatten(task.Description))
	}
}

// WriteTasks writes items in the given format. Text output numbers every
// task by its position in all, so numbers stay valid as task refs when
// items is a filtered subset.
func WriteTasks(w io.Writer, format Format, all, items []service.Task) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return err
		}
		return enc.Close()
	}

	pos := make(map[string]int, len(all))
	for i, t := range all {
		pos[t.ID] = i + 1
	}
	for _, t := range items {
		FormatTask(w, pos[t.ID], t)
	}
	return nil
}

// Filter returns the items with the given status, or all items when status
// is empty.
func Filter(items []service.Task, status service.TaskStatus) []service.Task {
	if status == "" {
		return items
	}
	out := make([]service.Task, 0, len(items))
	for _, t := range items {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Stats counts tasks by status.
type Stats struct {
	Total      int `json:"total" yaml:"total"`
	Todo       int `json:"todo" yaml:"todo"`
	InProgress int `json:"inProgress" yaml:"inProgress"`
	Done       int `json:"done" yaml:"done"`
}

// Count returns the per-status counts of items.
func Count(items []service.Task) Stats {
	s := Stats{Total: len(items)}
	for _, t := range items {
		switch t.Status {
		case service.StatusTodo:
			s.Todo++
		case service.StatusInProgress:
			s.InProgress++
		case service.StatusDone:
			s.Done++
		}
	}
	return s
}

// WriteStats writes s in the given format.
func WriteStats(w io.Writer, format Format, s Stats) error {
	switch format {
	case FormatJSON:
		return json.NewEncoder(w).Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	}
	fmt.Fprintf(w, "total:       %d\n", s.Total)
	fmt.Fprintf(w, "todo:        %d\n", s.Todo)
	fmt.Fprintf(w, "in-progress: %d\n", s.InProgress)
	fmt.Fprintf(w, "done:        %d\n", s.Done)
	return nil
}

func statusMark(s service.TaskStatus) rune {
	switch s {
	case service.StatusDone:
		return 'x'
	case service.StatusInProgress:
		return '~'
	}
	return ' '
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = flatten(title)
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
