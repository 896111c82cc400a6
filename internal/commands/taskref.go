package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"tasksync/internal/service"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ErrTaskNotFound indicates an id reference matched no mirrored task.
var ErrTaskNotFound = errors.New("task not found")

// ErrOutOfRange indicates a numeric reference past the mirrored list.
var ErrOutOfRange = errors.New("task number out of range")

// TaskRef is a parsed task reference: either a 1-based number into the
// mirrored list or a task id.
type TaskRef struct {
	Num int    // 1-based position, 0 if ID is set
	ID  string // task id, "" if Num is set
}

// ParseTaskRef parses the task reference from args.
//
// Parsing rules:
// 1. No args → task reference required
// 2. First arg all digits → numeric reference (must be >= 1)
// 3. Otherwise → the first arg, trimmed, is an id
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	ref := strings.TrimSpace(args[0])
	if ref == "" {
		return TaskRef{}, ErrTaskRefRequired
	}

	if isAllDigits(ref) {
		num, err := strconv.Atoi(ref)
		if err != nil || num < 1 {
			return TaskRef{}, fmt.Errorf("%w: %s", ErrOutOfRange, ref)
		}
		return TaskRef{Num: num}, nil
	}
	return TaskRef{ID: ref}, nil
}

// Resolve finds the referenced task in items.
func (r TaskRef) Resolve(items []service.Task) (service.Task, error) {
	if r.ID == "" {
		if r.Num < 1 || r.Num > len(items) {
			return service.Task{}, fmt.Errorf("%w: %d", ErrOutOfRange, r.Num)
		}
		return items[r.Num-1], nil
	}
	for _, t := range items {
		if t.ID == r.ID {
			return t, nil
		}
	}
	return service.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, r.ID)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
