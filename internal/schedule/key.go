// Package schedule holds the positional task model shared by the replica and
// its tools: completion keys, the completion set, list edits and progress.
//
// A task is identified by its slot (week, day, session, index). Inserting or
// deleting a task shifts the identity of every later task in the same list,
// and completion keys pointing at those slots move with them.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Session string

const (
	Morning   Session = "am"
	Afternoon Session = "pm"
)

var (
	ErrInvalidSession = errors.New("session must be am or pm")
	ErrInvalidKey     = errors.New("invalid completion key")
	ErrOutOfRange     = errors.New("task coordinates out of range")
	ErrHoliday        = errors.New("holiday has no task lists")
)

func ParseSession(s string) (Session, error) {
	switch Session(strings.ToLower(s)) {
	case Morning:
		return Morning, nil
	case Afternoon:
		return Afternoon, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSession, s)
}

// Slot addresses one task by position.
type Slot struct {
	Week    int
	Day     int
	Session Session
	Task    int
}

// Key renders the completion key "<week>-<day>-<session>-<task>".
func (s Slot) Key() string {
	return fmt.Sprintf("%d-%d-%s-%d", s.Week, s.Day, s.Session, s.Task)
}

func Key(week, day int, session Session, task int) string {
	return Slot{Week: week, Day: day, Session: session, Task: task}.Key()
}

func ParseKey(key string) (Slot, error) {
	parts := strings.Split(key, "-")
	if len(parts) != 4 {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	nums := make([]int, 0, 3)
	for _, p := range []string{parts[0], parts[1], parts[3]} {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Slot{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
		nums = append(nums, n)
	}
	session, err := ParseSession(parts[2])
	if err != nil {
		return Slot{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return Slot{Week: nums[0], Day: nums[1], Session: session, Task: nums[2]}, nil
}
