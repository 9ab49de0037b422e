package schedule

import (
	"fmt"

	"onboarding-hub/internal/domain"
)

// DefaultTaskText is the body given to a freshly added task.
const DefaultTaskText = "새로운 업무"

// Every edit returns a new schedule and leaves the input untouched, so a
// replica can swap its copy in one assignment.

func AddTask(weeks []domain.Week, week, day int, session Session, author string) ([]domain.Week, error) {
	next := domain.CloneSchedule(weeks)
	list, err := taskList(next, week, day, session)
	if err != nil {
		return nil, err
	}
	*list = append(*list, domain.TaskItem{Text: DefaultTaskText, Author: author})
	return next, nil
}

func UpdateTask(weeks []domain.Week, slot Slot, text, author string, now int64) ([]domain.Week, error) {
	next := domain.CloneSchedule(weeks)
	list, err := taskList(next, slot.Week, slot.Day, slot.Session)
	if err != nil {
		return nil, err
	}
	if slot.Task < 0 || slot.Task >= len(*list) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfRange, slot.Key())
	}
	(*list)[slot.Task] = domain.TaskItem{Text: text, Author: author, LastModified: now}
	return next, nil
}

// DeleteTask removes the task at slot. Completion keys are not rewritten: a
// key for a later task in the same list now names its predecessor's slot.
func DeleteTask(weeks []domain.Week, slot Slot) ([]domain.Week, error) {
	next := domain.CloneSchedule(weeks)
	list, err := taskList(next, slot.Week, slot.Day, slot.Session)
	if err != nil {
		return nil, err
	}
	if slot.Task < 0 || slot.Task >= len(*list) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfRange, slot.Key())
	}
	*list = append((*list)[:slot.Task], (*list)[slot.Task+1:]...)
	return next, nil
}

// TaskAt resolves a slot against the schedule.
func TaskAt(weeks []domain.Week, slot Slot) (domain.TaskItem, bool) {
	if slot.Week < 0 || slot.Week >= len(weeks) {
		return domain.TaskItem{}, false
	}
	days := weeks[slot.Week].Days
	if slot.Day < 0 || slot.Day >= len(days) {
		return domain.TaskItem{}, false
	}
	list := days[slot.Day].AM
	if slot.Session == Afternoon {
		list = days[slot.Day].PM
	}
	if slot.Task < 0 || slot.Task >= len(list) {
		return domain.TaskItem{}, false
	}
	return list[slot.Task], true
}

func taskList(weeks []domain.Week, week, day int, session Session) (*[]domain.TaskItem, error) {
	if week < 0 || week >= len(weeks) {
		return nil, fmt.Errorf("%w: week %d", ErrOutOfRange, week)
	}
	days := weeks[week].Days
	if day < 0 || day >= len(days) {
		return nil, fmt.Errorf("%w: day %d of week %d", ErrOutOfRange, day, week)
	}
	d := &days[day]
	if d.IsHoliday {
		return nil, fmt.Errorf("%w: %s", ErrHoliday, d.Day)
	}
	switch session {
	case Morning:
		return &d.AM, nil
	case Afternoon:
		return &d.PM, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidSession, session)
}
