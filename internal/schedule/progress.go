package schedule

import (
	"math"

	"onboarding-hub/internal/domain"
)

type Progress struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

// WeekProgress counts the tasks of one week, skipping holidays.
func WeekProgress(weeks []domain.Week, week int, done *CompletionSet) Progress {
	var p Progress
	if week < 0 || week >= len(weeks) {
		return p
	}
	for dayIdx, day := range weeks[week].Days {
		if day.IsHoliday {
			continue
		}
		for _, session := range []Session{Morning, Afternoon} {
			list := day.AM
			if session == Afternoon {
				list = day.PM
			}
			for taskIdx := range list {
				p.Total++
				if done != nil && done.Has(Key(week, dayIdx, session, taskIdx)) {
					p.Completed++
				}
			}
		}
	}
	if p.Total > 0 {
		p.Percentage = int(math.Round(float64(p.Completed) / float64(p.Total) * 100))
	}
	return p
}
