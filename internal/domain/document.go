package domain

// TaskItem is one entry of a morning or afternoon task list. Its identity is
// its index within that list.
type TaskItem struct {
	Text         string `json:"text" yaml:"text"`
	Author       string `json:"author" yaml:"author"`
	LastModified int64  `json:"lastModified,omitempty" yaml:"lastModified,omitempty"`
}

type Day struct {
	Day         string     `json:"day" yaml:"day"`
	AM          []TaskItem `json:"am" yaml:"am"`
	PM          []TaskItem `json:"pm" yaml:"pm"`
	IsHoliday   bool       `json:"isHoliday,omitempty" yaml:"isHoliday,omitempty"`
	HolidayName string     `json:"holidayName,omitempty" yaml:"holidayName,omitempty"`
	Desc        string     `json:"desc,omitempty" yaml:"desc,omitempty"`
}

type Week struct {
	Week      int    `json:"week" yaml:"week"`
	Title     string `json:"title" yaml:"title"`
	DateRange string `json:"dateRange" yaml:"dateRange"`
	Days      []Day  `json:"days" yaml:"days"`
}

type Comment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	Timestamp int64  `json:"timestamp"`
}

// SharedDocument is the single replicated aggregate. A nil Schedule means the
// schedule has not been initialized yet.
type SharedDocument struct {
	Schedule       []Week               `json:"schedule"`
	CompletedTasks []string             `json:"completedTasks"`
	WeeklyComments map[string][]Comment `json:"weeklyComments"`
	UserName       string               `json:"userName"`
	LastUpdated    int64                `json:"lastUpdated"`
}

// NewSharedDocument returns the zero-value document served before any write.
func NewSharedDocument() SharedDocument {
	return SharedDocument{
		Schedule:       nil,
		CompletedTasks: []string{},
		WeeklyComments: map[string][]Comment{},
	}
}

// Clone returns a deep copy so callers can hand the document out without
// sharing backing arrays with the canonical copy.
func (d SharedDocument) Clone() SharedDocument {
	out := SharedDocument{
		Schedule:       CloneSchedule(d.Schedule),
		UserName:       d.UserName,
		LastUpdated:    d.LastUpdated,
		WeeklyComments: CloneComments(d.WeeklyComments),
	}
	if d.CompletedTasks != nil {
		out.CompletedTasks = append([]string{}, d.CompletedTasks...)
	}
	return out
}

func CloneSchedule(weeks []Week) []Week {
	if weeks == nil {
		return nil
	}
	out := make([]Week, len(weeks))
	for i, w := range weeks {
		out[i] = w
		if w.Days == nil {
			continue
		}
		out[i].Days = make([]Day, len(w.Days))
		for j, d := range w.Days {
			out[i].Days[j] = d
			if d.AM != nil {
				out[i].Days[j].AM = append([]TaskItem{}, d.AM...)
			}
			if d.PM != nil {
				out[i].Days[j].PM = append([]TaskItem{}, d.PM...)
			}
		}
	}
	return out
}

func CloneComments(comments map[string][]Comment) map[string][]Comment {
	if comments == nil {
		return nil
	}
	out := make(map[string][]Comment, len(comments))
	for week, list := range comments {
		if list == nil {
			out[week] = nil
			continue
		}
		out[week] = append([]Comment{}, list...)
	}
	return out
}
