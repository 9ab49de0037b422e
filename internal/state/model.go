package state

import (
	"time"

	"onboarding-hub/internal/domain"
)

// Patch is an incoming write. A nil field (absent or JSON null) keeps the
// current value; LastUpdated is coerced separately.
type Patch struct {
	Schedule       *[]domain.Week               `json:"schedule"`
	CompletedTasks *[]string                    `json:"completedTasks"`
	WeeklyComments *map[string][]domain.Comment `json:"weeklyComments"`
	UserName       *string                      `json:"userName"`
	LastUpdated    any                          `json:"lastUpdated"`
}

// StateSnapshot is one persisted copy of the document in the postgres
// history table.
type StateSnapshot struct {
	ID          uint64 `gorm:"primaryKey"`
	Payload     string `gorm:"type:text;not null"`
	UserName    string
	LastUpdated int64 `gorm:"index"`
	CreatedAt   time.Time
}

type SnapshotSummary struct {
	ID          uint64    `json:"id"`
	UserName    string    `json:"user_name"`
	LastUpdated int64     `json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
}

type SnapshotsMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

type PaginatedSnapshots struct {
	Data []SnapshotSummary `json:"data"`
	Meta SnapshotsMeta     `json:"meta"`
}
