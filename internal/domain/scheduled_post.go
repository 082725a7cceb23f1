package domain

import "time"

// ScheduledPostStatus enumerates scheduled post lifecycle states.
type ScheduledPostStatus string

const (
	ScheduledPostStatusScheduled  ScheduledPostStatus = "scheduled"
	ScheduledPostStatusProcessing ScheduledPostStatus = "processing"
	ScheduledPostStatusPublished  ScheduledPostStatus = "published"
	ScheduledPostStatusFailed     ScheduledPostStatus = "failed"
)

// ScheduledPost is one materialized execution instant of a workflow.
type ScheduledPost struct {
	ID           string
	WorkflowID   string
	OwnerID      string
	ScheduledAt  time.Time
	Status       ScheduledPostStatus
	Platforms    []string
	Metadata     ScheduleSnapshot
	ErrorMessage string
	CreatedAt    time.Time
}

// ScheduleSnapshot records the recurrence that produced a scheduled post.
type ScheduleSnapshot struct {
	Frequency Frequency `json:"frequency"`
	Times     []string  `json:"times"`
	Days      []string  `json:"days,omitempty"`
	Timezone  string    `json:"timezone"`
	Horizon   int       `json:"horizon_days"`
}
