package domain

import "time"

// ContentStatus enumerates generated content states.
type ContentStatus string

const (
	ContentStatusPending    ContentStatus = "pending"
	ContentStatusGenerating ContentStatus = "generating"
	ContentStatusCompleted  ContentStatus = "completed"
	ContentStatusFailed     ContentStatus = "failed"
)

// GeneratedContent is one unit of media produced by a run.
type GeneratedContent struct {
	ID           string
	OwnerID      string
	WorkflowID   string
	Type         ContentType
	Status       ContentStatus
	MediaURL     string
	ErrorMessage string
	CreatedAt    time.Time
}
