package domain

import (
	"strings"
	"time"

	"aisocial/internal/domain/jsoncfg"
)

// ContentType selects the generation stage and the credit cost class.
type ContentType string

const (
	ContentTypeImage ContentType = "image"
	ContentTypeVideo ContentType = "video"
)

// Valid reports whether the content type is supported.
func (c ContentType) Valid() bool {
	return c == ContentTypeImage || c == ContentTypeVideo
}

// Publish targets a workflow can post to once content is generated.
const (
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformTikTok    = "tiktok"
	PlatformLinkedIn  = "linkedin"
	PlatformX         = "x"
	PlatformYouTube   = "youtube"
)

var publishTargets = map[string]struct{}{
	PlatformInstagram: {},
	PlatformFacebook:  {},
	PlatformTikTok:    {},
	PlatformLinkedIn:  {},
	PlatformX:         {},
	PlatformYouTube:   {},
}

// IsPublishTarget reports whether platform names a social network the remote
// job can publish to. Other entries (e.g. "library") only keep the content.
func IsPublishTarget(platform string) bool {
	_, ok := publishTargets[strings.ToLower(strings.TrimSpace(platform))]
	return ok
}

// Workflow is a named recurring content-generation job.
type Workflow struct {
	ID             string
	OwnerID        string
	Name           string
	ContentType    ContentType
	PromptTemplate string
	Platforms      []string
	Params         jsoncfg.GenerationParams
	Recurrence     ScheduleConfig
	Timezone       string
	Active         bool
	LastRunAt      *time.Time
	NextRunAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PublishTargets returns the configured platforms that trigger a publish step,
// lowercased and deduplicated in configuration order.
func (w Workflow) PublishTargets() []string {
	var out []string
	seen := map[string]struct{}{}
	for _, p := range w.Platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if !IsPublishTarget(p) {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Location resolves the workflow timezone, falling back to UTC.
func (w Workflow) Location() *time.Location {
	if tz := strings.TrimSpace(w.Timezone); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.UTC
}
