package jsoncfg

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// GenerationParams is persisted as JSONB alongside a workflow and forwarded
// to the remote generation job untouched.
type GenerationParams struct {
	Version      string   `json:"version"`
	AspectRatio  string   `json:"aspect_ratio"`
	Resolution   string   `json:"resolution"`
	OutputFormat string   `json:"output_format"`
	Duration     int      `json:"duration_seconds,omitempty"`
	Audio        bool     `json:"audio"`
	SourceImages []string `json:"source_images,omitempty"`
}

var allowedAspectRatios = map[string]struct{}{
	"1:1":  {},
	"4:5":  {},
	"4:3":  {},
	"3:4":  {},
	"16:9": {},
	"9:16": {},
}

var allowedResolutions = map[string]struct{}{
	"720p":  {},
	"1080p": {},
	"4k":    {},
}

const (
	// DefaultParamsVersion is the schema version persisted for generation params.
	DefaultParamsVersion = "2024-06"
	// DefaultAspectRatio suits a square social feed post.
	DefaultAspectRatio = "1:1"
	// DefaultResolution applies to both images and videos.
	DefaultResolution = "1080p"
	// DefaultImageFormat and DefaultVideoFormat are used when the output format is omitted.
	DefaultImageFormat = "png"
	DefaultVideoFormat = "mp4"
	// DefaultVideoDuration and MaxVideoDuration bound video length in seconds.
	DefaultVideoDuration = 8
	MaxVideoDuration     = 60
	// MaxSourceImages caps the number of reference images sent to the provider.
	MaxSourceImages = 4
)

// Normalize applies defaults and clamps limits. video selects the video
// defaults; image workflows drop duration and audio.
func (p *GenerationParams) Normalize(video bool) {
	if p == nil {
		return
	}
	if p.Version == "" {
		p.Version = DefaultParamsVersion
	}
	p.AspectRatio = strings.TrimSpace(p.AspectRatio)
	if p.AspectRatio == "" {
		p.AspectRatio = DefaultAspectRatio
	}
	p.Resolution = strings.ToLower(strings.TrimSpace(p.Resolution))
	if p.Resolution == "" {
		p.Resolution = DefaultResolution
	}
	p.OutputFormat = strings.ToLower(strings.TrimSpace(p.OutputFormat))
	if video {
		if p.OutputFormat == "" {
			p.OutputFormat = DefaultVideoFormat
		}
		if p.Duration <= 0 {
			p.Duration = DefaultVideoDuration
		}
		if p.Duration > MaxVideoDuration {
			p.Duration = MaxVideoDuration
		}
	} else {
		if p.OutputFormat == "" {
			p.OutputFormat = DefaultImageFormat
		}
		p.Duration = 0
		p.Audio = false
	}
	var sources []string
	for _, s := range p.SourceImages {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	if len(sources) > MaxSourceImages {
		sources = sources[:MaxSourceImages]
	}
	p.SourceImages = sources
}

// Validate ensures normalized params satisfy the contract before persistence.
func (p GenerationParams) Validate() error {
	if _, ok := allowedAspectRatios[p.AspectRatio]; !ok {
		return fmt.Errorf("aspect_ratio must be one of 1:1, 4:5, 4:3, 3:4, 16:9, 9:16")
	}
	if _, ok := allowedResolutions[p.Resolution]; !ok {
		return fmt.Errorf("resolution must be one of 720p, 1080p, 4k")
	}
	for _, s := range p.SourceImages {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return fmt.Errorf("source image %q must be an absolute http(s) url", s)
		}
	}
	return nil
}

func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("json marshal: %w", err))
	}
	return b
}
