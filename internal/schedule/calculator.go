// Package schedule turns a recurrence configuration into concrete run instants.
package schedule

import (
	"sort"
	"time"

	"aisocial/internal/domain"
)

const (
	// DefaultHorizonDays is how far ahead instants are materialized.
	DefaultHorizonDays = 7
	// MinLead is the minimum distance between now and an accepted instant.
	MinLead = time.Minute
)

type clock struct {
	hour, minute int
}

// NextInstants returns the chronologically ordered instants produced by cfg
// over horizonDays calendar days starting at now's date in loc. Only instants
// strictly more than MinLead and at most horizonDays*24h after now are
// returned. A nil loc uses now's
// location; horizonDays < 1 falls back to DefaultHorizonDays.
func NextInstants(cfg domain.ScheduleConfig, horizonDays int, now time.Time, loc *time.Location) []time.Time {
	if horizonDays < 1 {
		horizonDays = DefaultHorizonDays
	}
	if loc == nil {
		loc = now.Location()
	}
	cfg = cfg.Normalized()
	clocks := parseClocks(cfg.Times)
	if len(clocks) == 0 {
		return nil
	}
	days := make(map[time.Weekday]struct{}, len(cfg.Days))
	for _, d := range cfg.Days {
		if wd, ok := domain.ParseWeekday(d); ok {
			days[wd] = struct{}{}
		}
	}

	limit := time.Duration(horizonDays) * 24 * time.Hour
	local := now.In(loc)
	y, m, d := local.Date()
	var out []time.Time
	for offset := 0; offset < horizonDays; offset++ {
		// time.Date normalizes day overflow, so month/year boundaries are handled.
		day := time.Date(y, m, d+offset, 0, 0, 0, 0, loc)
		if !eligible(cfg.Frequency, offset, day.Weekday(), days) {
			continue
		}
		for _, c := range clocks {
			candidate := time.Date(day.Year(), day.Month(), day.Day(), c.hour, c.minute, 0, 0, loc)
			// a fall-back day is 25h long; cap on elapsed time, not calendar days
			if lead := candidate.Sub(now); lead > MinLead && lead <= limit {
				out = append(out, candidate)
			}
		}
	}
	// DST gaps can shift a wall-clock time; keep the output strictly ordered.
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func eligible(freq domain.Frequency, offset int, wd time.Weekday, days map[time.Weekday]struct{}) bool {
	switch freq {
	case domain.FrequencyDaily:
		return true
	case domain.FrequencyWeekly, domain.FrequencyCustom:
		_, ok := days[wd]
		return ok
	case domain.FrequencyOnce:
		return offset == 0
	default:
		return false
	}
}

func parseClocks(times []string) []clock {
	out := make([]clock, 0, len(times))
	for _, t := range times {
		h, m, err := domain.ParseClock(t)
		if err != nil {
			continue
		}
		out = append(out, clock{hour: h, minute: m})
	}
	return out
}
