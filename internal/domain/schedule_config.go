package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Frequency enumerates recurrence modes.
type Frequency string

const (
	FrequencyOnce   Frequency = "once"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// ScheduleConfig is the recurrence specification of a workflow.
type ScheduleConfig struct {
	Frequency Frequency `json:"frequency" validate:"required,oneof=once daily weekly custom"`
	Times     []string  `json:"times" validate:"required,min=1,dive,hhmm"`
	Days      []string  `json:"days" validate:"dive,weekday"`
}

// weekdayNames is indexed by time.Weekday and never depends on a display locale.
var weekdayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WeekdayName returns the canonical lowercase English name of d.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[int(d)%7]
}

// ParseWeekday maps a canonical weekday name (case-insensitive) to time.Weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range weekdayNames {
		if n == name {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// ParseClock parses a 24h "HH:MM" string.
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(m) != 2 || len(h) < 1 || len(h) > 2 || !digits(h) || !digits(m) {
		return 0, 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidSchedule, s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour out of range in %q", ErrInvalidSchedule, s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute out of range in %q", ErrInvalidSchedule, s)
	}
	return hour, minute, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Normalized returns a copy with lowercased days and times deduplicated and
// sorted ascending as zero-padded "HH:MM".
func (c ScheduleConfig) Normalized() ScheduleConfig {
	out := ScheduleConfig{Frequency: Frequency(strings.ToLower(strings.TrimSpace(string(c.Frequency))))}
	seen := map[string]struct{}{}
	for _, t := range c.Times {
		h, m, err := ParseClock(t)
		if err != nil {
			continue
		}
		key := fmt.Sprintf("%02d:%02d", h, m)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Times = append(out.Times, key)
	}
	sort.Strings(out.Times)
	seenDay := map[string]struct{}{}
	for _, d := range c.Days {
		wd, ok := ParseWeekday(d)
		if !ok {
			continue
		}
		name := WeekdayName(wd)
		if _, dup := seenDay[name]; dup {
			continue
		}
		seenDay[name] = struct{}{}
		out.Days = append(out.Days, name)
	}
	return out
}

var scheduleValidator = newScheduleValidator()

func newScheduleValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, _, err := ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := ParseWeekday(fl.Field().String())
		return ok
	})
	return v
}

// ValidateScheduleConfig checks the recurrence shape. Weekly and custom
// schedules need at least one day.
func ValidateScheduleConfig(c ScheduleConfig) error {
	if err := scheduleValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSchedule, describeValidation(err))
	}
	if (c.Frequency == FrequencyWeekly || c.Frequency == FrequencyCustom) && len(c.Days) == 0 {
		return fmt.Errorf("%w: %s schedule requires at least one day", ErrInvalidSchedule, c.Frequency)
	}
	return nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
