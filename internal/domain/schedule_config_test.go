package domain

import (
	"errors"
	"testing"
	"time"
)

func TestValidateScheduleConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ScheduleConfig
		wantErr bool
	}{
		{name: "daily", cfg: ScheduleConfig{Frequency: FrequencyDaily, Times: []string{"09:00"}}},
		{name: "weekly with days", cfg: ScheduleConfig{Frequency: FrequencyWeekly, Times: []string{"09:00", "18:30"}, Days: []string{"monday", "Friday"}}},
		{name: "weekly without days", cfg: ScheduleConfig{Frequency: FrequencyWeekly, Times: []string{"09:00"}}, wantErr: true},
		{name: "custom without days", cfg: ScheduleConfig{Frequency: FrequencyCustom, Times: []string{"09:00"}}, wantErr: true},
		{name: "unknown frequency", cfg: ScheduleConfig{Frequency: "hourly", Times: []string{"09:00"}}, wantErr: true},
		{name: "no times", cfg: ScheduleConfig{Frequency: FrequencyDaily}, wantErr: true},
		{name: "bad time", cfg: ScheduleConfig{Frequency: FrequencyDaily, Times: []string{"25:00"}}, wantErr: true},
		{name: "signed clock", cfg: ScheduleConfig{Frequency: FrequencyDaily, Times: []string{"+9:+5"}}, wantErr: true},
		{name: "spaced clock", cfg: ScheduleConfig{Frequency: FrequencyDaily, Times: []string{" 9:0 "}}, wantErr: true},
		{name: "bad day", cfg: ScheduleConfig{Frequency: FrequencyCustom, Times: []string{"09:00"}, Days: []string{"funday"}}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateScheduleConfig(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.Is(err, ErrInvalidSchedule) {
					t.Fatalf("error %v does not wrap ErrInvalidSchedule", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestScheduleConfigNormalized(t *testing.T) {
	cfg := ScheduleConfig{
		Frequency: "Weekly",
		Times:     []string{"18:00", "9:05", "09:05", "bogus"},
		Days:      []string{"FRIDAY", "monday", "friday"},
	}
	got := cfg.Normalized()
	if got.Frequency != FrequencyWeekly {
		t.Fatalf("Frequency = %q", got.Frequency)
	}
	wantTimes := []string{"09:05", "18:00"}
	if len(got.Times) != len(wantTimes) {
		t.Fatalf("Times = %v, want %v", got.Times, wantTimes)
	}
	for i := range wantTimes {
		if got.Times[i] != wantTimes[i] {
			t.Fatalf("Times = %v, want %v", got.Times, wantTimes)
		}
	}
	if len(got.Days) != 2 || got.Days[0] != "friday" || got.Days[1] != "monday" {
		t.Fatalf("Days = %v", got.Days)
	}
}

func TestWeekdayNamesAreCanonical(t *testing.T) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := WeekdayName(d)
		back, ok := ParseWeekday(name)
		if !ok || back != d {
			t.Fatalf("round trip failed for %v: %q", d, name)
		}
	}
	if WeekdayName(time.Monday) != "monday" {
		t.Fatalf("WeekdayName(Monday) = %q", WeekdayName(time.Monday))
	}
}

func TestWorkflowPublishTargets(t *testing.T) {
	wf := Workflow{Platforms: []string{"Instagram", "library", "instagram", "tiktok"}}
	got := wf.PublishTargets()
	if len(got) != 2 || got[0] != "instagram" || got[1] != "tiktok" {
		t.Fatalf("PublishTargets = %v", got)
	}
	if len((Workflow{Platforms: []string{"library"}}).PublishTargets()) != 0 {
		t.Fatal("library must not be a publish target")
	}
}

func TestParseClockDigitsOnly(t *testing.T) {
	for _, in := range []string{"+9:05", "09:+5", "-0:30", "0x:10", "9:5 "} {
		if _, _, err := ParseClock(in); err == nil {
			t.Fatalf("ParseClock(%q) accepted non-digit input", in)
		}
	}
	h, m, err := ParseClock("9:05")
	if err != nil || h != 9 || m != 5 {
		t.Fatalf("ParseClock(9:05) = %d, %d, %v", h, m, err)
	}
}
