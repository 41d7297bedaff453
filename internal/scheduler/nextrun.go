package scheduler

import (
	"time"

	"github.com/smartdevs17/report-dispatcher/internal/models"
)

// ComputeNextRun returns the next execution time for a report of the
// given frequency, relative to now. The HH:MM time of day is taken from
// timeOfDay and placed in now's location.
//
// Daily reports run today if the slot is still ahead, otherwise
// tomorrow. Weekly reports always advance to the next Monday, even when
// called before today's slot on a Monday. Monthly reports run on the
// first day of the following month.
func ComputeNextRun(frequency models.Frequency, timeOfDay string, now time.Time) time.Time {
	hour, minute := splitTimeOfDay(timeOfDay)
	loc := now.Location()

	switch frequency {
	case models.FrequencyWeekly:
		// Days until next Monday, never zero: a run on Monday schedules
		// the Monday after.
		days := (8 - int(now.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		target := now.AddDate(0, 0, days)
		return time.Date(target.Year(), target.Month(), target.Day(), hour, minute, 0, 0, loc)

	case models.FrequencyMonthly:
		return time.Date(now.Year(), now.Month()+1, 1, hour, minute, 0, 0, loc)

	default: // daily
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// matchesFrequency reports whether a report of the given frequency
// fires on the given day. The time-of-day match is handled by the due
// query; this covers the calendar dimension only.
func matchesFrequency(frequency models.Frequency, now time.Time) bool {
	switch frequency {
	case models.FrequencyDaily:
		return true
	case models.FrequencyWeekly:
		return now.Weekday() == time.Monday
	case models.FrequencyMonthly:
		return now.Day() == 1
	}
	return false
}

// splitTimeOfDay parses a validated "HH:MM" string.
func splitTimeOfDay(s string) (hour, minute int) {
	if len(s) != 5 {
		return 0, 0
	}
	hour = int(s[0]-'0')*10 + int(s[1]-'0')
	minute = int(s[3]-'0')*10 + int(s[4]-'0')
	return hour, minute
}
