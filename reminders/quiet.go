package reminders

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"splitcircle-backend/models"
)

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuietHours, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuietHours, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuietHours, s)
	}
	return hour*60 + minute, nil
}

// quietWindow extracts the preference's quiet window in minutes since
// midnight. ok is false when no complete window is configured.
func quietWindow(pref *models.ReminderPreference) (start, end int, ok bool) {
	if pref == nil || pref.QuietHoursStart == nil || pref.QuietHoursEnd == nil {
		return 0, 0, false
	}
	start, err := parseClock(*pref.QuietHoursStart)
	if err != nil {
		return 0, 0, false
	}
	end, err = parseClock(*pref.QuietHoursEnd)
	if err != nil {
		return 0, 0, false
	}
	if start == end {
		return 0, 0, false
	}
	return start, end, true
}

// inWindow reports whether the clock time of now falls inside [start, end).
// A window with end before start wraps past midnight, e.g. 22:00–07:00.
func inWindow(now time.Time, start, end int) bool {
	minute := now.Hour()*60 + now.Minute()
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// windowEnd returns the next moment the quiet window ends, at or after now.
func windowEnd(now time.Time, start, end int) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endAt := day.Add(time.Duration(end) * time.Minute)
	if !endAt.After(now) {
		endAt = endAt.Add(24 * time.Hour)
	}
	return endAt
}
