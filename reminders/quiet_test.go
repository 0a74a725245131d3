package reminders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitcircle-backend/models"
)

func clock(s string) *string { return &s }

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestParseClock(t *testing.T) {
	mins, err := parseClock("22:30")
	require.NoError(t, err)
	assert.Equal(t, 22*60+30, mins)

	mins, err = parseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, mins)

	for _, bad := range []string{"24:00", "12:60", "7pm", "12", "-1:00", ""} {
		_, err := parseClock(bad)
		assert.ErrorIsf(t, err, ErrInvalidQuietHours, "parseClock(%q)", bad)
	}
}

func TestQuietWindowRequiresBothEnds(t *testing.T) {
	pref := &models.ReminderPreference{QuietHoursStart: clock("22:00")}
	_, _, ok := quietWindow(pref)
	assert.False(t, ok)

	_, _, ok = quietWindow(nil)
	assert.False(t, ok)

	// Identical start and end means no window at all, not a 24h one.
	pref = &models.ReminderPreference{QuietHoursStart: clock("22:00"), QuietHoursEnd: clock("22:00")}
	_, _, ok = quietWindow(pref)
	assert.False(t, ok)
}

func TestInWindowSameDay(t *testing.T) {
	start, end := 13*60, 15*60 // 13:00–15:00

	assert.True(t, inWindow(at(13, 0), start, end))
	assert.True(t, inWindow(at(14, 59), start, end))
	assert.False(t, inWindow(at(15, 0), start, end))
	assert.False(t, inWindow(at(12, 59), start, end))
}

func TestInWindowCrossesMidnight(t *testing.T) {
	start, end := 22*60, 7*60 // 22:00–07:00

	assert.True(t, inWindow(at(23, 30), start, end))
	assert.True(t, inWindow(at(3, 0), start, end))
	assert.True(t, inWindow(at(6, 59), start, end))
	assert.False(t, inWindow(at(7, 0), start, end))
	assert.False(t, inWindow(at(12, 0), start, end))
	assert.False(t, inWindow(at(21, 59), start, end))
}

func TestWindowEndSameDay(t *testing.T) {
	end := windowEnd(at(13, 30), 13*60, 15*60)
	assert.Equal(t, at(15, 0), end)
}

func TestWindowEndAfterMidnight(t *testing.T) {
	// 23:30, window 22:00–07:00: ends at 07:00 tomorrow.
	end := windowEnd(at(23, 30), 22*60, 7*60)
	assert.Equal(t, at(7, 0).Add(24*time.Hour), end)

	// 06:00, same window: ends at 07:00 today.
	end = windowEnd(at(6, 0), 22*60, 7*60)
	assert.Equal(t, at(7, 0), end)
}
