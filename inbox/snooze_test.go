package inbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnoozeLaterToday(t *testing.T) {
	// Tuesday morning: later today is 18:00 the same day
	now := time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC)
	wake, err := SnoozeWakeTime(SnoozeLaterToday, now, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC), wake)
}

func TestSnoozeLaterTodayRollsOverAfterSix(t *testing.T) {
	now := time.Date(2026, 3, 3, 19, 15, 0, 0, time.UTC)
	wake, err := SnoozeWakeTime(SnoozeLaterToday, now, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC), wake, "past 18:00 rolls to tomorrow morning")
}

func TestSnoozeTomorrow(t *testing.T) {
	now := time.Date(2026, 3, 3, 23, 50, 0, 0, time.UTC)
	wake, err := SnoozeWakeTime(SnoozeTomorrow, now, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC), wake)
}

func TestSnoozeLaterThisWeek(t *testing.T) {
	// Tuesday -> coming Saturday
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	wake, err := SnoozeWakeTime(SnoozeLaterThisWeek, now, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 7, 8, 0, 0, 0, time.UTC), wake)
	assert.Equal(t, time.Saturday, wake.Weekday())
}

func TestSnoozeLaterThisWeekOnSaturday(t *testing.T) {
	// already Saturday: wake next Saturday, never today
	now := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
	wake, err := SnoozeWakeTime(SnoozeLaterThisWeek, now, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC), wake)
}

func TestSnoozeCustom(t *testing.T) {
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	want := now.Add(48 * time.Hour)

	wake, err := SnoozeWakeTime(SnoozeCustom, now, want)
	require.NoError(t, err)
	assert.Equal(t, want, wake)
}

func TestSnoozeCustomInPastRejected(t *testing.T) {
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

	_, err := SnoozeWakeTime(SnoozeCustom, now, now.Add(-time.Minute))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "wake_at", verr.Field)
}

func TestSnoozeUnknownPreset(t *testing.T) {
	_, err := SnoozeWakeTime(SnoozePreset("whenever"), time.Now(), time.Time{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "preset", verr.Field)
}
