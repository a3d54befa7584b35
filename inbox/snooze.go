package inbox

import (
	"time"
)

// SnoozePreset names one of the fixed wake-time choices.
type SnoozePreset string

const (
	SnoozeLaterToday    SnoozePreset = "later_today"
	SnoozeTomorrow      SnoozePreset = "tomorrow"
	SnoozeLaterThisWeek SnoozePreset = "later_this_week"
	SnoozeCustom        SnoozePreset = "custom"
)

// SnoozeWakeTime resolves a preset to the concrete wake time. Later today is
// 18:00; when that has already passed the wake time rolls to tomorrow
// morning. Tomorrow is 08:00 the next day, later this week is 08:00 on the
// coming Saturday, and custom passes the caller's choice through.
func SnoozeWakeTime(preset SnoozePreset, now time.Time, custom time.Time) (time.Time, error) {
	switch preset {
	case SnoozeLaterToday:
		wake := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location())
		if !wake.After(now) {
			wake = tomorrowMorning(now)
		}
		return wake, nil
	case SnoozeTomorrow:
		return tomorrowMorning(now), nil
	case SnoozeLaterThisWeek:
		days := int(time.Saturday - now.Weekday())
		if days <= 0 {
			days += 7
		}
		next := now.AddDate(0, 0, days)
		return time.Date(next.Year(), next.Month(), next.Day(), 8, 0, 0, 0, now.Location()), nil
	case SnoozeCustom:
		if !custom.After(now) {
			return time.Time{}, &ValidationError{Field: "wake_at", Reason: "custom snooze time must be in the future"}
		}
		return custom, nil
	default:
		return time.Time{}, &ValidationError{Field: "preset", Reason: "unknown snooze preset"}
	}
}

func tomorrowMorning(now time.Time) time.Time {
	next := now.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 8, 0, 0, 0, now.Location())
}
