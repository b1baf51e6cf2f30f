package scheduler

import (
	"math"
	"time"

	"github.com/julianstephens/autoblock/internal/constants"
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/utils"
)

// Match is the result of evaluating a schedule set at one instant. When Found
// is false the other fields are zero.
type Match struct {
	Found  bool
	Index  int
	Window models.ScheduleWindow
	End    time.Time
}

// NoMatch is returned when no window contains the evaluated instant.
var NoMatch = Match{Index: -1}

// FindActiveWindow returns the first window, in declared order, that contains
// now. Overlapping windows are resolved by order alone.
func FindActiveWindow(set models.ScheduleSet, now time.Time) Match {
	for i, w := range set.BlockSchedules {
		if IsWindowActive(w, now) {
			return Match{
				Found:  true,
				Index:  i,
				Window: w,
				End:    EndTimestamp(w, now),
			}
		}
	}
	return NoMatch
}

// IsWindowActive reports whether now falls inside the recurring window.
// Both boundaries are inclusive.
func IsWindowActive(w models.ScheduleWindow, now time.Time) bool {
	start := clockOn(now, w.StartHour, w.StartMinute)
	end := clockOn(now, w.EndHour, w.EndMinute)
	spansMidnight := end.Before(start)

	for _, weekday := range w.Weekdays() {
		switch weekdayDistance(now, weekday) {
		case 0:
			// started today
			if spansMidnight {
				if !now.Before(start) {
					return true
				}
			} else if !now.Before(start) && !now.After(end) {
				return true
			}
		case 1, -6:
			// started yesterday, only a midnight-spanning window is still open
			if spansMidnight && !now.After(end) {
				return true
			}
		}
	}
	return false
}

// EndTimestamp returns the instant the window containing now ends: today at
// the window's end clock time, or tomorrow when the window spans midnight and
// now is still in its pre-midnight segment.
func EndTimestamp(w models.ScheduleWindow, now time.Time) time.Time {
	end := clockOn(now, w.EndHour, w.EndMinute)
	if w.SpansMidnight() && !now.Before(clockOn(now, w.StartHour, w.StartMinute)) {
		end = time.Date(now.Year(), now.Month(), now.Day()+1, w.EndHour, w.EndMinute, 0, 0, now.Location())
	}
	return end
}

// FormatEndTimestamp renders t as ISO-8601 with a numeric UTC offset.
func FormatEndTimestamp(t time.Time) string {
	return t.Format(constants.EndTimestampFormat)
}

// RemainingMinutes returns the whole minutes from now until end, rounded to
// the nearest minute. Never negative.
func RemainingMinutes(end, now time.Time) int {
	d := end.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}

// weekdayDistance compares ISO weekdays modulo 7 so that Sunday (7) and 0
// normalise to the same value. 0 means today, 1 or -6 means yesterday.
func weekdayDistance(now time.Time, scheduled int) int {
	return utils.ISOWeekday(now)%7 - scheduled%7
}

func clockOn(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
