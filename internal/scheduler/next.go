package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/julianstephens/autoblock/internal/models"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CronSpec returns the standard five-field cron expression firing at the
// window's start. Cron counts Sunday as 0, which is ISO 7 modulo 7.
func CronSpec(w models.ScheduleWindow) string {
	dow := "*"
	if w.Weekday != nil {
		dow = fmt.Sprintf("%d", *w.Weekday%7)
	}
	return fmt.Sprintf("%d %d * * %s", w.StartMinute, w.StartHour, dow)
}

// NextStart returns the first start of the window strictly after now, in
// now's location.
func NextStart(w models.ScheduleWindow, now time.Time) (time.Time, error) {
	sched, err := parser.Parse(CronSpec(w))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid window start: %w", err)
	}
	return sched.Next(now), nil
}

// Upcoming is the next window start across a schedule set.
type Upcoming struct {
	Index  int
	Window models.ScheduleWindow
	Start  time.Time
}

// NextWindow returns the earliest upcoming window start in the set. Ties go to
// the window declared first. ok is false for an empty set.
func NextWindow(set models.ScheduleSet, now time.Time) (next Upcoming, ok bool, err error) {
	for i, w := range set.BlockSchedules {
		start, err := NextStart(w, now)
		if err != nil {
			return Upcoming{}, false, fmt.Errorf("schedule %d: %w", i, err)
		}
		if !ok || start.Before(next.Start) {
			next = Upcoming{Index: i, Window: w, Start: start}
			ok = true
		}
	}
	return next, ok, nil
}
