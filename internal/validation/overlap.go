package validation

import (
	"fmt"

	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/utils"
)

const minutesPerWeek = 7 * 24 * 60

type weekSpan struct {
	start, end int // minutes from Monday 00:00, end may exceed minutesPerWeek
}

// spans expands a window into one span per weekday it starts on.
func spans(w models.ScheduleWindow) []weekSpan {
	length := w.EndMinutes() - w.StartMinutes()
	if length < 0 {
		length += 24 * 60
	}
	var out []weekSpan
	for _, wd := range w.Weekdays() {
		start := (wd-1)*24*60 + w.StartMinutes()
		out = append(out, weekSpan{start: start, end: start + length})
	}
	return out
}

func (a weekSpan) overlaps(b weekSpan) bool {
	// compare against b shifted a week either way so Sunday night wraps to Monday
	for _, shift := range []int{-minutesPerWeek, 0, minutesPerWeek} {
		if a.start <= b.end+shift && b.start+shift <= a.end {
			return true
		}
	}
	return false
}

// findOverlaps warns about windows that can be active at the same instant.
// Only the first one in declared order is ever used by the matcher.
// O(n²) over windows, fine for hand-written configs.
func findOverlaps(windows []models.ScheduleWindow) []Conflict {
	var conflicts []Conflict
	for i := 0; i < len(windows); i++ {
		for j := i + 1; j < len(windows); j++ {
			if windowsOverlap(windows[i], windows[j]) {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictOverlappingWindow,
					Severity: SeverityWarning,
					Description: fmt.Sprintf("Schedules %d (%s) and %d (%s) overlap; schedule %d takes precedence.",
						i, describe(windows[i]), j, describe(windows[j]), i),
					Windows: []int{i, j},
				})
			}
		}
	}
	return conflicts
}

func windowsOverlap(a, b models.ScheduleWindow) bool {
	for _, sa := range spans(a) {
		for _, sb := range spans(b) {
			if sa.overlaps(sb) {
				return true
			}
		}
	}
	return false
}

func describe(w models.ScheduleWindow) string {
	day := "every day"
	if w.Weekday != nil {
		day = utils.ISOWeekdayName(*w.Weekday)
	}
	return fmt.Sprintf("%s %s-%s", day, utils.FormatClock(w.StartHour, w.StartMinute), utils.FormatClock(w.EndHour, w.EndMinute))
}
