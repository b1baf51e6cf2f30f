// Package service registers the periodic `autoblock run` invocation with the
// host's service manager: launchd on macOS, systemd timers on Linux.
package service

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/autoblock/internal/constants"
	"github.com/julianstephens/autoblock/internal/engine"
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/utils"
)

var (
	goos         = runtime.GOOS
	nowFunc      = time.Now
	hostLocation = func() *time.Location { return time.Local }
)

// Registrar installs and removes the periodic invocation.
type Registrar interface {
	Name() string
	// Register replaces any previous registration with one that fires at the
	// start of every window in set.
	Register(ctx context.Context, set models.ScheduleSet) error
	Unregister(ctx context.Context) error
	Installed() bool
}

// Options configures a Registrar.
type Options struct {
	// Executable is the absolute path of the autoblock binary.
	Executable string
	StateDir   string
	// Dir overrides where unit or plist files are written.
	Dir    string
	Runner engine.Runner
	Logger *log.Logger
}

// New returns the registrar for the current platform.
func New(opts Options) (Registrar, error) {
	if opts.Runner == nil {
		opts.Runner = engine.ExecRunner{}
	}

	switch goos {
	case "darwin":
		if opts.Dir == "" {
			opts.Dir = constants.LaunchDaemonDir
		}
		return newLaunchd(opts), nil
	case "linux":
		if opts.Dir == "" {
			opts.Dir = constants.SystemdUnitDir
		}
		return newSystemd(opts), nil
	default:
		return nil, fmt.Errorf("periodic invocation is not supported on %s", goos)
	}
}

// runArgs is the command line the service manager invokes.
func runArgs(opts Options) []string {
	return []string{opts.Executable, "run", "--state-dir", opts.StateDir}
}

type startTime struct {
	weekday int // ISO, 0 when the window runs every day
	hour    int
	minute  int
}

// startTimes lists the distinct start times of every window in declared order.
func startTimes(set models.ScheduleSet) []startTime {
	seen := make(map[startTime]bool)
	var out []startTime
	for _, w := range set.BlockSchedules {
		weekdays := []int{0}
		if w.Weekday != nil {
			weekdays = []int{*w.Weekday}
		}
		for _, wd := range weekdays {
			st := startTime{weekday: wd, hour: w.StartHour, minute: w.StartMinute}
			if !seen[st] {
				seen[st] = true
				out = append(out, st)
			}
		}
	}
	return out
}

func isHostZone(timezone string) bool {
	return timezone == "" || timezone == "Local"
}

// hostStartTimes converts startTimes from the schedule's zone to host local
// time, for service managers that only know the host clock. Offsets are
// taken at the next occurrence, so a DST switch in only one of the two
// zones shifts the trigger by an hour until the next install.
func hostStartTimes(set models.ScheduleSet) ([]startTime, error) {
	times := startTimes(set)
	if isHostZone(set.Timezone) {
		return times, nil
	}
	zone, err := utils.LoadLocation(set.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", set.Timezone, err)
	}

	host := hostLocation()
	ref := nowFunc().In(zone)
	seen := make(map[startTime]bool)
	var out []startTime
	for _, st := range times {
		day := ref
		if st.weekday != 0 {
			day = ref.AddDate(0, 0, (st.weekday-utils.ISOWeekday(ref)+7)%7)
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), st.hour, st.minute, 0, 0, zone).In(host)

		conv := startTime{hour: at.Hour(), minute: at.Minute()}
		if st.weekday != 0 {
			conv.weekday = utils.ISOWeekday(at)
		}
		if !seen[conv] {
			seen[conv] = true
			out = append(out, conv)
		}
	}
	return out, nil
}
