package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"howett.net/plist"

	"github.com/julianstephens/autoblock/internal/constants"
	"github.com/julianstephens/autoblock/internal/logger"
	"github.com/julianstephens/autoblock/internal/models"
)

type launchdJob struct {
	Label                 string             `plist:"Label"`
	ProgramArguments      []string           `plist:"ProgramArguments"`
	StartCalendarInterval []calendarInterval `plist:"StartCalendarInterval"`
	RunAtLoad             bool               `plist:"RunAtLoad"`
}

// calendarInterval omits Weekday for windows that run every day.
type calendarInterval struct {
	Weekday *int `plist:"Weekday,omitempty"`
	Hour    int  `plist:"Hour"`
	Minute  int  `plist:"Minute"`
}

type launchd struct {
	opts Options
	path string
}

func newLaunchd(opts Options) *launchd {
	opts.Logger = logger.OrDiscard(opts.Logger)
	return &launchd{
		opts: opts,
		path: filepath.Join(opts.Dir, constants.ServiceLabel+".plist"),
	}
}

func (l *launchd) Name() string {
	return "launchd"
}

func (l *launchd) Installed() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

func (l *launchd) Register(ctx context.Context, set models.ScheduleSet) error {
	if l.Installed() {
		l.opts.Logger.Info("removing previous installation", "path", l.path)
		if err := l.Unregister(ctx); err != nil {
			return err
		}
	}

	data, err := l.render(set)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", l.opts.Dir, err)
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write launch daemon: %w", err)
	}

	if _, err := l.opts.Runner.Run(ctx, "launchctl", "load", "-w", l.path); err != nil {
		return fmt.Errorf("failed to load launch daemon: %w", err)
	}
	l.opts.Logger.Info("launch daemon loaded", "path", l.path)
	return nil
}

func (l *launchd) Unregister(ctx context.Context) error {
	if !l.Installed() {
		return nil
	}
	// an unloaded job makes launchctl fail, the file is removed regardless
	if _, err := l.opts.Runner.Run(ctx, "launchctl", "unload", "-w", l.path); err != nil {
		l.opts.Logger.Warn("launchctl unload failed", "error", err)
	}
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("failed to remove launch daemon: %w", err)
	}
	return nil
}

func (l *launchd) render(set models.ScheduleSet) ([]byte, error) {
	job := launchdJob{
		Label:            constants.ServiceLabel,
		ProgramArguments: runArgs(l.opts),
		RunAtLoad:        true,
	}
	times, err := hostStartTimes(set)
	if err != nil {
		return nil, err
	}
	for _, st := range times {
		ci := calendarInterval{Hour: st.hour, Minute: st.minute}
		if st.weekday != 0 {
			wd := st.weekday
			ci.Weekday = &wd
		}
		job.StartCalendarInterval = append(job.StartCalendarInterval, ci)
	}

	data, err := plist.MarshalIndent(job, plist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to encode launch daemon: %w", err)
	}
	return data, nil
}
