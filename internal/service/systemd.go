package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/coreos/go-systemd/v22/unit"

	"github.com/julianstephens/autoblock/internal/constants"
	"github.com/julianstephens/autoblock/internal/logger"
	"github.com/julianstephens/autoblock/internal/models"
)

// systemdConn is the subset of *dbus.Conn used to manage the timer.
type systemdConn interface {
	ReloadContext(ctx context.Context) error
	EnableUnitFilesContext(ctx context.Context, files []string, runtime bool, force bool) (bool, []dbus.EnableUnitFileChange, error)
	DisableUnitFilesContext(ctx context.Context, files []string, runtime bool) ([]dbus.DisableUnitFileChange, error)
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	Close()
}

var dialSystemd = func(ctx context.Context) (systemdConn, error) {
	return dbus.NewSystemConnectionContext(ctx)
}

var systemdWeekdays = map[int]string{1: "Mon", 2: "Tue", 3: "Wed", 4: "Thu", 5: "Fri", 6: "Sat", 7: "Sun"}

type systemd struct {
	opts        Options
	servicePath string
	timerPath   string
}

func newSystemd(opts Options) *systemd {
	opts.Logger = logger.OrDiscard(opts.Logger)
	return &systemd{
		opts:        opts,
		servicePath: filepath.Join(opts.Dir, constants.SystemdServiceName),
		timerPath:   filepath.Join(opts.Dir, constants.SystemdTimerName),
	}
}

func (s *systemd) Name() string {
	return "systemd"
}

func (s *systemd) Installed() bool {
	_, err := os.Stat(s.timerPath)
	return err == nil
}

func (s *systemd) Register(ctx context.Context, set models.ScheduleSet) error {
	conn, err := dialSystemd(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	if s.Installed() {
		s.opts.Logger.Info("removing previous installation", "timer", constants.SystemdTimerName)
		if err := s.remove(ctx, conn); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(s.opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.opts.Dir, err)
	}
	if err := writeUnit(s.servicePath, s.serviceUnit()); err != nil {
		return err
	}
	if err := writeUnit(s.timerPath, s.timerUnit(set)); err != nil {
		return err
	}

	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{s.timerPath}, false, true); err != nil {
		return fmt.Errorf("failed to enable %s: %w", constants.SystemdTimerName, err)
	}
	if _, err := conn.StartUnitContext(ctx, constants.SystemdTimerName, "replace", nil); err != nil {
		return fmt.Errorf("failed to start %s: %w", constants.SystemdTimerName, err)
	}

	s.opts.Logger.Info("systemd timer enabled", "timer", s.timerPath)
	return nil
}

func (s *systemd) Unregister(ctx context.Context) error {
	if !s.Installed() {
		return nil
	}
	conn, err := dialSystemd(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	if err := s.remove(ctx, conn); err != nil {
		return err
	}
	return conn.ReloadContext(ctx)
}

// remove stops and disables the timer and deletes both unit files. Stop and
// disable failures are logged since the units may already be inactive.
func (s *systemd) remove(ctx context.Context, conn systemdConn) error {
	if _, err := conn.StopUnitContext(ctx, constants.SystemdTimerName, "replace", nil); err != nil {
		s.opts.Logger.Warn("failed to stop timer", "error", err)
	}
	if _, err := conn.DisableUnitFilesContext(ctx, []string{constants.SystemdTimerName}, false); err != nil {
		s.opts.Logger.Warn("failed to disable timer", "error", err)
	}
	for _, p := range []string{s.timerPath, s.servicePath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

func (s *systemd) serviceUnit() []*unit.UnitOption {
	args := runArgs(s.opts)
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Start scheduled content blocks"),
		unit.NewUnitOption("Service", "Type", "oneshot"),
		unit.NewUnitOption("Service", "ExecStart", unitCommand(args)),
		// exit 2 means a block was already running
		unit.NewUnitOption("Service", "SuccessExitStatus", fmt.Sprint(constants.ExitAlreadyRunning)),
	}
}

func (s *systemd) timerUnit(set models.ScheduleSet) []*unit.UnitOption {
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Periodic autoblock run"),
		unit.NewUnitOption("Timer", "OnBootSec", "1min"),
	}
	for _, st := range startTimes(set) {
		opts = append(opts, unit.NewUnitOption("Timer", "OnCalendar", onCalendar(st, set.Timezone)))
	}
	opts = append(opts,
		unit.NewUnitOption("Timer", "Persistent", "true"),
		unit.NewUnitOption("Timer", "Unit", constants.SystemdServiceName),
		unit.NewUnitOption("Install", "WantedBy", "timers.target"),
	)
	return opts
}

// onCalendar renders st, suffixed with the schedule's zone so the timer
// fires on the same clock the windows are matched against.
func onCalendar(st startTime, timezone string) string {
	spec := fmt.Sprintf("*-*-* %02d:%02d:00", st.hour, st.minute)
	if day, ok := systemdWeekdays[st.weekday]; ok {
		spec = day + " " + spec
	}
	if !isHostZone(timezone) {
		spec += " " + timezone
	}
	return spec
}

func unitCommand(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = strconv.Quote(a)
	}
	return strings.Join(quoted, " ")
}

func writeUnit(path string, opts []*unit.UnitOption) error {
	data, err := io.ReadAll(unit.Serialize(opts))
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
