package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/autoblock/internal/constants"
	"github.com/julianstephens/autoblock/internal/scheduler"
)

var listProcessesFunc = ps.Processes

// minCommLen is the shortest truncated command name accepted as the daemon.
// macOS keeps at most 16 bytes of the executable name in p_comm, so the
// daemon shows up as "org.eyebeam.Self".
const minCommLen = 15

// legacyEngine drives engines without a status query. A block is running
// while the engine's daemon process is alive, and starts take a duration.
type legacyEngine struct {
	base
	now func() time.Time
}

func (e *legacyEngine) Name() string {
	return "legacy"
}

func (e *legacyEngine) Capabilities() Capabilities {
	return Capabilities{}
}

func (e *legacyEngine) IsRunning(_ context.Context) (bool, error) {
	procs, err := listProcessesFunc()
	if err != nil {
		return false, fmt.Errorf("failed to list processes: %w", err)
	}
	for _, p := range procs {
		if p != nil && isLegacyDaemon(p.Executable()) {
			e.log.Debug("engine daemon found", "pid", p.Pid())
			return true, nil
		}
	}
	return false, nil
}

func (e *legacyEngine) Start(ctx context.Context, blocklistPath string, end time.Time) error {
	minutes := scheduler.RemainingMinutes(end, e.now())
	if minutes <= 0 {
		return fmt.Errorf("block would end immediately (end %s)", scheduler.FormatEndTimestamp(end))
	}
	e.log.Debug("starting legacy engine", "blocklist", blocklistPath, "minutes", minutes)

	out, err := e.runner.Run(ctx, e.daemon, "--uid", e.uid, "--install", blocklistPath, strconv.Itoa(minutes))
	if err != nil {
		return fmt.Errorf("engine failed to start block: %w", err)
	}
	if s := strings.TrimSpace(string(out)); s != "" {
		e.log.Debug("engine output", "output", s)
	}
	return nil
}

// isLegacyDaemon matches the daemon by full name or by its truncated
// command name.
func isLegacyDaemon(exe string) bool {
	name := constants.LegacyDaemonProcessName
	if strings.HasPrefix(exe, name) {
		return true
	}
	return len(exe) >= minCommLen && strings.HasPrefix(name, exe)
}
