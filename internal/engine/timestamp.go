package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/autoblock/internal/constants"
	"github.com/julianstephens/autoblock/internal/scheduler"
)

// timestampEngine drives engines that answer --is-running and accept an
// absolute end timestamp.
type timestampEngine struct {
	base
}

func (e *timestampEngine) Name() string {
	return "timestamp"
}

func (e *timestampEngine) Capabilities() Capabilities {
	return Capabilities{StatusQuery: true, TimestampStop: true}
}

func (e *timestampEngine) IsRunning(ctx context.Context) (bool, error) {
	out, err := e.runner.Run(ctx, e.cli, "--uid", e.uid, "--is-running")
	if err != nil {
		return false, fmt.Errorf("engine status query failed: %w", err)
	}
	return parseRunningStatus(string(out))
}

func (e *timestampEngine) Start(ctx context.Context, blocklistPath string, end time.Time) error {
	stamp := scheduler.FormatEndTimestamp(end)
	e.log.Debug("starting engine", "blocklist", blocklistPath, "end", stamp)

	out, err := e.runner.Run(ctx, e.cli, "--uid", e.uid, "--start", blocklistPath, stamp)
	if err != nil {
		return fmt.Errorf("engine failed to start block: %w", err)
	}
	if s := strings.TrimSpace(string(out)); s != "" {
		e.log.Debug("engine output", "output", s)
	}
	return nil
}

// parseRunningStatus reads the last non-empty line of --is-running output.
func parseRunningStatus(output string) (bool, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	last := strings.ToUpper(strings.TrimSpace(lines[len(lines)-1]))

	switch last {
	case constants.EngineRunningToken:
		return true, nil
	case constants.EngineNotRunningToken:
		return false, nil
	default:
		return false, fmt.Errorf("unparseable engine status output: %q", strings.TrimSpace(output))
	}
}
