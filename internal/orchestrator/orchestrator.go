// Package orchestrator sequences one invocation: ask the engine whether a
// block is running, find the active window, write the blocklist and start
// the engine.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/autoblock/internal/blocklist"
	"github.com/julianstephens/autoblock/internal/constants"
	"github.com/julianstephens/autoblock/internal/engine"
	apperrors "github.com/julianstephens/autoblock/internal/errors"
	"github.com/julianstephens/autoblock/internal/logger"
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/scheduler"
	"github.com/julianstephens/autoblock/internal/storage"
	"github.com/julianstephens/autoblock/internal/utils"
)

// Mode names the entry point that triggered a run, recorded in history.
type Mode string

const (
	ModeRun     Mode = "run"
	ModeInstall Mode = "install"
)

// Result describes what a run did.
type Result struct {
	Outcome       models.RunOutcome
	Match         scheduler.Match
	BlocklistPath string
	Elapsed       time.Duration
}

// Orchestrator runs the pipeline against one engine. History is optional.
type Orchestrator struct {
	Engine   engine.Engine
	History  storage.HistoryStore
	StateDir string
	Now      func() time.Time
	Logger   *log.Logger
}

// Run executes the pipeline once. A running block yields
// errors.ErrAlreadyRunning; no active window is not an error.
func (o *Orchestrator) Run(ctx context.Context, set models.ScheduleSet, mode Mode) (Result, error) {
	l := logger.OrDiscard(o.Logger)

	started := o.clock()
	now, err := localTime(started, set.Timezone)
	if err != nil {
		return Result{Outcome: models.OutcomeFailed}, err
	}

	res, err := o.run(ctx, set, now, l)
	res.Elapsed = o.clock().Sub(started)
	o.record(ctx, mode, started, res, err, l)

	switch {
	case err == nil && res.Outcome == models.OutcomeStarted:
		l.Info("block started",
			"window", res.Match.Index,
			"end", scheduler.FormatEndTimestamp(res.Match.End),
			"elapsed", res.Elapsed)
	case err == nil:
		l.Info("no schedule is active at the moment", "elapsed", res.Elapsed)
	case res.Outcome == models.OutcomeAlreadyRunning:
		l.Info("a block is already running, skipping this run")
	default:
		l.Error("run failed", "error", err, "elapsed", res.Elapsed)
	}
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, set models.ScheduleSet, now time.Time, l *log.Logger) (Result, error) {
	running, err := o.Engine.IsRunning(ctx)
	if err != nil {
		return Result{Outcome: models.OutcomeFailed}, err
	}
	if running {
		return Result{Outcome: models.OutcomeAlreadyRunning}, apperrors.ErrAlreadyRunning
	}

	match := scheduler.FindActiveWindow(set, now)
	if !match.Found {
		return Result{Outcome: models.OutcomeNoneActive, Match: match}, nil
	}
	l.Debug("active window found", "index", match.Index, "end", scheduler.FormatEndTimestamp(match.End))

	path := filepath.Join(o.StateDir, constants.BlocklistFileName)
	if err := blocklist.Write(path, set.ResolveBlocklist(match.Window)); err != nil {
		return Result{Outcome: models.OutcomeFailed, Match: match}, err
	}

	if err := o.Engine.Start(ctx, path, match.End); err != nil {
		return Result{Outcome: models.OutcomeFailed, Match: match, BlocklistPath: path}, err
	}

	return Result{Outcome: models.OutcomeStarted, Match: match, BlocklistPath: path}, nil
}

// record appends the run to history. Failures are logged only.
func (o *Orchestrator) record(ctx context.Context, mode Mode, started time.Time, res Result, runErr error, l *log.Logger) {
	if o.History == nil {
		return
	}

	rec := models.RunRecord{
		Mode:       string(mode),
		StartedAt:  started.Format(time.RFC3339),
		FinishedAt: started.Add(res.Elapsed).Format(time.RFC3339),
		Outcome:    res.Outcome,
	}
	if res.Match.Found {
		idx := res.Match.Index
		end := scheduler.FormatEndTimestamp(res.Match.End)
		rec.WindowIndex = &idx
		rec.BlockEnd = &end
	}
	if runErr != nil && res.Outcome == models.OutcomeFailed {
		rec.Error = runErr.Error()
	}

	if _, err := o.History.Append(ctx, rec); err != nil {
		l.Warn("failed to record run history", "error", err)
	}
}

func (o *Orchestrator) clock() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// localTime converts t into the configured timezone, Local when unset.
func localTime(t time.Time, timezone string) (time.Time, error) {
	loc, err := utils.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, apperrors.Config(fmt.Errorf("invalid timezone %q: %w", timezone, err))
	}
	return t.In(loc), nil
}
