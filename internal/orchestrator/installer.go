package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/autoblock/internal/backup"
	"github.com/julianstephens/autoblock/internal/engine"
	apperrors "github.com/julianstephens/autoblock/internal/errors"
	"github.com/julianstephens/autoblock/internal/logger"
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/scheduler"
	"github.com/julianstephens/autoblock/internal/service"
	"github.com/julianstephens/autoblock/internal/storage"
	"github.com/julianstephens/autoblock/internal/validation"
)

// EngineFactory probes the engine configured in set.
type EngineFactory func(ctx context.Context, set models.ScheduleSet) (engine.Engine, error)

// Installer persists a validated schedule set and registers the periodic run.
type Installer struct {
	Validator *validation.Validator
	RunConfig storage.RunConfigStore
	Backups   *backup.Manager
	Registrar service.Registrar
	NewEngine EngineFactory
	History   storage.HistoryStore
	StateDir  string
	Now       func() time.Time
	Logger    *log.Logger
}

// InstallResult summarises an install.
type InstallResult struct {
	Validation validation.ValidationResult
	BackupPath string
	// Run is set when a window was active and an immediate run was attempted.
	Run *Result
}

// Install validates set, snapshots the previous run config, persists set,
// registers the periodic invocation and starts a block right away when a
// window is active and none is running.
func (i *Installer) Install(ctx context.Context, set models.ScheduleSet) (InstallResult, error) {
	l := logger.OrDiscard(i.Logger)
	var out InstallResult

	out.Validation = i.Validator.Validate(set)
	for _, w := range out.Validation.Warnings() {
		l.Warn(w.Description)
	}
	if err := out.Validation.Err(); err != nil {
		return out, err
	}

	if i.RunConfig.Exists() && i.Backups != nil {
		path, err := i.Backups.CreateBackup()
		if err != nil {
			return out, fmt.Errorf("failed to back up previous run config: %w", err)
		}
		out.BackupPath = path
	}

	if err := i.RunConfig.Save(set); err != nil {
		return out, err
	}
	l.Info("run config saved", "path", i.RunConfig.Path())

	if err := i.Registrar.Register(ctx, set); err != nil {
		return out, fmt.Errorf("failed to register periodic run: %w", err)
	}
	i.recordInstall(ctx, l)

	now, err := localTime(i.clock(), set.Timezone)
	if err != nil {
		return out, err
	}
	if !scheduler.FindActiveWindow(set, now).Found {
		l.Info("installed, no schedule is active right now")
		return out, nil
	}

	eng, err := i.NewEngine(ctx, set)
	if err != nil {
		return out, err
	}
	orch := &Orchestrator{
		Engine:   eng,
		History:  i.History,
		StateDir: i.StateDir,
		Now:      i.Now,
		Logger:   i.Logger,
	}
	res, err := orch.Run(ctx, set, ModeInstall)
	out.Run = &res
	if errors.Is(err, apperrors.ErrAlreadyRunning) {
		return out, nil
	}
	return out, err
}

// Uninstall removes the periodic invocation. The run config is kept.
func (i *Installer) Uninstall(ctx context.Context) error {
	l := logger.OrDiscard(i.Logger)
	if !i.Registrar.Installed() {
		l.Info("nothing to uninstall")
		return nil
	}
	if err := i.Registrar.Unregister(ctx); err != nil {
		return fmt.Errorf("failed to unregister periodic run: %w", err)
	}
	l.Info("periodic run removed", "manager", i.Registrar.Name())
	return nil
}

func (i *Installer) recordInstall(ctx context.Context, l *log.Logger) {
	if i.History == nil {
		return
	}
	ts := i.clock().Format(time.RFC3339)
	rec := models.RunRecord{
		Mode:       string(ModeInstall),
		StartedAt:  ts,
		FinishedAt: ts,
		Outcome:    models.OutcomeInstalled,
	}
	if _, err := i.History.Append(ctx, rec); err != nil {
		l.Warn("failed to record install", "error", err)
	}
}

func (i *Installer) clock() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}
