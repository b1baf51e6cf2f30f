package cli

import (
	"context"
	"path/filepath"

	"github.com/julianstephens/autoblock/internal/engine"
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/orchestrator"
	"github.com/julianstephens/autoblock/internal/validation"
)

// InstallCmd validates the config, persists it and registers the periodic run.
type InstallCmd struct{}

func (cmd *InstallCmd) Run(ctx *Context) error {
	if err := requireRoot(); err != nil {
		return err
	}

	set, err := ctx.LoadConfig()
	if err != nil {
		return err
	}

	registrar, err := ctx.Registrar()
	if err != nil {
		return err
	}

	inst := &orchestrator.Installer{
		Validator: validation.New(),
		RunConfig: ctx.RunConfig(),
		Backups:   ctx.Backups(),
		Registrar: registrar,
		NewEngine: func(c context.Context, s models.ScheduleSet) (engine.Engine, error) {
			return ctx.ProbeEngine(c, s)
		},
		StateDir: ctx.StateDir,
		Now:      ctx.Now,
		Logger:   ctx.Logger,
	}
	if hist := ctx.historyOrNil(); hist != nil {
		defer hist.Close()
		inst.History = hist
	}

	res, err := inst.Install(ctx.context(), set)
	for _, w := range res.Validation.Warnings() {
		ctx.printf("%s %s\n", warnStyle.Render("⚠"), w.Description)
	}
	if res.Validation.HasErrors() {
		ctx.println(res.Validation.FormatReport())
	}
	if err != nil {
		return err
	}

	if res.BackupPath != "" {
		ctx.printf("%s previous run config saved as %s\n", mutedStyle.Render("•"), filepath.Base(res.BackupPath))
	}
	ctx.printf("%s installed (%s)\n", okStyle.Render("✓"), registrar.Name())
	if res.Run != nil {
		switch res.Run.Outcome {
		case models.OutcomeStarted:
			ctx.printf("%s block started, ends %s\n", okStyle.Render("✓"), res.Run.Match.End.Format("Mon 15:04"))
		case models.OutcomeAlreadyRunning:
			ctx.println(mutedStyle.Render("A block is already running."))
		}
	}
	return nil
}

// UninstallCmd removes the periodic run. The run config and history stay.
type UninstallCmd struct{}

func (cmd *UninstallCmd) Run(ctx *Context) error {
	if err := requireRoot(); err != nil {
		return err
	}

	registrar, err := ctx.Registrar()
	if err != nil {
		return err
	}
	wasInstalled := registrar.Installed()

	inst := &orchestrator.Installer{Registrar: registrar, Logger: ctx.Logger}
	if err := inst.Uninstall(ctx.context()); err != nil {
		return err
	}

	if wasInstalled {
		ctx.printf("%s uninstalled (%s)\n", okStyle.Render("✓"), registrar.Name())
	} else {
		ctx.println(mutedStyle.Render("Nothing to uninstall."))
	}
	return nil
}
