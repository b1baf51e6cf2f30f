package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/julianstephens/autoblock/internal/cli"
	"github.com/julianstephens/autoblock/internal/constants"
	apperrors "github.com/julianstephens/autoblock/internal/errors"
	"github.com/julianstephens/autoblock/internal/logger"
	"github.com/julianstephens/autoblock/internal/utils"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   []string `help:"Config file path. Repeat to overlay several files." type:"path" default:"${default_config}" env:"AUTOBLOCK_CONFIG"`
	StateDir string   `help:"Directory for the run config, blocklist, history and logs." default:"${default_state_dir}" env:"AUTOBLOCK_STATE_DIR"`
	Debug    bool     `help:"Log at debug level and mirror the log to stderr." env:"AUTOBLOCK_DEBUG"`

	Run       cli.RunCmd       `cmd:"" help:"Start a block if a schedule is active (called periodically)."`
	Install   cli.InstallCmd   `cmd:"" help:"Validate the config, save it and register the periodic run."`
	Uninstall cli.UninstallCmd `cmd:"" help:"Remove the periodic run."`
	Status    cli.StatusCmd    `cmd:"" help:"Show the active schedule, next start and engine state."`
	Validate  cli.ValidateCmd  `cmd:"" help:"Check the config for errors and overlapping schedules."`
	Doctor    cli.DoctorCmd    `cmd:"" help:"Run health checks and diagnostics."`
	History   cli.HistoryCmd   `cmd:"" help:"List recent runs."`
	Backups   cli.BackupsCmd   `cmd:"" help:"Manage run config backups."`
	DebugCmd  cli.DebugCmd     `cmd:"" name:"debug" hidden:"" help:"Debug commands for troubleshooting."`
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic", "value", r, "stack", string(debug.Stack()))
			fmt.Fprintf(os.Stderr, "Error: unexpected failure: %v\n%s", r, debug.Stack())
			os.Exit(constants.ExitFatal)
		}
	}()

	loadEnvFiles()

	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Start content blocks on a recurring weekly schedule"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":           constants.Version,
			"default_config":    constants.DefaultConfigPath,
			"default_state_dir": constants.DefaultStateDir,
		},
	)

	stateDir, err := utils.ExpandPath(CLI.StateDir)
	if err != nil {
		apperrors.Exit(err)
	}

	l, err := logger.Init(logger.Config{Debug: CLI.Debug, StateDir: stateDir})
	if err != nil {
		apperrors.Exit(fmt.Errorf("failed to initialize logger: %w", err))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := &cli.Context{
		Ctx:         rootCtx,
		ConfigPaths: CLI.Config,
		StateDir:    stateDir,
		Logger:      l,
		Out:         os.Stdout,
	}

	l.Debug("command started", "command", ctx.Command(), "state_dir", stateDir)
	err = ctx.Run(appCtx)
	stop()
	apperrors.Exit(err)
}

// loadEnvFiles reads AUTOBLOCK_* defaults from the state dir env file and
// ./.env. Variables already set in the environment win.
func loadEnvFiles() {
	stateDir := os.Getenv("AUTOBLOCK_STATE_DIR")
	if stateDir == "" {
		stateDir = constants.DefaultStateDir
	}
	var files []string
	if dir, err := utils.ExpandPath(stateDir); err == nil {
		files = append(files, filepath.Join(dir, constants.EnvFileName))
	}
	files = append(files, ".env")

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", f, err)
		}
	}
}
