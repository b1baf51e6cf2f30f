package cli

import (
	"fmt"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/julianstephens/autoblock/internal/constants"
)

type DebugCmd struct {
	Paths      DebugPathsCmd      `cmd:"" help:"Show state file paths."`
	DumpConfig DebugDumpConfigCmd `cmd:"" help:"Dump the merged config as JSON."`
}

type DebugPathsCmd struct{}

func (cmd *DebugPathsCmd) Run(ctx *Context) error {
	output := map[string]interface{}{
		"config":     ctx.ConfigPaths,
		"state_dir":  ctx.StateDir,
		"run_config": ctx.RunConfig().Path(),
		"blocklist":  filepath.Join(ctx.StateDir, constants.BlocklistFileName),
		"history":    filepath.Join(ctx.StateDir, constants.HistoryFileName),
		"backups":    ctx.Backups().GetBackupDir(),
		"log":        filepath.Join(ctx.StateDir, constants.LogDirName, constants.LogFileName),
	}

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	ctx.println(string(jsonBytes))
	return nil
}

type DebugDumpConfigCmd struct {
	Installed bool `help:"Dump the installed run config instead of the user config."`
}

func (cmd *DebugDumpConfigCmd) Run(ctx *Context) error {
	var (
		set interface{}
		err error
	)
	if cmd.Installed {
		set, err = ctx.RunConfig().Load()
	} else {
		set, err = ctx.LoadConfig()
	}
	if err != nil {
		return err
	}

	jsonBytes, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	ctx.println(string(jsonBytes))
	return nil
}
