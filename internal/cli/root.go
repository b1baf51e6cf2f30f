package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/julianstephens/autoblock/internal/backup"
	"github.com/julianstephens/autoblock/internal/config"
	"github.com/julianstephens/autoblock/internal/constants"
	"github.com/julianstephens/autoblock/internal/engine"
	"github.com/julianstephens/autoblock/internal/logger"
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/service"
	"github.com/julianstephens/autoblock/internal/storage"
)

var (
	geteuidFunc    = os.Geteuid
	executableFunc = os.Executable
)

// Context carries everything a command needs. It is built once in main.
type Context struct {
	Ctx         context.Context
	ConfigPaths []string
	StateDir    string
	Logger      *log.Logger
	Out         io.Writer
	Now         func() time.Time

	// NewRegistrar and NewEngine default to the real implementations.
	NewRegistrar func(opts service.Options) (service.Registrar, error)
	NewEngine    func(ctx context.Context, opts engine.Options) (engine.Engine, error)
}

func (c *Context) context() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}

func (c *Context) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Context) log() *log.Logger {
	return logger.OrDiscard(c.Logger)
}

// LoadConfig reads and merges the user's config files.
func (c *Context) LoadConfig() (models.ScheduleSet, error) {
	paths := c.ConfigPaths
	if len(paths) == 0 {
		paths = []string{constants.DefaultConfigPath}
	}
	return config.Load(paths...)
}

// RunConfig returns the store holding the installed schedule set.
func (c *Context) RunConfig() *storage.JSONRunConfigStore {
	return storage.NewJSONRunConfigStore(c.StateDir)
}

// Backups returns the backup manager for the run config.
func (c *Context) Backups() *backup.Manager {
	return backup.NewManager(c.RunConfig().Path(), c.Logger)
}

// OpenHistory opens the run history database. Callers close it.
func (c *Context) OpenHistory() (*storage.SQLiteHistoryStore, error) {
	store := storage.NewSQLiteHistoryStore(filepath.Join(c.StateDir, constants.HistoryFileName), c.Logger)
	if err := store.Open(c.context()); err != nil {
		return nil, err
	}
	return store, nil
}

// ProbeEngine selects the engine strategy for set.
func (c *Context) ProbeEngine(ctx context.Context, set models.ScheduleSet) (engine.Engine, error) {
	probe := c.NewEngine
	if probe == nil {
		probe = engine.Probe
	}
	return probe(ctx, engine.Options{
		Path:     set.EnginePath,
		Username: set.Username,
		Legacy:   set.LegacyMode,
		Logger:   c.Logger,
		Now:      c.Now,
	})
}

// Registrar returns the service registrar for this platform.
func (c *Context) Registrar() (service.Registrar, error) {
	exe, err := executableFunc()
	if err != nil {
		return nil, fmt.Errorf("failed to locate autoblock executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	newRegistrar := c.NewRegistrar
	if newRegistrar == nil {
		newRegistrar = service.New
	}
	return newRegistrar(service.Options{
		Executable: exe,
		StateDir:   c.StateDir,
		Logger:     c.Logger,
	})
}

// requireRoot fails unless the process runs with elevated rights.
func requireRoot() error {
	if geteuidFunc() != 0 {
		return fmt.Errorf("please run with elevated rights, e.g. sudo %s", constants.AppName)
	}
	return nil
}

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Width(14).Foreground(lipgloss.Color("245"))
)

func (c *Context) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

func (c *Context) field(label, value string) {
	c.println(labelStyle.Render(label) + value)
}
