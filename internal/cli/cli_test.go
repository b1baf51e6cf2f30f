package cli

import (
	"bytes"
	"context"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/autoblock/internal/engine"
	apperrors "github.com/julianstephens/autoblock/internal/errors"
	"github.com/julianstephens/autoblock/internal/models"
	"github.com/julianstephens/autoblock/internal/service"
)

type fakeEngine struct {
	running bool
	starts  []time.Time
}

func (e *fakeEngine) Name() string             { return "timestamp" }
func (e *fakeEngine) Version() *semver.Version { return semver.MustParse("4.0.1") }
func (e *fakeEngine) Capabilities() engine.Capabilities {
	return engine.Capabilities{StatusQuery: true}
}

func (e *fakeEngine) IsRunning(context.Context) (bool, error) { return e.running, nil }

func (e *fakeEngine) Start(_ context.Context, _ string, end time.Time) error {
	e.starts = append(e.starts, end)
	return nil
}

type fakeRegistrar struct {
	installed bool
}

func (r *fakeRegistrar) Name() string    { return "launchd" }
func (r *fakeRegistrar) Installed() bool { return r.installed }

func (r *fakeRegistrar) Register(context.Context, models.ScheduleSet) error {
	r.installed = true
	return nil
}

func (r *fakeRegistrar) Unregister(context.Context) error {
	r.installed = false
	return nil
}

type testEnv struct {
	ctx       *Context
	out       *bytes.Buffer
	engine    *fakeEngine
	registrar *fakeRegistrar
}

func asRoot(t *testing.T, euid int) {
	t.Helper()
	orig := geteuidFunc
	geteuidFunc = func() int { return euid }
	t.Cleanup(func() { geteuidFunc = orig })
}

// newTestEnv writes a config with one Monday 09:00-17:00 window. The clock is
// pinned to Monday 2026-10-12 at the given hour, UTC.
func newTestEnv(t *testing.T, hour int) *testEnv {
	t.Helper()
	dir := t.TempDir()

	current, err := user.Current()
	require.NoError(t, err)
	enginePath := filepath.Join(dir, "SelfControl.app")
	require.NoError(t, os.MkdirAll(enginePath, 0755))

	cfg := `{
  "username": "` + current.Username + `",
  "selfcontrol-path": "` + enginePath + `",
  "host-blacklist": ["twitter.com"],
  "timezone": "UTC",
  "block-schedules": [
    {"weekday": 1, "start-hour": 9, "start-minute": 0, "end-hour": 17, "end-minute": 0}
  ]
}`
	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	env := &testEnv{
		out:       &bytes.Buffer{},
		engine:    &fakeEngine{},
		registrar: &fakeRegistrar{},
	}
	env.ctx = &Context{
		Ctx:         context.Background(),
		ConfigPaths: []string{cfgPath},
		StateDir:    filepath.Join(dir, "state"),
		Out:         env.out,
		Now: func() time.Time {
			return time.Date(2026, 10, 12, hour, 0, 0, 0, time.UTC)
		},
		NewRegistrar: func(service.Options) (service.Registrar, error) {
			return env.registrar, nil
		},
		NewEngine: func(context.Context, engine.Options) (engine.Engine, error) {
			return env.engine, nil
		},
	}
	return env
}

func TestRun_RequiresRoot(t *testing.T) {
	asRoot(t, 501)
	env := newTestEnv(t, 10)

	err := (&RunCmd{}).Run(env.ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elevated rights")
}

func TestRun_WithoutInstallIsConfigError(t *testing.T) {
	asRoot(t, 0)
	env := newTestEnv(t, 10)

	err := (&RunCmd{}).Run(env.ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfig(err))
}

func TestInstallThenRun(t *testing.T) {
	asRoot(t, 0)
	env := newTestEnv(t, 8)

	require.NoError(t, (&InstallCmd{}).Run(env.ctx))
	assert.True(t, env.registrar.installed)
	assert.Empty(t, env.engine.starts, "nothing active at 08:00")
	assert.Contains(t, env.out.String(), "installed (launchd)")

	env.ctx.Now = func() time.Time { return time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC) }
	env.out.Reset()
	require.NoError(t, (&RunCmd{}).Run(env.ctx))
	require.Len(t, env.engine.starts, 1)
	assert.Equal(t, time.Date(2026, 10, 12, 17, 0, 0, 0, time.UTC), env.engine.starts[0])
	assert.Contains(t, env.out.String(), "block started")

	env.engine.running = true
	err := (&RunCmd{}).Run(env.ctx)
	require.ErrorIs(t, err, apperrors.ErrAlreadyRunning)
	assert.Equal(t, 2, apperrors.ExitCode(err))

	env.out.Reset()
	require.NoError(t, (&HistoryCmd{Limit: 10}).Run(env.ctx))
	lines := strings.Split(strings.TrimSpace(env.out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "already_running")
	assert.Contains(t, lines[1], "started")
	assert.Contains(t, lines[2], "installed")
}

func TestInstall_StartsActiveWindow(t *testing.T) {
	asRoot(t, 0)
	env := newTestEnv(t, 10)

	require.NoError(t, (&InstallCmd{}).Run(env.ctx))
	require.Len(t, env.engine.starts, 1)
	assert.Contains(t, env.out.String(), "block started")
}

func TestUninstall(t *testing.T) {
	asRoot(t, 0)
	env := newTestEnv(t, 18)

	require.NoError(t, (&UninstallCmd{}).Run(env.ctx))
	assert.Contains(t, env.out.String(), "Nothing to uninstall")

	env.registrar.installed = true
	require.NoError(t, (&UninstallCmd{}).Run(env.ctx))
	assert.False(t, env.registrar.installed)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, 10)

	require.NoError(t, (&StatusCmd{}).Run(env.ctx))
	out := env.out.String()
	assert.Contains(t, out, "schedule #1 (Monday 09:00-17:00)")
	assert.Contains(t, out, "2026-10-12T17:00:00+00:00")
	assert.Contains(t, out, "Mon 2026-10-19 09:00")
	assert.Contains(t, out, "user config (not installed)")
}

func TestStatus_Offline(t *testing.T) {
	env := newTestEnv(t, 18)

	require.NoError(t, (&StatusCmd{Offline: true}).Run(env.ctx))
	out := env.out.String()
	assert.NotContains(t, out, "Running")
	assert.Contains(t, out, "none")
}

func TestValidate(t *testing.T) {
	env := newTestEnv(t, 10)
	require.NoError(t, (&ValidateCmd{}).Run(env.ctx))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"username": "", "block-schedules": []}`), 0644))
	env.ctx.ConfigPaths = []string{bad}

	err := (&ValidateCmd{SkipSystem: true}).Run(env.ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfig(err))
	assert.Contains(t, env.out.String(), "ERROR")
}

func TestBackupRestore(t *testing.T) {
	asRoot(t, 0)
	env := newTestEnv(t, 18)

	require.NoError(t, (&InstallCmd{}).Run(env.ctx))
	require.NoError(t, (&InstallCmd{}).Run(env.ctx))

	backups, err := env.ctx.Backups().ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	env.out.Reset()
	cmd := &BackupRestoreCmd{BackupFile: filepath.Base(backups[0].Path), in: strings.NewReader("n\n")}
	require.NoError(t, cmd.Run(env.ctx))
	assert.Contains(t, env.out.String(), "Restore cancelled")

	cmd = &BackupRestoreCmd{BackupFile: backups[0].Path, Yes: true}
	require.NoError(t, cmd.Run(env.ctx))
	assert.Contains(t, env.out.String(), "Run config restored")

	err = (&BackupRestoreCmd{BackupFile: "missing.json", Yes: true}).Run(env.ctx)
	assert.Error(t, err)
}

func TestDebugPaths(t *testing.T) {
	env := newTestEnv(t, 10)

	require.NoError(t, (&DebugPathsCmd{}).Run(env.ctx))
	out := env.out.String()
	assert.Contains(t, out, filepath.Join(env.ctx.StateDir, "run-config.json"))
	assert.Contains(t, out, filepath.Join(env.ctx.StateDir, "history.db"))
}

func TestDoctor_ReportsMissingInstall(t *testing.T) {
	env := newTestEnv(t, 10)

	require.NoError(t, (&DoctorCmd{}).Run(env.ctx))
	out := env.out.String()
	assert.Contains(t, out, "Config valid: OK")
	assert.Contains(t, out, "Run config installed: WARNING")
	assert.Contains(t, out, "All diagnostics passed!")
}

func TestDoctor_ReportsEngineCapabilities(t *testing.T) {
	env := newTestEnv(t, 10)

	require.NoError(t, (&DoctorCmd{}).Run(env.ctx))
	out := env.out.String()
	assert.Contains(t, out, "timestamp strategy, version 4.0.1; running check: yes, end timestamp: no")
}
