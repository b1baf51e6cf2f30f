// Package engine drives the external blocking engine as a subprocess.
//
// Two generations of the engine are supported. Engines at or above
// constants.TimestampEngineMinVersion answer a status query and accept an
// absolute end timestamp. Older engines only accept a duration, and whether
// a block is in effect is inferred from the running daemon process.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/julianstephens/autoblock/internal/constants"
	"github.com/julianstephens/autoblock/internal/logger"
	"github.com/julianstephens/autoblock/internal/utils"
)

var (
	lookupUserFunc = user.Lookup
	statFunc       = os.Stat
)

// Capabilities describes what an engine generation supports.
type Capabilities struct {
	StatusQuery   bool // answers --is-running
	TimestampStop bool // --start takes an absolute end timestamp
}

// Engine is one invocation strategy for the external blocking engine.
type Engine interface {
	Name() string
	Version() *semver.Version
	Capabilities() Capabilities
	// IsRunning reports whether a block is currently in effect.
	IsRunning(ctx context.Context) (bool, error)
	// Start begins a block using the blocklist at blocklistPath until end.
	Start(ctx context.Context, blocklistPath string, end time.Time) error
}

// Options configures Probe.
type Options struct {
	// Path is the engine application bundle or executable.
	Path string
	// Username is the account the block applies to.
	Username string
	// Legacy forces a strategy when non-nil instead of probing the version.
	Legacy *bool
	Runner Runner
	Logger *log.Logger
	// Now is used by the legacy strategy to turn an end time into minutes.
	Now func() time.Time
}

// Probe resolves the engine executables, queries the engine version and
// selects the matching strategy. It is called once per invocation.
func Probe(ctx context.Context, opts Options) (Engine, error) {
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Logger = logger.OrDiscard(opts.Logger)

	path, err := utils.ExpandPath(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve engine path: %w", err)
	}
	if _, err := statFunc(path); err != nil {
		return nil, fmt.Errorf("engine not found at %s: %w", path, err)
	}

	u, err := lookupUserFunc(opts.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %q: %w", opts.Username, err)
	}

	b := base{
		cli:    cliBinary(path),
		daemon: legacyBinary(path),
		uid:    u.Uid,
		runner: opts.Runner,
		log:    opts.Logger,
	}

	if opts.Legacy != nil {
		if *opts.Legacy {
			opts.Logger.Debug("legacy mode forced by configuration")
			return &legacyEngine{base: b, now: opts.Now}, nil
		}
		opts.Logger.Debug("timestamp mode forced by configuration")
		return &timestampEngine{base: b}, nil
	}

	out, err := opts.Runner.Run(ctx, b.cli, "--version")
	if err != nil {
		opts.Logger.Warn("engine did not report a version, assuming legacy engine", "error", err)
		return &legacyEngine{base: b, now: opts.Now}, nil
	}

	version, err := ParseVersion(string(out))
	if err != nil {
		return nil, err
	}
	b.version = version

	minVersion := semver.MustParse(constants.TimestampEngineMinVersion)
	if version.LessThan(minVersion) {
		opts.Logger.Debug("selected legacy engine", "version", version.String())
		return &legacyEngine{base: b, now: opts.Now}, nil
	}
	opts.Logger.Debug("selected timestamp engine", "version", version.String())
	return &timestampEngine{base: b}, nil
}

// ParseVersion extracts the first semantic version found in the output of
// --version, e.g. "SelfControl CLI 4.0.2 (build 410)".
func ParseVersion(output string) (*semver.Version, error) {
	for _, field := range strings.Fields(output) {
		field = strings.Trim(field, "()[],;")
		if field == "" || !strings.ContainsAny(field[:1], "vV0123456789") {
			continue
		}
		if v, err := semver.NewVersion(field); err == nil {
			return v, nil
		}
	}
	return nil, fmt.Errorf("unparseable engine version output: %q", strings.TrimSpace(output))
}

// cliBinary returns the command line entry point inside an app bundle, or
// path itself when it already names an executable.
func cliBinary(path string) string {
	if strings.HasSuffix(path, ".app") {
		return filepath.Join(path, "Contents", "MacOS", "selfcontrol-cli")
	}
	return path
}

func legacyBinary(path string) string {
	if strings.HasSuffix(path, ".app") {
		return filepath.Join(path, "Contents", "MacOS", constants.LegacyDaemonProcessName)
	}
	return path
}

type base struct {
	cli     string
	daemon  string
	uid     string
	version *semver.Version
	runner  Runner
	log     *log.Logger
}

func (b *base) Version() *semver.Version {
	return b.version
}
