package errors

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/autoblock/internal/constants"
	"github.com/julianstephens/autoblock/internal/logger"
)

// ErrAlreadyRunning signals that a block is in effect. It is not a failure:
// the process exits with constants.ExitAlreadyRunning.
var ErrAlreadyRunning = errors.New("a block is already running")

// ConfigError marks a configuration problem (bad JSON, missing fields,
// unknown user, missing engine, empty schedule list).
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config wraps err as a ConfigError. A nil err stays nil.
func Config(err error) error {
	if err == nil {
		return nil
	}
	return &ConfigError{Err: err}
}

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...interface{}) error {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// IsConfig reports whether err is or wraps a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return constants.ExitOK
	case errors.Is(err, ErrAlreadyRunning):
		return constants.ExitAlreadyRunning
	default:
		return constants.ExitFatal
	}
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Report prints err for the user and logs it, returning the exit code.
// Configuration errors are printed on their own line under an ERROR:
// heading; the already-running signal is only a notice.
func Report(w io.Writer, err error) int {
	code := ExitCode(err)
	switch {
	case code == constants.ExitOK:
	case code == constants.ExitAlreadyRunning:
		logger.Warn("Block already running, nothing to do")
		fmt.Fprintln(w, err)
	case IsConfig(err):
		logger.Error("Invalid configuration", "error", err)
		fmt.Fprintf(w, "ERROR:\n%v\n", err)
	default:
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintln(w, Format(err))
	}
	return code
}

// Exit reports err on stderr and terminates the process with its exit code.
func Exit(err error) {
	os.Exit(Report(os.Stderr, err))
}
