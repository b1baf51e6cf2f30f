package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/autoblock/internal/constants"
)

var (
	// Logger is the process-wide logger used by CLI code. Components take a
	// *log.Logger explicitly instead of reaching for this.
	Logger *log.Logger
)

// Config holds logger configuration
type Config struct {
	Debug    bool
	StateDir string
}

// New builds a logger writing to a rotating file under the state directory.
func New(cfg Config) (*log.Logger, error) {
	logDir := filepath.Join(cfg.StateDir, constants.LogDirName)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.LogFileName),
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     60, // days
		Compress:   true,
	}

	// Periodic runs are unattended, so info is the floor for the file sink.
	level := log.InfoLevel
	if cfg.Debug {
		level = log.DebugLevel
	}

	var writer io.Writer
	if cfg.Debug {
		writer = io.MultiWriter(os.Stderr, fileWriter)
	} else {
		writer = fileWriter
	}

	return log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          constants.AppName,
	}), nil
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) (*log.Logger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	Logger = l
	return l, nil
}

// Discard returns a logger that drops everything. Used when no sink is wired.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel + 1})
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
