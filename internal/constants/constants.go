package constants

const (
	AppName = "autoblock"
	Version = "v0.3.0"

	// DefaultStateDir holds the persisted run config, blocklist, history and logs
	DefaultStateDir   = "~/.config/autoblock"
	DefaultConfigPath = "~/.config/autoblock/config.json"
	EnvFileName       = "autoblock.env"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// EndTimestampFormat is ISO-8601 with a numeric UTC offset. The engine
	// rejects the "Z" shorthand, so time.RFC3339 is not used.
	EndTimestampFormat = "2006-01-02T15:04:05-07:00"

	// State files
	RunConfigFileName = "run-config.json"
	BlocklistFileName = "blocklist.selfcontrol"
	HistoryFileName   = "history.db"
	LogDirName        = "logs"
	LogFileName       = "autoblock.log"

	// Backup constants
	MaxBackups       = 10
	BackupDirName    = "backups"
	BackupFilePrefix = "run-config-"
	BackupFileSuffix = ".json"

	// Engine constants
	EngineRunningToken    = "YES"
	EngineNotRunningToken = "NO"
	// TimestampEngineMinVersion is the first engine release that understands
	// --is-running and an absolute end date.
	TimestampEngineMinVersion = "4.0.0"
	LegacyDaemonProcessName   = "org.eyebeam.SelfControl"

	// Service registration
	ServiceLabel       = "com.julianstephens.autoblock"
	LaunchDaemonDir    = "/Library/LaunchDaemons"
	SystemdUnitDir     = "/etc/systemd/system"
	SystemdServiceName = "autoblock.service"
	SystemdTimerName   = "autoblock.timer"

	// Exit codes
	ExitOK             = 0
	ExitFatal          = 1
	ExitAlreadyRunning = 2

	// History
	DefaultHistoryLimit = 20
)
