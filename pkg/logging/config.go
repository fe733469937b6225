package logging

const (
	BaseDataDir = "data"
	LogsDir     = "logs"
	TimeFormat  = "2006-01-02 15:04:05"
)

type ProcessName string

const (
	NodeProcess ProcessName = "avsnode"
	CLIProcess  ProcessName = "cli"
	TestProcess ProcessName = "test"
)

type LoggerConfig struct {
	LogDir        string
	ProcessName   ProcessName
	IsDevelopment bool
	// Rotation settings, forwarded to lumberjack.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// DisableFile keeps output on the console only.
	DisableFile bool
}

func NewDefaultConfig(processName ProcessName) LoggerConfig {
	return LoggerConfig{
		LogDir:        BaseDataDir,
		ProcessName:   processName,
		IsDevelopment: true,
		MaxSizeMB:     50,
		MaxBackups:    5,
		MaxAgeDays:    14,
		Compress:      true,
	}
}
