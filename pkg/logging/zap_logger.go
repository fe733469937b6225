package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ZapLogger struct {
	logger      *zap.Logger
	sugarLogger *zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger builds a console logger plus, unless disabled, a rotating file
// logger under <LogDir>/logs/<process>.log.
func NewZapLogger(config LoggerConfig) (*ZapLogger, error) {
	if config.ProcessName == "" {
		return nil, fmt.Errorf("process name is required")
	}
	level := getLogLevel(config.IsDevelopment)

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder(config.IsDevelopment), zapcore.Lock(os.Stdout), level),
	}

	if !config.DisableFile {
		logDir := config.LogDir
		if logDir == "" {
			logDir = BaseDataDir
		}
		logDir = filepath.Join(logDir, LogsDir)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, string(config.ProcessName)+".log"),
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   config.Compress,
		}
		cores = append(cores, zapcore.NewCore(fileEncoder(), zapcore.AddSync(rotator), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).
		Named(string(config.ProcessName))

	return &ZapLogger{
		logger:      logger,
		sugarLogger: logger.Sugar(),
	}, nil
}

func getLogLevel(isDevelopment bool) zapcore.Level {
	if isDevelopment {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func consoleEncoder(isDevelopment bool) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "process",
		CallerKey:        "caller",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(TimeFormat),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeLevel:      customLevelEncoder,
		ConsoleSeparator: " | ",
	}
	if isDevelopment {
		cfg.EncodeLevel = customColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func fileEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func levelTag(l zapcore.Level) string {
	switch l {
	case zapcore.DebugLevel:
		return "DBG"
	case zapcore.InfoLevel:
		return "INF"
	case zapcore.WarnLevel:
		return "WRN"
	case zapcore.ErrorLevel:
		return "ERR"
	case zapcore.FatalLevel:
		return "FTL"
	default:
		return l.CapitalString()
	}
}

func customLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(levelTag(l))
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
)

func customColorLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color := colorReset
	switch l {
	case zapcore.DebugLevel:
		color = colorBlue
	case zapcore.InfoLevel:
		color = colorGreen
	case zapcore.WarnLevel:
		color = colorYellow
	case zapcore.ErrorLevel:
		color = colorRed
	case zapcore.FatalLevel:
		color = colorPurple
	}
	enc.AppendString(color + levelTag(l) + colorReset)
}

func (z *ZapLogger) Debug(msg string, tags ...any) { z.sugarLogger.Debugw(msg, tags...) }
func (z *ZapLogger) Info(msg string, tags ...any)  { z.sugarLogger.Infow(msg, tags...) }
func (z *ZapLogger) Warn(msg string, tags ...any)  { z.sugarLogger.Warnw(msg, tags...) }
func (z *ZapLogger) Error(msg string, tags ...any) { z.sugarLogger.Errorw(msg, tags...) }
func (z *ZapLogger) Fatal(msg string, tags ...any) { z.sugarLogger.Fatalw(msg, tags...) }

func (z *ZapLogger) Debugf(template string, args ...interface{}) {
	z.sugarLogger.Debugf(template, args...)
}

func (z *ZapLogger) Infof(template string, args ...interface{}) {
	z.sugarLogger.Infof(template, args...)
}

func (z *ZapLogger) Warnf(template string, args ...interface{}) {
	z.sugarLogger.Warnf(template, args...)
}

func (z *ZapLogger) Errorf(template string, args ...interface{}) {
	z.sugarLogger.Errorf(template, args...)
}

func (z *ZapLogger) Fatalf(template string, args ...interface{}) {
	z.sugarLogger.Fatalf(template, args...)
}

func (z *ZapLogger) With(tags ...any) Logger {
	sugar := z.sugarLogger.With(tags...)
	return &ZapLogger{
		logger:      sugar.Desugar(),
		sugarLogger: sugar,
	}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
