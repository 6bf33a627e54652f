// Package log 提供全局日志工具，底层使用 zap。
//
// 业务代码用包级函数（Infof/Warnf…）输出非结构化日志；
// 热路径与需要字段的地方用 L() 返回的结构化 *zap.Logger。
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 日志级别
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// 日志格式
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

var logger = newLogger(FormatConsole)

// Default 是包级函数使用的 SugaredLogger，可替换（测试中常用 zap.NewNop().Sugar()）。
var Default Logger = logger.WithOptions(zap.AddCallerSkip(1)).Sugar()

// Logger 是包级函数依赖的最小接口，*zap.SugaredLogger 满足它。
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

func newLogger(format string) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(encoderConfig)
	if format == FormatJSON {
		enc = zapcore.NewJSONEncoder(encoderConfig)
	}
	return zap.New(
		zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), zapLevel),
		zap.AddCaller(),
	)
}

// Setup 按配置重建全局 logger（level: debug/info/warn/error，format: console/json）。
func Setup(level, format string) {
	SetLevel(level)
	logger = newLogger(format)
	Default = logger.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// SetLevel 设置日志级别，未识别的级别按 info 处理。
func SetLevel(level string) {
	switch level {
	case LevelDebug:
		zapLevel.SetLevel(zapcore.DebugLevel)
	case LevelWarn:
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	default:
		zapLevel.SetLevel(zapcore.InfoLevel)
	}
}

// L 返回全局结构化 logger。
func L() *zap.Logger { return logger }

// Named 返回带名字的子 logger，例如 log.Named("registry")。
func Named(name string) *zap.Logger { return logger.Named(name) }

func Debugf(format string, args ...any) { Default.Debugf(format, args...) }
func Infof(format string, args ...any)  { Default.Infof(format, args...) }
func Warnf(format string, args ...any)  { Default.Warnf(format, args...) }
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }
