// internal/platform/logx/logx.go
package logx

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// EnvLevel is the environment variable read by New.
const EnvLevel = "PROXYLENS_LOG_LEVEL"

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the lower-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Err(err error, kv ...any)
	With(kv ...any) Logger
}

// Options configures the zap backend.
type Options struct {
	Level Level
	// File enables a rotating file sink in addition to stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	// JSON switches the stderr encoder from console to JSON.
	JSON bool
}

type zapLogger struct {
	z     *zap.Logger
	level zap.AtomicLevel
}

// New builds a console logger on stderr, level taken from PROXYLENS_LOG_LEVEL.
func New() Logger {
	return NewWithLevel(ParseLevel(os.Getenv(EnvLevel)))
}

// NewWithLevel creates a logger with a specific log level
func NewWithLevel(lvl Level) Logger {
	l, _ := NewWithOptions(Options{Level: lvl})
	return l
}

// NewSilent creates a logger that only outputs errors (silent mode for UI)
func NewSilent() Logger {
	return NewWithLevel(LevelError)
}

// NewWithOptions builds the logger and returns a sync func that flushes file output.
func NewWithOptions(opts Options) (Logger, func() error) {
	level := zap.NewAtomicLevelAt(toZap(opts.Level))

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.EncodeCaller = nil

	var encoder zapcore.Encoder
	if opts.JSON {
		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(jsonCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		sink := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 20),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 14),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(sink), level))
	}

	z := zap.New(zapcore.NewTee(cores...))
	return &zapLogger{z: z, level: level}, z.Sync
}

func (s *zapLogger) With(kv ...any) Logger {
	return &zapLogger{z: s.z.With(fields(kv...)...), level: s.level}
}

func (s *zapLogger) Debug(msg string, kv ...any) { s.log(zapcore.DebugLevel, msg, kv...) }
func (s *zapLogger) Info(msg string, kv ...any)  { s.log(zapcore.InfoLevel, msg, kv...) }
func (s *zapLogger) Warn(msg string, kv ...any)  { s.log(zapcore.WarnLevel, msg, kv...) }
func (s *zapLogger) Err(err error, kv ...any) {
	if err == nil {
		return
	}
	s.log(zapcore.ErrorLevel, err.Error(), append(kv, "error", err)...)
}

func (s *zapLogger) log(l zapcore.Level, msg string, kv ...any) {
	if !s.level.Enabled(l) {
		return
	}
	if ce := s.z.Check(l, msg); ce != nil {
		ce.Write(fields(kv...)...)
	}
}

func fields(kv ...any) []zap.Field {
	out := make([]zap.Field, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprintf("%v", kv[i])
		if i+1 >= len(kv) {
			out = append(out, zap.String(key, "(missing)"))
			continue
		}
		if err, ok := kv[i+1].(error); ok {
			out = append(out, zap.NamedError(key, err))
			continue
		}
		out = append(out, zap.Any(key, kv[i+1]))
	}
	return out
}

// ParseLevel maps a level name to a Level; unknown names mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dbg":
		return LevelDebug
	case "info", "inf", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "err", "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func toZap(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
