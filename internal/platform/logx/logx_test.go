// internal/platform/logx/logx_test.go
package logx

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	logger := New()
	if logger == nil {
		t.Fatal("New() should return a logger, got nil")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"dbg", LevelDebug},
		{"  debug  ", LevelDebug},
		{"info", LevelInfo},
		{"inf", LevelInfo},
		{"", LevelInfo}, // empty defaults to Info
		{"warn", LevelWarn},
		{"Warning", LevelWarn},
		{"err", LevelError},
		{"ERROR", LevelError},
		{"garbage", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func newObserved(lvl Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &zapLogger{z: zap.New(core), level: zap.NewAtomicLevelAt(toZap(lvl))}, logs
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, logs := newObserved(LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Err(errors.New("boom"))

	if logs.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", logs.Len())
	}
	entries := logs.All()
	if entries[0].Message != "warn message" {
		t.Errorf("first entry = %q", entries[0].Message)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Errorf("second entry level = %v, want error", entries[1].Level)
	}
}

func TestLogger_WithScopesFields(t *testing.T) {
	logger, logs := newObserved(LevelDebug)

	scoped := logger.With("component", "session")
	scoped.Info("phase started", "phase", "configuring")

	entry := logs.All()[0]
	ctx := entry.ContextMap()
	if ctx["component"] != "session" {
		t.Errorf("component = %v", ctx["component"])
	}
	if ctx["phase"] != "configuring" {
		t.Errorf("phase = %v", ctx["phase"])
	}
}

func TestLogger_OddKeyValues(t *testing.T) {
	logger, logs := newObserved(LevelDebug)

	logger.Info("odd", "lonely")

	if got := logs.All()[0].ContextMap()["lonely"]; got != "(missing)" {
		t.Errorf("lonely = %v, want (missing)", got)
	}
}

func TestLogger_ErrNil(t *testing.T) {
	logger, logs := newObserved(LevelDebug)
	logger.Err(nil)
	if logs.Len() != 0 {
		t.Errorf("Err(nil) should not log")
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	logger, logs := newObserved(LevelDebug)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.With("worker", i).Info("tick")
		}(i)
	}
	wg.Wait()

	if logs.Len() != 50 {
		t.Errorf("expected 50 entries, got %d", logs.Len())
	}
}

func TestNewWithOptions_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxylens.log")
	logger, flush := NewWithOptions(Options{Level: LevelDebug, File: path})

	logger.Info("to file", "k", 1)
	_ = flush()
}
