package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	config := &Config{
		Level:  slog.LevelDebug,
		Format: "json",
	}

	logger := New(config)
	if logger == nil {
		t.Fatal("Expected logger to be created")
	}

	if logger.Logger == nil {
		t.Fatal("Expected internal slog.Logger to be set")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Level != slog.LevelInfo {
		t.Errorf("Expected default level Info, got %v", config.Level)
	}

	if config.Format != "json" {
		t.Errorf("Expected default format json, got %s", config.Format)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}

	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithField(t *testing.T) {
	logger := New(DefaultConfig())
	newLogger := logger.WithField("key", "value")

	if newLogger == logger {
		t.Error("WithField should return a new logger instance")
	}
}

func TestWithError(t *testing.T) {
	logger := New(DefaultConfig())

	newLogger := logger.WithError(nil)
	if newLogger != logger {
		t.Error("WithError(nil) should return same logger")
	}

	err := &testError{msg: "test error"}
	newLogger = logger.WithError(err)
	if newLogger == logger {
		t.Error("WithError should return a new logger instance")
	}
}

func TestDerivedLoggers(t *testing.T) {
	logger := New(DefaultConfig())

	if logger.Component("resolver") == logger {
		t.Error("Component should return a new logger instance")
	}
	if logger.Source("exchange") == logger {
		t.Error("Source should return a new logger instance")
	}
	if logger.Strategy("balanced") == logger {
		t.Error("Strategy should return a new logger instance")
	}
	if logger.Pair("SOL", "USDC") == logger {
		t.Error("Pair should return a new logger instance")
	}
}

func TestGlobalLogger(t *testing.T) {
	defaultLog := Default()
	if defaultLog == nil {
		t.Fatal("Default logger should not be nil")
	}

	customLogger := New(&Config{
		Level:  slog.LevelDebug,
		Format: "text",
	})

	SetDefault(customLogger)
	if Default() != customLogger {
		t.Error("SetDefault should update the global logger")
	}

	// Restore original default for other tests
	SetDefault(defaultLog)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	logger := &Logger{
		Logger: slog.New(handler),
	}

	logger.Info("test message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Error("Output should contain the log message")
	}

	var jsonData map[string]any
	if err := json.Unmarshal(buf.Bytes(), &jsonData); err != nil {
		t.Errorf("Output should be valid JSON: %v", err)
	}

	if jsonData["key"] != "value" {
		t.Errorf("Expected key='value', got %v", jsonData["key"])
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
