package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dirbuf/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	l.Info("info message")
	assert.Contains(t, buf.String(), "level=info")
	assert.Contains(t, buf.String(), "info message")
	buf.Reset()

	l.Warn("warn message")
	assert.Contains(t, buf.String(), "level=warning")
	assert.Contains(t, buf.String(), "warn message")
	buf.Reset()

	l.Error("error message")
	assert.Contains(t, buf.String(), "level=error")
	assert.Contains(t, buf.String(), "error message")
	buf.Reset()

	l.Infof("formatted %s", "message")
	assert.Contains(t, buf.String(), "formatted message")
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	SetDebug(false)
	l.Debug("debug message")
	assert.Empty(t, buf.String())

	SetDebug(true)
	defer SetDebug(false)
	l.Debug("debug message")
	assert.Contains(t, buf.String(), "level=debug")
	assert.Contains(t, buf.String(), "debug message")
	buf.Reset()

	l.Debugf("formatted %s", "debug")
	assert.Contains(t, buf.String(), "formatted debug")
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	l.With(F("key1", "value1"), F("key2", 123)).Info("structured message")
	output := buf.String()
	assert.Contains(t, output, "structured message")
	assert.Contains(t, output, "key1=value1")
	assert.Contains(t, output, "key2=123")
	buf.Reset()

	l.With(F("key1", "value1")).With(F("key2", 123)).Info("chained fields")
	output = buf.String()
	assert.Contains(t, output, "key1=value1")
	assert.Contains(t, output, "key2=123")
}

func TestJSONLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf), WithJSON())

	l.With(F("dir", "/tmp"), F("rows", 3)).Info("json message")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "json message", entry["message"])
	assert.Equal(t, "/tmp", entry["dir"])
	assert.Equal(t, float64(3), entry["rows"])
	assert.Contains(t, entry, "timestamp")
	assert.Contains(t, entry, "caller")
}

func TestErrorLogging(t *testing.T) {
	var buf bytes.Buffer
	original := logger
	Configure(WithOutput(&buf))
	defer func() { logger = original }()

	LogWithFields(F("error", fmt.Errorf("standard error").Error())).Error("error occurred")
	assert.Contains(t, buf.String(), "standard error")
	buf.Reset()

	fileErr := errors.NewFileError("file error", "/path/to/file", errors.FileNotFound, nil)
	LogWithError(fileErr).Error("file error occurred")
	output := buf.String()
	assert.Contains(t, output, "file error occurred")
	assert.Contains(t, output, "file error: /path/to/file")
	assert.Contains(t, output, "path=/path/to/file")
	assert.Contains(t, output, "error_kind=file_not_found")
	buf.Reset()

	backendErr := errors.NewBackendError("move", "/d/b", fmt.Errorf("busy"))
	LogError(backendErr, "paste failed")
	output = buf.String()
	assert.Contains(t, output, "paste failed")
	assert.Contains(t, output, "path=/d/b")
	assert.Contains(t, output, "error_kind=backend_operation_failed")
	buf.Reset()

	configErr := errors.NewConfigError("config error", "cache_dir", errors.InvalidConfig, nil)
	LogWithError(configErr).Warn("config")
	assert.Contains(t, buf.String(), "param=cache_dir")
}

func TestNilErrorHandling(t *testing.T) {
	var buf bytes.Buffer
	original := logger
	Configure(WithOutput(&buf))
	defer func() { logger = original }()

	LogWithError(nil).Error("nil error test")
	assert.Contains(t, buf.String(), "nil error test")
	assert.Contains(t, buf.String(), `error="<nil>"`)
}

func TestCallerInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	l.Info("caller test")
	assert.Contains(t, buf.String(), "logger_test.go:")
	buf.Reset()

	original := logger
	Configure(WithOutput(&buf))
	defer func() { logger = original }()
	Warnf("global %s", "caller")
	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dirbuf.log")

	original := logger
	Configure(WithFile(path))
	defer func() {
		Close()
		logger = original
	}()

	Info("file test %s", "message")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "file test message")
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	l.WithContext(nil).Info("context message")
	assert.Contains(t, buf.String(), "context message")
}

func TestGlobalDebugArgs(t *testing.T) {
	var buf bytes.Buffer
	original := logger
	Configure(WithOutput(&buf))
	defer func() { logger = original }()

	SetDebug(true)
	defer SetDebug(false)

	Debug("listing")
	assert.Contains(t, buf.String(), "msg=listing")
	assert.NotContains(t, buf.String(), "MISSING")
	buf.Reset()

	Debug("listing", "/tmp")
	assert.Contains(t, buf.String(), "listing: /tmp")
}

func TestGlobalInfof(t *testing.T) {
	var buf bytes.Buffer
	original := logger
	Configure(WithOutput(&buf))
	defer func() { logger = original }()

	Infof("skipping %s, %s already exists", "/a", "/b/a")
	assert.Contains(t, buf.String(), "level=info")
	assert.Contains(t, buf.String(), "skipping /a, /b/a already exists")
	assert.Contains(t, buf.String(), "logger_test.go:")
}
