package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	// Test creating a new error
	err := New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())

	// Test creating a new formatted error
	err = Newf("formatted %s", "error")
	assert.NotNil(t, err)
	assert.Equal(t, "formatted error", err.Error())

	// Check that the error is an ApplicationError
	var appErr *ApplicationError
	assert.True(t, As(err, &appErr))
	assert.Equal(t, "formatted error", appErr.Error())
	assert.Equal(t, Unknown, appErr.Kind())
}

func TestWrapping(t *testing.T) {
	// Test wrapping an error
	origErr := New("original error")
	wrappedErr := Wrap(origErr, "wrapped")
	assert.NotNil(t, wrappedErr)
	assert.Equal(t, "wrapped: original error", wrappedErr.Error())

	// Test unwrapping
	unwrappedErr := Unwrap(wrappedErr)
	assert.Equal(t, origErr, unwrappedErr)

	// Test wrapped formatted error
	wrappedFormatted := Wrapf(origErr, "formatted %s", "wrapper")
	assert.NotNil(t, wrappedFormatted)
	assert.Equal(t, "formatted wrapper: original error", wrappedFormatted.Error())

	// Test wrapping nil returns nil
	assert.Nil(t, Wrap(nil, "wrapper"))
	assert.Nil(t, Wrapf(nil, "formatted %s", "wrapper"))

	// Test deeper wrapping
	deepWrapped := Wrap(wrappedErr, "deeper")
	assert.Equal(t, "deeper: wrapped: original error", deepWrapped.Error())

	// Test Is function
	assert.True(t, Is(wrappedErr, origErr))
	assert.True(t, Is(deepWrapped, origErr))
}

func TestFileError(t *testing.T) {
	// Test creating a file error
	fileErr := NewFileError("cannot access", "/path/to/file", FileAccessDenied, nil)
	assert.NotNil(t, fileErr)
	assert.Equal(t, "cannot access: /path/to/file", fileErr.Error())
	assert.Equal(t, "/path/to/file", fileErr.Path())
	assert.Equal(t, FileAccessDenied, fileErr.Kind())

	// Test with wrapped error
	origErr := fmt.Errorf("permission denied")
	fileErr = NewFileError("cannot access", "/path/to/file", FileAccessDenied, origErr)
	assert.Equal(t, "cannot access: /path/to/file: permission denied", fileErr.Error())
	assert.Equal(t, origErr, Unwrap(fileErr))

	// Test predefined errors
	assert.Equal(t, "file not found", ErrFileNotFound.Error())
	assert.Equal(t, FileNotFound, ErrFileNotFound.Kind())

	// Test IsFileNotFound predicate
	notFoundErr := NewFileError("file not found", "/missing/file", FileNotFound, nil)
	assert.True(t, IsFileNotFound(notFoundErr))
	assert.False(t, IsFileNotFound(fileErr)) // This is FileAccessDenied

	// Test IsFileAccessDenied predicate
	assert.True(t, IsFileAccessDenied(fileErr))
	assert.False(t, IsFileAccessDenied(notFoundErr))

	// Test As for FileError
	var fe *FileError
	assert.True(t, As(fileErr, &fe))
	assert.Equal(t, "/path/to/file", fe.Path())
}

func TestConfigError(t *testing.T) {
	// Test creating a config error
	configErr := NewConfigError("invalid value", "timeout", InvalidConfig, nil)
	assert.NotNil(t, configErr)
	assert.Equal(t, "invalid value: timeout", configErr.Error())
	assert.Equal(t, "timeout", configErr.Param())
	assert.Equal(t, InvalidConfig, configErr.Kind())

	// Test with wrapped error
	origErr := fmt.Errorf("value out of range")
	configErr = NewConfigError("invalid value", "timeout", InvalidConfig, origErr)
	assert.Equal(t, "invalid value: timeout: value out of range", configErr.Error())
	assert.Equal(t, origErr, Unwrap(configErr))

	// Test predefined errors
	assert.Equal(t, "invalid configuration", ErrInvalidConfig.Error())
	assert.Equal(t, InvalidConfig, ErrInvalidConfig.Kind())

	// Test IsInvalidConfig predicate
	assert.True(t, IsInvalidConfig(configErr))
	assert.False(t, IsInvalidConfig(New("some other error")))

	// Test As for ConfigError
	var ce *ConfigError
	assert.True(t, As(configErr, &ce))
	assert.Equal(t, "timeout", ce.Param())
}

func TestErrorChains(t *testing.T) {
	// Create a chain of errors
	baseErr := errors.New("base error")
	fileErr := NewFileError("file error", "/path/to/file", FileNotFound, baseErr)
	configErr := NewConfigError("config error", "ignore", InvalidConfig, fileErr)
	wrapped := Wrap(configErr, "load")

	// Test complete error message
	assert.Equal(t, "load: config error: ignore: file error: /path/to/file: base error", wrapped.Error())

	// Test Is function through the chain
	assert.True(t, Is(wrapped, baseErr))
	assert.True(t, Is(wrapped, fileErr))
	assert.True(t, Is(wrapped, configErr))

	// Test As function through the chain
	var fe *FileError
	assert.True(t, As(wrapped, &fe))
	assert.Equal(t, "/path/to/file", fe.Path())

	var ce *ConfigError
	assert.True(t, As(wrapped, &ce))
	assert.Equal(t, "ignore", ce.Param())

	// Test error predicates through the chain
	assert.True(t, IsFileNotFound(wrapped))
	assert.True(t, IsInvalidConfig(wrapped))
}

func TestControllerKinds(t *testing.T) {
	notDir := NewNotADirectory("/etc/hosts")
	assert.Equal(t, "not a directory: /etc/hosts", notDir.Error())
	assert.True(t, IsNotADirectory(notDir))
	assert.False(t, IsStagingConflict(notDir))

	conflict := NewStagingConflict("/d")
	assert.True(t, IsStagingConflict(conflict))
	assert.Contains(t, conflict.Error(), "/d")

	mismatch := NewRowCountMismatch(3, 2)
	assert.True(t, IsRowCountMismatch(mismatch))
	assert.Equal(t, EditRowCountMismatch, KindOf(mismatch))

	cause := fmt.Errorf("permission denied")
	backend := NewBackendError("move", "/d/b", cause)
	assert.Equal(t, "move failed: /d/b: permission denied", backend.Error())
	assert.True(t, IsBackendError(backend))
	assert.True(t, Is(backend, cause))
	assert.Equal(t, "/d/b", backend.Path())

	assert.Equal(t, Unknown, KindOf(fmt.Errorf("plain")))
	assert.False(t, IsKind(nil, Unknown))
}

func TestJoin(t *testing.T) {
	assert.Nil(t, Join(nil, nil))

	first := NewBackendError("copy", "/a", fmt.Errorf("exists"))
	second := NewBackendError("move", "/b", fmt.Errorf("busy"))
	joined := Join(nil, first, second)
	assert.True(t, IsBackendError(joined))
	assert.Contains(t, joined.Error(), "copy failed: /a: exists")
	assert.Contains(t, joined.Error(), "move failed: /b: busy")

	var fe *FileError
	assert.True(t, As(joined, &fe))
	assert.Equal(t, "/a", fe.Path())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "staging_conflict", StagingConflict.String())
	assert.Equal(t, "kind(99)", ErrorKind(99).String())
}

func TestBackendErrorClassification(t *testing.T) {
	_, statErr := os.Lstat("/definitely/missing/entry")
	missing := NewBackendError("move", "/definitely/missing/entry", statErr)
	assert.True(t, IsBackendError(missing))
	assert.True(t, IsFileNotFound(missing))
	assert.False(t, IsFileAccessDenied(missing))
	assert.True(t, Is(missing, fs.ErrNotExist))
	assert.Contains(t, missing.Error(), "move failed: /definitely/missing/entry: file not found")

	denied := NewBackendError("remove", "/root", fmt.Errorf("unlink: %w", fs.ErrPermission))
	assert.True(t, IsBackendError(denied))
	assert.True(t, IsFileAccessDenied(denied))
	assert.False(t, IsFileNotFound(denied))

	joined := Join(NewBackendError("copy", "/a", fmt.Errorf("busy")), missing)
	assert.True(t, IsFileNotFound(joined))
	assert.False(t, IsFileNotFound(NewBackendError("copy", "/a", fmt.Errorf("busy"))))

	// already classified causes are kept
	kept := NewBackendError("list", "x", NewFileError("not a remote path", "x", InvalidPath, nil))
	assert.True(t, IsInvalidPath(kept))
	assert.True(t, Is(kept, ErrInvalidPath))
	assert.False(t, Is(kept, ErrInvalidConfig))
}
