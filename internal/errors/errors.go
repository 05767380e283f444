// Package errors provides standardized error handling for dirbuf.
// It defines the error kinds the buffer controller reports to the user, the
// file and config error types, and helpers for creating, wrapping and
// classifying them.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// Common error constants for frequently occurring errors. Is matches any
// error of the same kind against them.
var (
	ErrFileNotFound  = NewFileError("file not found", "", FileNotFound, nil)
	ErrFileAccess    = NewFileError("file access denied", "", FileAccessDenied, nil)
	ErrInvalidPath   = NewFileError("invalid file path", "", InvalidPath, nil)
	ErrInvalidConfig = NewConfigError("invalid configuration", "", InvalidConfig, nil)
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// File error kinds
	FileNotFound
	FileAccessDenied
	InvalidPath
	FileOperationFailed
	// Config error kinds
	InvalidConfig
	ConfigNotFound
	// Buffer controller kinds
	NotADirectory
	StagingConflict
	EditRowCountMismatch
	BackendOperationFailed
)

var kindNames = map[ErrorKind]string{
	Unknown:                "unknown",
	FileNotFound:           "file_not_found",
	FileAccessDenied:       "file_access_denied",
	InvalidPath:            "invalid_path",
	FileOperationFailed:    "file_operation_failed",
	InvalidConfig:          "invalid_config",
	ConfigNotFound:         "config_not_found",
	NotADirectory:          "not_a_directory",
	StagingConflict:        "staging_conflict",
	EditRowCountMismatch:   "edit_row_count_mismatch",
	BackendOperationFailed: "backend_operation_failed",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// Is reports whether target is the common error for e's kind.
func (e *ApplicationError) Is(target error) bool {
	switch target {
	case ErrFileNotFound, ErrFileAccess, ErrInvalidPath, ErrInvalidConfig:
		return target.(kinded).Kind() == e.kind
	}
	return false
}

// FileError represents errors related to file operations
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// Error returns the file error message
func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// Join aggregates the failures of a batch operation. Nil errors are dropped
// and nil is returned when nothing failed.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// NewNotADirectory reports a navigation target that is not a directory.
func NewNotADirectory(path string) *FileError {
	return NewFileError("not a directory", path, NotADirectory, nil)
}

// NewStagingConflict reports a cut or copy requested while another
// directory's staged set is still waiting to be pasted.
func NewStagingConflict(source string) error {
	return &ApplicationError{
		msg:  fmt.Sprintf("paste the entries staged in %s before staging again", source),
		kind: StagingConflict,
	}
}

// NewRowCountMismatch reports an edit-mode save that added or removed lines.
func NewRowCountMismatch(rows, lines int) error {
	return &ApplicationError{
		msg:  fmt.Sprintf("edit mode can not add or delete entries (%d rows, %d lines)", rows, lines),
		kind: EditRowCountMismatch,
	}
}

// NewBackendError wraps a storage failure with the operation and offending
// path. Missing entries and permission failures are classified below it so
// IsFileNotFound and IsFileAccessDenied see through the backend error.
func NewBackendError(op, path string, err error) *FileError {
	switch {
	case err == nil || KindOf(err) != Unknown:
	case errors.Is(err, fs.ErrNotExist):
		err = NewFileError("file not found", "", FileNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		err = NewFileError("file access denied", "", FileAccessDenied, err)
	}
	return NewFileError(op+" failed", path, BackendOperationFailed, err)
}

type kinded interface {
	Kind() ErrorKind
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return Unknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFileNotFound checks if the error chain holds a file not found error
func IsFileNotFound(err error) bool {
	return errors.Is(err, ErrFileNotFound)
}

// IsFileAccessDenied checks if the error chain holds a file access denied error
func IsFileAccessDenied(err error) bool {
	return errors.Is(err, ErrFileAccess)
}

// IsInvalidPath checks if the error chain holds an invalid path error
func IsInvalidPath(err error) bool {
	return errors.Is(err, ErrInvalidPath)
}

// IsInvalidConfig checks if the error chain holds an invalid configuration error
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsNotADirectory checks if the error rejects a non-directory navigation target
func IsNotADirectory(err error) bool {
	return IsKind(err, NotADirectory)
}

// IsStagingConflict checks if the error rejects a conflicting cut or copy
func IsStagingConflict(err error) bool {
	return IsKind(err, StagingConflict)
}

// IsRowCountMismatch checks if the error rejects an edit that changed the row count
func IsRowCountMismatch(err error) bool {
	return IsKind(err, EditRowCountMismatch)
}

// IsBackendError checks if the error comes from a failed storage operation
func IsBackendError(err error) bool {
	return IsKind(err, BackendOperationFailed)
}
