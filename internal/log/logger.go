package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"dirbuf/internal/errors"

	"github.com/sirupsen/logrus"
)

var (
	isDebug = false
	logger  = NewLogger()
)

// Field is a single structured key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger wraps a logrus entry so fields can be chained with With.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

type options struct {
	out  io.Writer
	json bool
	file string
}

// Option configures a Logger.
type Option func(*options)

// WithOutput sends log output to w.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithJSON switches to JSON formatted entries.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithFile appends log output to the file at path, creating parent
// directories as needed. It takes precedence over WithOutput.
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// NewLogger creates a logger. Without options it writes text to stderr.
func NewLogger(opts ...Option) *Logger {
	o := options{out: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	base := logrus.New()
	base.SetLevel(logrus.DebugLevel)

	var file *os.File
	if o.file != "" {
		if err := os.MkdirAll(filepath.Dir(o.file), 0755); err == nil {
			f, err := os.OpenFile(o.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				file = f
				o.out = f
			}
		}
	}
	base.SetOutput(o.out)

	if o.json {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return &Logger{entry: logrus.NewEntry(base), file: file}
}

// Configure replaces the package logger used by the global functions.
func Configure(opts ...Option) {
	logger = NewLogger(opts...)
}

// Close releases the log file, if any.
func Close() {
	if logger.file != nil {
		logger.file.Close()
	}
}

// SetDebug enables or disables debug entries for every logger.
func SetDebug(debug bool) {
	isDebug = debug
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(data), file: l.file}
}

// WithContext attaches ctx to subsequent entries.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	return &Logger{entry: l.entry.WithContext(ctx), file: l.file}
}

// WithError returns a child logger describing err. Errors from the errors
// package also record their kind and the path or parameter involved.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l.With(F("error", "<nil>"))
	}
	fields := []Field{F("error", err.Error()), F("error_kind", errors.KindOf(err).String())}

	var fileErr *errors.FileError
	if errors.As(err, &fileErr) && fileErr.Path() != "" {
		fields = append(fields, F("path", fileErr.Path()))
	}
	var configErr *errors.ConfigError
	if errors.As(err, &configErr) && configErr.Param() != "" {
		fields = append(fields, F("param", configErr.Param()))
	}
	return l.With(fields...)
}

func (l *Logger) log(skip int, level logrus.Level, msg string) {
	if level == logrus.DebugLevel && !isDebug {
		return
	}
	entry := l.entry
	if _, file, line, ok := runtime.Caller(skip); ok {
		entry = entry.WithField("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
	}
	entry.Log(level, msg)
}

func sprint(args ...interface{}) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}

func (l *Logger) Debug(args ...interface{}) { l.log(2, logrus.DebugLevel, sprint(args...)) }
func (l *Logger) Info(args ...interface{})  { l.log(2, logrus.InfoLevel, sprint(args...)) }
func (l *Logger) Warn(args ...interface{})  { l.log(2, logrus.WarnLevel, sprint(args...)) }
func (l *Logger) Error(args ...interface{}) { l.log(2, logrus.ErrorLevel, sprint(args...)) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(2, logrus.DebugLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(2, logrus.InfoLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(2, logrus.WarnLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(2, logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

// LogWithFields returns the package logger carrying fields.
func LogWithFields(fields ...Field) *Logger {
	return logger.With(fields...)
}

// LogWithError returns the package logger describing err.
func LogWithError(err error) *Logger {
	return logger.WithError(err)
}

// LogError logs err with msg at error level.
func LogError(err error, msg string) {
	logger.WithError(err).log(2, logrus.ErrorLevel, msg)
}

func withArgs(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg+": %v", args...)
}

func Info(format string, args ...interface{}) {
	logger.log(2, logrus.InfoLevel, fmt.Sprintf(format, args...))
}

// Infof logs a formatted informational message
func Infof(format string, args ...interface{}) {
	logger.log(2, logrus.InfoLevel, fmt.Sprintf(format, args...))
}

// Debug logs a message with arguments
func Debug(msg string, args ...interface{}) {
	logger.log(2, logrus.DebugLevel, withArgs(msg, args))
}

// Debugf logs a formatted message
func Debugf(format string, args ...interface{}) {
	logger.log(2, logrus.DebugLevel, fmt.Sprintf(format, args...))
}

// Error logs an error message with arguments
func Error(msg string, args ...interface{}) {
	logger.log(2, logrus.ErrorLevel, withArgs(msg, args))
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	logger.log(2, logrus.ErrorLevel, fmt.Sprintf(format, args...))
}

// Warn logs a warning message with arguments
func Warn(msg string, args ...interface{}) {
	logger.log(2, logrus.WarnLevel, withArgs(msg, args))
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	logger.log(2, logrus.WarnLevel, fmt.Sprintf(format, args...))
}
