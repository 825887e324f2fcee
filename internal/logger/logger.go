package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"detectserver/internal/config"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      []*os.File
	mu         sync.Mutex
}

// NewLogger creates a Logger writing to stdout/stderr and to per-level files
// under config.LogDirectory.
func NewLogger(config *config.Config) (*Logger, error) {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{}
	writers := make(map[string]io.Writer, 3)
	for _, level := range []string{"info", "warning", "error"} {
		file, err := os.OpenFile(filepath.Join(config.LogDirectory, level+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to open %s log file: %w", level, err)
		}
		l.files = append(l.files, file)
		writers[level] = file
	}

	l.setupLoggers(
		io.MultiWriter(os.Stdout, writers["info"]),
		io.MultiWriter(os.Stdout, writers["warning"]),
		io.MultiWriter(os.Stderr, writers["error"]),
	)
	return l, nil
}

// NewWriterLogger sends every level to w. Used by tools and tests.
func NewWriterLogger(w io.Writer) *Logger {
	l := &Logger{}
	l.setupLoggers(w, w, w)
	return l
}

func (l *Logger) setupLoggers(info, warning, errs io.Writer) {
	l.infoLog = log.New(info, "INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warning, "WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errs, "ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// Close releases the log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
