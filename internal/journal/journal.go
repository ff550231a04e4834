// Package journal writes timestamped, severity-tagged lines to append-only
// log files. Each named journal (activity, startup, health) gets its own
// file; rotation is handled by lumberjack so long-running installs don't
// fill the SD card.
package journal

import (
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity marks how serious a journal entry is.
type Severity int

const (
	Debug Severity = iota
	Information
	Warning
	Critical
)

// String returns the marker written into the log line.
func (s Severity) String() string {
	switch s {
	case Debug:
		return "DEBUG"
	case Information:
		return "INFO"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

const timestampLayout = "2006-01-02 15:04:05"

// Journal appends entries to a single log file. Safe for concurrent use.
type Journal struct {
	name string

	mu  sync.Mutex
	out io.Writer

	// LogDebug controls whether Debugf entries are written.
	LogDebug bool

	now func() time.Time
}

// New opens a journal writing to the file at path. The file is created on
// first write and rotated at 10 MB, keeping a handful of backups.
func New(name, path string) *Journal {
	return &Journal{
		name: name,
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     90, // days
		},
		now: time.Now,
	}
}

// NewWriter returns a journal writing to w. Used by tests and by callers
// that already hold an open sink.
func NewWriter(name string, w io.Writer) *Journal {
	return &Journal{name: name, out: w, now: time.Now}
}

// Write appends one entry at the given severity.
func (j *Journal) Write(sev Severity, format string, args ...interface{}) {
	if sev == Debug && !j.LogDebug {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s %s %s: %s\n", j.now().Format(timestampLayout), j.name, sev, msg)

	j.mu.Lock()
	defer j.mu.Unlock()
	_, _ = io.WriteString(j.out, line)
}

// Informationf records a routine status entry.
func (j *Journal) Informationf(format string, args ...interface{}) {
	j.Write(Information, format, args...)
}

// Warningf records a noteworthy but non-fatal condition.
func (j *Journal) Warningf(format string, args ...interface{}) {
	j.Write(Warning, format, args...)
}

// Criticalf records a failure that triggers or precedes destructive action.
func (j *Journal) Criticalf(format string, args ...interface{}) {
	j.Write(Critical, format, args...)
}

// Debugf records a diagnostic entry, dropped unless LogDebug is set.
func (j *Journal) Debugf(format string, args ...interface{}) {
	j.Write(Debug, format, args...)
}

// Close closes the underlying file if it supports closing.
func (j *Journal) Close() error {
	if c, ok := j.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
