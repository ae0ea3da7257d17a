// Package logging implements the unified daemon log: one JSON-lines file
// per UTC calendar day, level filtering at the daemon, and a 30-day
// retention sweep. Every client forwards entries over RPC; the daemon is
// the single place that filters and writes.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dxta-dev/clankers/internal/types"
)

// Level is a log severity. Entries below the logger's minimum are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a level name to a Level. Unknown names default to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

const (
	filePrefix    = "clankers-"
	fileSuffix    = ".jsonl"
	dateLayout    = "2006-01-02"
	retentionDays = 30
)

// Logger writes JSON-lines entries to clankers-YYYY-MM-DD.jsonl under dir.
// Rotation is lazy: the file for a new date is opened on the first write of
// that date. Writes are serialized and each line goes out in a single write
// so concurrent entries never interleave.
type Logger struct {
	mu       sync.Mutex
	dir      string
	minLevel Level
	file     *os.File
	curDate  string
	now      func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock overrides the logger's clock. Tests use this to cross midnight.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// New creates a logger writing into dir, creating it if needed.
func New(dir string, minLevel Level, opts ...Option) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	l := &Logger{dir: dir, minLevel: minLevel, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// MinLevel returns the logger's minimum level.
func (l *Logger) MinLevel() Level {
	return l.minLevel
}

// Write appends one entry, dropping it when below the minimum level. The
// entry timestamp is filled in when empty; the level string is normalized.
func (l *Logger) Write(entry types.LogEntry) error {
	level := ParseLevel(entry.Level)
	if level < l.minLevel {
		return nil
	}
	entry.Level = level.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	if entry.Timestamp == "" {
		entry.Timestamp = now.Format(time.RFC3339Nano)
	}

	date := now.Format(dateLayout)
	if l.file == nil || date != l.curDate {
		if err := l.rotateLocked(date); err != nil {
			return err
		}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	line = append(line, '\n')
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	return nil
}

// rotateLocked swaps in the file for date. Caller holds l.mu.
func (l *Logger) rotateLocked(date string) error {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	path := filepath.Join(l.dir, filePrefix+date+fileSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l.file = f
	l.curDate = date
	return nil
}

// Close closes the current log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
