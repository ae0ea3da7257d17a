package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sweep removes log files whose filename date is more than retentionDays
// before the current date. The comparison is at date granularity: a file
// dated exactly retentionDays ago stays, whatever the time of day. Files
// that do not match the clankers-*.jsonl naming or whose date does not
// parse are left alone.
func (l *Logger) Sweep() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return err
	}
	now := l.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, -retentionDays)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		dateStr := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			continue
		}
		if date.Before(cutoff) {
			_ = os.Remove(filepath.Join(l.dir, name))
		}
	}
	return nil
}

// RunRetention sweeps immediately and then every interval until ctx is
// canceled. The sweep is idempotent.
func (l *Logger) RunRetention(ctx context.Context, interval time.Duration) error {
	_ = l.Sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = l.Sweep()
		}
	}
}
