package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxta-dev/clankers/internal/types"
)

func readLines(t *testing.T, path string) []types.LogEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []types.LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e types.LogEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, LevelInfo)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Write(types.LogEntry{Level: "debug", Message: "dropped"}))
	require.NoError(t, l.Write(types.LogEntry{Level: "info", Message: "kept"}))
	require.NoError(t, l.Write(types.LogEntry{Level: "error", Message: "also kept"}))

	files, err := filepath.Glob(filepath.Join(dir, "clankers-*.jsonl"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	entries := readLines(t, files[0])
	require.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, "also kept", entries[1].Message)
	assert.NotEmpty(t, entries[0].Timestamp)
}

func TestRotationAcrossMidnight(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 3, 1, 23, 59, 59, 500_000_000, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}

	l, err := New(dir, LevelDebug, WithClock(now))
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Write(types.LogEntry{Level: "info", Message: "before midnight"}))

	mu.Lock()
	clock = time.Date(2026, 3, 2, 0, 0, 0, 500_000_000, time.UTC)
	mu.Unlock()

	require.NoError(t, l.Write(types.LogEntry{Level: "info", Message: "after midnight"}))

	first := readLines(t, filepath.Join(dir, "clankers-2026-03-01.jsonl"))
	second := readLines(t, filepath.Join(dir, "clankers-2026-03-02.jsonl"))
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "before midnight", first[0].Message)
	assert.Equal(t, "after midnight", second[0].Message)
}

func TestRetentionSweep(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	old := filepath.Join(dir, "clankers-2026-01-01.jsonl")
	pastEdge := filepath.Join(dir, "clankers-2026-02-12.jsonl")
	edge := filepath.Join(dir, "clankers-2026-02-13.jsonl")
	recent := filepath.Join(dir, "clankers-2026-03-14.jsonl")
	unrelated := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, pastEdge, edge, recent, unrelated} {
		require.NoError(t, os.WriteFile(p, []byte("x\n"), 0o600))
	}

	l, err := New(dir, LevelInfo, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Sweep())

	assert.NoFileExists(t, old)
	assert.NoFileExists(t, pastEdge) // 31 days old goes
	assert.FileExists(t, edge)       // exactly 30 days old stays, even at midday
	assert.FileExists(t, recent)
	assert.FileExists(t, unrelated)
}

func TestConcurrentWritesLineAtomic(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, LevelDebug)
	require.NoError(t, err)
	defer l.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = l.Write(types.LogEntry{Level: "info", Message: "concurrent"})
			}
		}()
	}
	wg.Wait()

	files, err := filepath.Glob(filepath.Join(dir, "clankers-*.jsonl"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	entries := readLines(t, files[0])
	assert.Len(t, entries, 200)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
		"ERROR":   LevelError,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}
