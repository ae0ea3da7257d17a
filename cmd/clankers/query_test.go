package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxta-dev/clankers/internal/paths"
	"github.com/dxta-dev/clankers/internal/store"
	"github.com/dxta-dev/clankers/internal/types"
)

// runCLI executes the root command with args and returns its combined
// output.
func runCLI(args ...string) (string, error) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// seedQueryDB creates a database with one session and points the resolver
// at it.
func seedQueryDB(t *testing.T) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "clankers.db")
	t.Setenv(paths.EnvDBPath, dbPath)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.UpsertSession(context.Background(), &types.Session{
		ID: "s1", Title: "Breakfast refactor", Source: types.SourceOpenCode, CreatedAt: 100,
	}))
}

func TestQueryTableOutput(t *testing.T) {
	seedQueryDB(t)

	out, err := runCLI("query", "SELECT id, title FROM sessions", "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "s1")
	assert.Contains(t, out, "Breakfast refactor")
	assert.Contains(t, out, "1 row(s)")
}

func TestQueryJSONOutput(t *testing.T) {
	seedQueryDB(t)

	out, err := runCLI("query", "SELECT id, source FROM sessions", "--format", "json")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "s1", rows[0]["id"])
	assert.Equal(t, "opencode", rows[0]["source"])
}

func TestQueryNoRows(t *testing.T) {
	seedQueryDB(t)

	out, err := runCLI("query", "SELECT id FROM messages", "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "(no rows)")
}

func TestQueryRejectsMutationWithGuidance(t *testing.T) {
	seedQueryDB(t)

	_, err := runCLI("query", "DELETE FROM sessions", "--format", "table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT queries are allowed")
}

func TestQueryUnknownColumnSuggestion(t *testing.T) {
	seedQueryDB(t)

	_, err := runCLI("query", "SELECT titel FROM sessions", "--format", "table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such column")
	assert.Contains(t, err.Error(), "did you mean sessions.title?")
}

func TestQueryUnknownTableListsTables(t *testing.T) {
	seedQueryDB(t)

	_, err := runCLI("query", "SELECT id FROM sesions", "--format", "table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available tables:")
	assert.Contains(t, err.Error(), "sessions")
}

func TestQueryBadFormat(t *testing.T) {
	seedQueryDB(t)

	_, err := runCLI("query", "SELECT id FROM sessions", "--format", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestQueryWithoutDatabase(t *testing.T) {
	t.Setenv(paths.EnvDBPath, filepath.Join(t.TempDir(), "missing.db"))

	_, err := runCLI("query", "SELECT 1", "--format", "table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database at")
}
