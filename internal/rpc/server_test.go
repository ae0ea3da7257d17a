//go:build !windows

package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxta-dev/clankers/internal/logging"
	"github.com/dxta-dev/clankers/internal/store"
	"github.com/dxta-dev/clankers/internal/types"
)

type testDaemon struct {
	server *Server
	client *Client
	logDir string
}

// startTestDaemon runs a server on a short-lived socket path. t.TempDir can
// exceed the unix socket path limit, so the socket lives in its own
// MkdirTemp directory.
func startTestDaemon(t *testing.T) *testDaemon {
	t.Helper()

	sockDir, err := os.MkdirTemp("", "clk")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(sockDir) })
	sockPath := filepath.Join(sockDir, "d.sock")

	st, err := store.Open(filepath.Join(sockDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logDir := filepath.Join(sockDir, "logs")
	lg, err := logging.New(logDir, logging.LevelInfo)
	require.NoError(t, err)
	t.Cleanup(func() { lg.Close() })

	diag := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(st, lg, sockPath, diag)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	client := NewClient(sockPath, ClientInfo{Name: "test-adapter", Version: "0.0.1"})
	return &testDaemon{server: srv, client: client, logDir: logDir}
}

func TestHealthRoundTrip(t *testing.T) {
	d := startTestDaemon(t)

	health, err := d.client.Health()
	require.NoError(t, err)
	assert.True(t, health.OK)
	assert.Equal(t, "0.1.0", health.Version)
}

func TestUpsertAndGetOverRPC(t *testing.T) {
	d := startTestDaemon(t)

	require.NoError(t, d.client.UpsertSession(types.Session{
		ID: "s1", Title: "T", Model: "m", CreatedAt: 100,
	}))
	require.NoError(t, d.client.UpsertSession(types.Session{ID: "s1", UpdatedAt: 200}))

	got, err := d.client.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "T", got.Session.Title)
	assert.Equal(t, "m", got.Session.Model)
	assert.Equal(t, int64(100), got.Session.CreatedAt)
	assert.Equal(t, int64(200), got.Session.UpdatedAt)

	require.NoError(t, d.client.UpsertMessage(types.Message{
		ID: "m1", SessionID: "s1", Role: types.RoleUser, TextContent: "hi", CreatedAt: 150,
	}))
	msgs, err := d.client.GetMessages("s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].TextContent)

	sessions, err := d.client.GetSessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestMissingFieldErrorCode(t *testing.T) {
	d := startTestDaemon(t)

	err := d.client.UpsertMessage(types.Message{ID: "m1"})
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeMissingField, rpcErr.Code)

	var data map[string]string
	require.NoError(t, json.Unmarshal(rpcErr.Data, &data))
	assert.Equal(t, "sessionId", data["field"])
}

func TestUnknownMethod(t *testing.T) {
	d := startTestDaemon(t)

	err := d.client.call("bogusMethod", &HealthParams{Envelope: d.client.envelope()}, nil)
	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, CodeMethodNotFound, rpcErr.Code)
}

func TestEnsureDBAndGetDBPath(t *testing.T) {
	d := startTestDaemon(t)
	d.server.SetDBCreated(true)

	res, err := d.client.EnsureDB()
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.NotEmpty(t, res.DBPath)

	path, err := d.client.GetDBPath()
	require.NoError(t, err)
	assert.Equal(t, res.DBPath, path)
}

func TestLogWriteDefaultsComponent(t *testing.T) {
	d := startTestDaemon(t)

	require.NoError(t, d.client.LogWrite(types.LogEntry{
		Level:   "info",
		Message: "from adapter",
	}))

	files, err := filepath.Glob(filepath.Join(d.logDir, "clankers-*.jsonl"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var entry types.LogEntry
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &entry))
	assert.Equal(t, "test-adapter", entry.Component)
	assert.Equal(t, "from adapter", entry.Message)
}

func TestLogWriteNotifyFireAndForget(t *testing.T) {
	d := startTestDaemon(t)

	d.client.LogWriteNotify(types.LogEntry{Level: "info", Message: "notified"})

	// The notification races the assertion; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		files, _ := filepath.Glob(filepath.Join(d.logDir, "clankers-*.jsonl"))
		if len(files) == 1 {
			data, err := os.ReadFile(files[0])
			if err == nil && len(data) > 0 {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("notification never landed in the log")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNotifyAgainstDeadDaemonIsSilent(t *testing.T) {
	client := NewClient("/nonexistent/clankers.sock",
		ClientInfo{Name: "test", Version: "0"},
		WithDialTimeout(50*time.Millisecond))
	// Must not panic or block.
	client.LogWriteNotify(types.LogEntry{Level: "info", Message: "dropped"})

	_, err := client.Health()
	assert.True(t, errors.Is(err, ErrDaemonUnreachable))
}

func TestMalformedFrameClosesConnection(t *testing.T) {
	d := startTestDaemon(t)

	conn, err := dialEndpoint(d.server.sockPath, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("Content-Length: 9\r\n\r\nnot json!"))
	require.NoError(t, err)

	// Server closes without responding; read hits EOF.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = ReadFrame(bufio.NewReader(conn))
	assert.Error(t, err)

	// The daemon keeps serving fresh connections.
	_, err = d.client.Health()
	assert.NoError(t, err)
}

func TestRequestsOnOneConnectionAreOrdered(t *testing.T) {
	d := startTestDaemon(t)

	conn, err := dialEndpoint(d.server.sockPath, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	env := Envelope{SchemaVersion: SchemaVersion, Client: ClientInfo{Name: "test", Version: "0"}}
	for i := 1; i <= 3; i++ {
		id, _ := json.Marshal(i)
		require.NoError(t, writeRequest(conn, MethodHealth, &HealthParams{Envelope: env}, id))
	}

	reader := bufio.NewReader(conn)
	for i := 1; i <= 3; i++ {
		body, err := ReadFrame(reader)
		require.NoError(t, err)
		var resp Response
		require.NoError(t, json.Unmarshal(body, &resp))
		var id int
		require.NoError(t, json.Unmarshal(resp.ID, &id))
		assert.Equal(t, i, id)
		assert.Nil(t, resp.Error)
	}
}

func TestGracefulStopRemovesSocket(t *testing.T) {
	d := startTestDaemon(t)

	sockPath := d.server.sockPath
	_, err := os.Stat(sockPath)
	require.NoError(t, err)

	require.NoError(t, d.server.Stop())
	_, err = os.Stat(sockPath)
	assert.True(t, os.IsNotExist(err))

	// Stop is idempotent.
	require.NoError(t, d.server.Stop())
}

func TestWaitForDaemon(t *testing.T) {
	d := startTestDaemon(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, d.client.WaitForDaemon(ctx))
}
