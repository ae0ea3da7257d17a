package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dxta-dev/clankers/internal/types"
)

// ErrDaemonUnreachable is returned when no daemon answers on the endpoint.
var ErrDaemonUnreachable = fmt.Errorf("daemon unreachable")

// Client reaches the daemon over the local endpoint. Every call opens a
// fresh connection, sends one framed request, reads the single framed
// response, and closes; at expected call rates pooling buys nothing.
type Client struct {
	socketPath  string
	info        ClientInfo
	dialTimeout time.Duration
	callTimeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialTimeout overrides the connect timeout (default 2s).
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialTimeout = d }
}

// WithCallTimeout overrides the per-call I/O deadline (default 30s).
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.callTimeout = d }
}

// NewClient creates a client for the endpoint at socketPath. The client
// info is stamped into the envelope of every request.
func NewClient(socketPath string, info ClientInfo, opts ...ClientOption) *Client {
	c := &Client{
		socketPath:  socketPath,
		info:        info,
		dialTimeout: 2 * time.Second,
		callTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope returns the preamble for this client.
func (c *Client) envelope() Envelope {
	return Envelope{SchemaVersion: SchemaVersion, Client: c.info}
}

// call performs one request/response round trip.
func (c *Client) call(method string, params any, result any) error {
	conn, err := dialEndpoint(c.socketPath, c.dialTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonUnreachable, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.callTimeout)); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}

	if err := writeRequest(conn, method, params, json.RawMessage(`1`)); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	body, err := ReadFrame(bufio.NewReader(conn))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}

// notify writes one request with no id and returns without reading a
// response. Transport errors are swallowed: the hot path must never block
// or fail because the daemon is absent.
func (c *Client) notify(method string, params any) {
	conn, err := dialEndpoint(c.socketPath, c.dialTimeout)
	if err != nil {
		return
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.callTimeout))
	_ = writeRequest(conn, method, params, nil)
}

func writeRequest(conn net.Conn, method string, params any, id json.RawMessage) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	req := Request{JSONRPC: "2.0", ID: id, Method: method, Params: raw}
	body, err := json.Marshal(&req)
	if err != nil {
		return err
	}
	return WriteFrame(conn, body)
}

// Health checks the daemon and returns its version info.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.call(MethodHealth, &HealthParams{Envelope: c.envelope()}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// WaitForDaemon retries Health with exponential backoff until the daemon
// answers or ctx is canceled.
func (c *Client) WaitForDaemon(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	return backoff.Retry(func() error {
		_, err := c.Health()
		return err
	}, backoff.WithContext(b, ctx))
}

// EnsureDB asks the daemon for the database path and whether it was newly
// created.
func (c *Client) EnsureDB() (*EnsureDBResult, error) {
	var result EnsureDBResult
	if err := c.call(MethodEnsureDB, &EnsureDBParams{Envelope: c.envelope()}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetDBPath returns the daemon's resolved database path.
func (c *Client) GetDBPath() (string, error) {
	var result GetDBPathResult
	if err := c.call(MethodGetDBPath, &GetDBPathParams{Envelope: c.envelope()}, &result); err != nil {
		return "", err
	}
	return result.DBPath, nil
}

// UpsertSession persists a session.
func (c *Client) UpsertSession(sess types.Session) error {
	return c.call(MethodUpsertSession, &UpsertSessionParams{Envelope: c.envelope(), Session: sess}, nil)
}

// UpsertMessage persists a message.
func (c *Client) UpsertMessage(msg types.Message) error {
	return c.call(MethodUpsertMessage, &UpsertMessageParams{Envelope: c.envelope(), Message: msg}, nil)
}

// UpsertTool persists a tool execution.
func (c *Client) UpsertTool(tool types.ToolExecution) error {
	return c.call(MethodUpsertTool, &UpsertToolParams{Envelope: c.envelope(), Tool: tool}, nil)
}

// UpsertSessionError persists a session error.
func (c *Client) UpsertSessionError(se types.SessionError) error {
	return c.call(MethodUpsertSessionError, &UpsertSessionErrorParams{Envelope: c.envelope(), SessionError: se}, nil)
}

// UpsertCompactionEvent persists a compaction event.
func (c *Client) UpsertCompactionEvent(ce types.CompactionEvent) error {
	return c.call(MethodUpsertCompactionEvent, &UpsertCompactionEventParams{Envelope: c.envelope(), CompactionEvent: ce}, nil)
}

// GetSessions lists sessions, newest first. limit 0 means no limit.
func (c *Client) GetSessions(limit int) ([]types.Session, error) {
	var result GetSessionsResult
	if err := c.call(MethodGetSessions, &GetSessionsParams{Envelope: c.envelope(), Limit: limit}, &result); err != nil {
		return nil, err
	}
	return result.Sessions, nil
}

// GetSession returns one session with its messages.
func (c *Client) GetSession(id string) (*GetSessionResult, error) {
	var result GetSessionResult
	if err := c.call(MethodGetSession, &GetSessionParams{Envelope: c.envelope(), ID: id}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMessages returns the messages of a session.
func (c *Client) GetMessages(sessionID string) ([]types.Message, error) {
	var result GetMessagesResult
	if err := c.call(MethodGetMessages, &GetMessagesParams{Envelope: c.envelope(), SessionID: sessionID}, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// LogWrite forwards a log entry and waits for the daemon's ack.
func (c *Client) LogWrite(entry types.LogEntry) error {
	return c.call(MethodLogWrite, &LogWriteParams{Envelope: c.envelope(), Entry: entry}, nil)
}

// LogWriteNotify forwards a log entry fire-and-forget: the send runs on
// its own goroutine, no response is read, and transport failures are
// silently discarded, so logging never applies back-pressure to the
// caller and degrades cleanly when no daemon runs.
func (c *Client) LogWriteNotify(entry types.LogEntry) {
	params := &LogWriteParams{Envelope: c.envelope(), Entry: entry}
	go c.notify(MethodLogWrite, params)
}
