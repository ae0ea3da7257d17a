// Package rpc implements the daemon's JSON-RPC 2.0 surface over a local
// transport (unix socket on POSIX, named pipe on Windows), the
// length-prefix framing codec, and the client library used by harness
// adapters.
package rpc

import (
	"encoding/json"

	"github.com/dxta-dev/clankers/internal/types"
)

// ServerVersion is the daemon version reported by the health method. It is
// overridden at startup from the build version.
var ServerVersion = "0.1.0"

// SchemaVersion is the payload schema version clients put in the envelope.
const SchemaVersion = 1

// Method names for all daemon operations.
const (
	MethodHealth                = "health"
	MethodEnsureDB              = "ensureDb"
	MethodGetDBPath             = "getDbPath"
	MethodUpsertSession         = "upsertSession"
	MethodUpsertMessage         = "upsertMessage"
	MethodUpsertTool            = "upsertTool"
	MethodUpsertSessionError    = "upsertSessionError"
	MethodUpsertCompactionEvent = "upsertCompactionEvent"
	MethodGetSessions           = "getSessions"
	MethodGetSession            = "getSession"
	MethodGetMessages           = "getMessages"
	MethodLogWrite              = "log.write"
)

// JSON-RPC 2.0 error codes, plus the application code for a missing
// required entity field.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeMissingField   = 4001
)

// Request is a JSON-RPC 2.0 request or notification (no ID).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds an Error without data.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewMissingFieldError builds the application error for a missing required
// field, carrying the field name in data.
func NewMissingFieldError(field string) *Error {
	data, _ := json.Marshal(map[string]string{"field": field})
	return &Error{Code: CodeMissingField, Message: "missing required field: " + field, Data: data}
}

// ClientInfo identifies the calling harness adapter.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Envelope is the preamble carried by every request's params.
type Envelope struct {
	SchemaVersion int        `json:"schemaVersion"`
	Client        ClientInfo `json:"client"`
}

// Params shapes. Each embeds the envelope.

type HealthParams struct {
	Envelope
}

type EnsureDBParams struct {
	Envelope
}

type GetDBPathParams struct {
	Envelope
}

type UpsertSessionParams struct {
	Envelope
	Session types.Session `json:"session"`
}

type UpsertMessageParams struct {
	Envelope
	Message types.Message `json:"message"`
}

type UpsertToolParams struct {
	Envelope
	Tool types.ToolExecution `json:"tool"`
}

type UpsertSessionErrorParams struct {
	Envelope
	SessionError types.SessionError `json:"sessionError"`
}

type UpsertCompactionEventParams struct {
	Envelope
	CompactionEvent types.CompactionEvent `json:"compactionEvent"`
}

type GetSessionsParams struct {
	Envelope
	Limit int `json:"limit,omitempty"`
}

type GetSessionParams struct {
	Envelope
	ID string `json:"id"`
}

type GetMessagesParams struct {
	Envelope
	SessionID string `json:"sessionId"`
}

type LogWriteParams struct {
	Envelope
	Entry types.LogEntry `json:"entry"`
}

// Result shapes.

type HealthResult struct {
	OK      bool    `json:"ok"`
	Version string  `json:"version"`
	Uptime  float64 `json:"uptime,omitempty"` // seconds
}

type EnsureDBResult struct {
	DBPath  string `json:"dbPath"`
	Created bool   `json:"created"`
}

type GetDBPathResult struct {
	DBPath string `json:"dbPath"`
}

type OKResult struct {
	OK bool `json:"ok"`
}

type GetSessionsResult struct {
	Sessions []types.Session `json:"sessions"`
}

type GetSessionResult struct {
	Session  types.Session   `json:"session"`
	Messages []types.Message `json:"messages"`
}

type GetMessagesResult struct {
	Messages []types.Message `json:"messages"`
}
