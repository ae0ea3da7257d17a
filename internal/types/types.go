// Package types defines the neutral entity payloads shared by the daemon,
// the RPC client, and harness adapters. Identifiers are opaque strings
// chosen by clients. A zero value ("" or 0) means the field was absent;
// the store's merge rules never let an absent field clobber stored data.
package types

// Source values for entities reported by known harnesses.
const (
	SourceOpenCode   = "opencode"
	SourceClaudeCode = "claude-code"
	SourceGemini     = "gemini"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleUnknown   = "unknown"
)

// Session is one conversation in a harness.
type Session struct {
	ID               string  `json:"id"`
	Title            string  `json:"title,omitempty"`
	ProjectPath      string  `json:"projectPath,omitempty"`
	ProjectName      string  `json:"projectName,omitempty"`
	Model            string  `json:"model,omitempty"`
	Provider         string  `json:"provider,omitempty"`
	Source           string  `json:"source,omitempty"`
	PromptTokens     int64   `json:"promptTokens,omitempty"`
	CompletionTokens int64   `json:"completionTokens,omitempty"`
	Cost             float64 `json:"cost,omitempty"`
	CreatedAt        int64   `json:"createdAt,omitempty"` // epoch ms
	UpdatedAt        int64   `json:"updatedAt,omitempty"` // epoch ms
}

// Message is one turn in a session.
type Message struct {
	ID               string `json:"id"`
	SessionID        string `json:"sessionId"`
	Role             string `json:"role,omitempty"`
	TextContent      string `json:"textContent,omitempty"`
	Model            string `json:"model,omitempty"`
	Source           string `json:"source,omitempty"`
	PromptTokens     int64  `json:"promptTokens,omitempty"`
	CompletionTokens int64  `json:"completionTokens,omitempty"`
	DurationMs       int64  `json:"durationMs,omitempty"`
	CreatedAt        int64  `json:"createdAt,omitempty"`
	CompletedAt      int64  `json:"completedAt,omitempty"`
}

// ToolExecution is one tool invocation by the assistant.
type ToolExecution struct {
	ID           string `json:"id"`
	SessionID    string `json:"sessionId"`
	ToolName     string `json:"toolName"`
	ToolInput    string `json:"toolInput,omitempty"`
	ToolOutput   string `json:"toolOutput,omitempty"`
	Success      bool   `json:"success,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	DurationMs   int64  `json:"durationMs,omitempty"`
	FilePath     string `json:"filePath,omitempty"`
	CreatedAt    int64  `json:"createdAt,omitempty"`
}

// SessionError is one error event on a session.
type SessionError struct {
	ID           string `json:"id"`
	SessionID    string `json:"sessionId"`
	ErrorType    string `json:"errorType,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    int64  `json:"createdAt,omitempty"`
}

// CompactionEvent records one conversation-compaction pass.
type CompactionEvent struct {
	ID             string `json:"id"`
	SessionID      string `json:"sessionId"`
	TokensBefore   int64  `json:"tokensBefore,omitempty"`
	TokensAfter    int64  `json:"tokensAfter,omitempty"`
	MessagesBefore int64  `json:"messagesBefore,omitempty"`
	MessagesAfter  int64  `json:"messagesAfter,omitempty"`
	CreatedAt      int64  `json:"createdAt,omitempty"`
}

// LogEntry is one line of the unified daemon log. Timestamp is ISO-8601 UTC
// and is filled by the logger when empty.
type LogEntry struct {
	Timestamp string         `json:"timestamp,omitempty"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	RequestID string         `json:"requestId,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}
