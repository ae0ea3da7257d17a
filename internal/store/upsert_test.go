package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dxta-dev/clankers/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertSessionRequiresID(t *testing.T) {
	s := newTestStore(t)
	err := s.UpsertSession(context.Background(), &types.Session{Title: "no id"})
	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if mf.Field != "id" {
		t.Errorf("expected field 'id', got %q", mf.Field)
	}
}

func TestUpsertSessionDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertSession(ctx, &types.Session{ID: "s1"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	detail, err := s.GetSessionByID(ctx, "s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.Session.Title != "Untitled Session" {
		t.Errorf("expected default title, got %q", detail.Session.Title)
	}
	if detail.Session.PromptTokens != 0 || detail.Session.Cost != 0 {
		t.Errorf("expected zero counters, got %+v", detail.Session)
	}
}

// Stable fields survive a later upsert that omits them (spec scenario: a
// coarse "session.idle" event must not blank the title set at creation).
func TestUpsertSessionPreservation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpsertSession(ctx, &types.Session{
		ID: "s1", Title: "T", Model: "m", Provider: "anthropic",
		Source: types.SourceClaudeCode, CreatedAt: 100,
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	if err := s.UpsertSession(ctx, &types.Session{ID: "s1", UpdatedAt: 200}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	detail, err := s.GetSessionByID(ctx, "s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	got := detail.Session
	if got.Title != "T" || got.Model != "m" || got.Provider != "anthropic" ||
		got.Source != types.SourceClaudeCode {
		t.Errorf("stable fields not preserved: %+v", got)
	}
	if got.CreatedAt != 100 {
		t.Errorf("created_at changed: %d", got.CreatedAt)
	}
	if got.UpdatedAt != 200 {
		t.Errorf("updated_at not applied: %d", got.UpdatedAt)
	}
}

func TestCreatedAtImmutable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertSession(ctx, &types.Session{ID: "s1", CreatedAt: 100}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := s.UpsertSession(ctx, &types.Session{ID: "s1", CreatedAt: 999}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	detail, err := s.GetSessionByID(ctx, "s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.Session.CreatedAt != 100 {
		t.Errorf("created_at mutated: %d", detail.Session.CreatedAt)
	}
}

func TestUpsertSessionIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := &types.Session{ID: "s1", Title: "T", PromptTokens: 10, Cost: 0.5, CreatedAt: 100}
	for i := 0; i < 2; i++ {
		if err := s.UpsertSession(ctx, sess); err != nil {
			t.Fatalf("upsert %d failed: %v", i, err)
		}
	}

	sessions, err := s.GetSessions(ctx, 0)
	if err != nil {
		t.Fatalf("get sessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].PromptTokens != 10 || sessions[0].Cost != 0.5 {
		t.Errorf("counters drifted across identical upserts: %+v", sessions[0])
	}
}

func TestUpsertMessagePreservation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertSession(ctx, &types.Session{ID: "s1"}); err != nil {
		t.Fatalf("session upsert failed: %v", err)
	}

	msg := &types.Message{
		ID: "m1", SessionID: "s1", Role: types.RoleAssistant,
		TextContent: "hello world", Source: types.SourceOpenCode,
		Model: "gpt", CreatedAt: 100,
	}
	if err := s.UpsertMessage(ctx, msg); err != nil {
		t.Fatalf("message upsert failed: %v", err)
	}

	// Re-upsert with empty text/source/model and fresh token counts.
	update := &types.Message{ID: "m1", SessionID: "s1", PromptTokens: 42, CompletedAt: 200}
	if err := s.UpsertMessage(ctx, update); err != nil {
		t.Fatalf("message re-upsert failed: %v", err)
	}

	msgs, err := s.GetMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("get messages failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	got := msgs[0]
	if got.TextContent != "hello world" || got.Source != types.SourceOpenCode || got.Model != "gpt" {
		t.Errorf("stable fields not preserved: %+v", got)
	}
	if got.PromptTokens != 42 || got.CompletedAt != 200 {
		t.Errorf("incoming values not applied: %+v", got)
	}
	if got.CreatedAt != 100 {
		t.Errorf("created_at mutated: %d", got.CreatedAt)
	}
}

func TestUpsertMessageOrphanReference(t *testing.T) {
	s := newTestStore(t)
	err := s.UpsertMessage(context.Background(), &types.Message{
		ID: "m1", SessionID: "missing", TextContent: "x",
	})
	if !errors.Is(err, ErrOrphanReference) {
		t.Fatalf("expected ErrOrphanReference, got %v", err)
	}
}

func TestUpsertToolRequiresName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.UpsertSession(ctx, &types.Session{ID: "s1"}); err != nil {
		t.Fatalf("session upsert failed: %v", err)
	}

	err := s.UpsertTool(ctx, &types.ToolExecution{ID: "t1", SessionID: "s1"})
	var mf *MissingFieldError
	if !errors.As(err, &mf) || mf.Field != "toolName" {
		t.Fatalf("expected missing toolName, got %v", err)
	}

	tool := &types.ToolExecution{
		ID: "t1", SessionID: "s1", ToolName: "bash",
		ToolInput: "ls", Success: true, DurationMs: 12, CreatedAt: 100,
	}
	if err := s.UpsertTool(ctx, tool); err != nil {
		t.Fatalf("tool upsert failed: %v", err)
	}
	// Re-upsert flipping success; other fields empty stay put.
	if err := s.UpsertTool(ctx, &types.ToolExecution{
		ID: "t1", SessionID: "s1", ToolName: "bash", Success: false,
		ErrorMessage: "exit 1",
	}); err != nil {
		t.Fatalf("tool re-upsert failed: %v", err)
	}

	rows, err := s.ExecuteQuery(ctx, "SELECT tool_input, success, error_message FROM tool_executions")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["tool_input"] != "ls" {
		t.Errorf("tool_input not preserved: %v", rows[0])
	}
	if rows[0]["success"] != int64(0) {
		t.Errorf("success not replaced: %v", rows[0]["success"])
	}
	if rows[0]["error_message"] != "exit 1" {
		t.Errorf("error_message not applied: %v", rows[0])
	}
}

func TestSessionErrorAndCompactionUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.UpsertSession(ctx, &types.Session{ID: "s1"}); err != nil {
		t.Fatalf("session upsert failed: %v", err)
	}

	if err := s.UpsertSessionError(ctx, &types.SessionError{
		ID: "e1", SessionID: "s1", ErrorType: "timeout", CreatedAt: 100,
	}); err != nil {
		t.Fatalf("session error upsert failed: %v", err)
	}

	if err := s.UpsertCompactionEvent(ctx, &types.CompactionEvent{
		ID: "c1", SessionID: "s1", TokensBefore: 1000, TokensAfter: 200,
		MessagesBefore: 40, MessagesAfter: 5, CreatedAt: 100,
	}); err != nil {
		t.Fatalf("compaction upsert failed: %v", err)
	}

	if err := s.UpsertSessionError(ctx, &types.SessionError{
		ID: "e1", SessionID: "missing-session",
	}); err != nil {
		// Existing row: the merge updates by id, session_id is not rewritten.
		t.Fatalf("re-upsert failed: %v", err)
	}

	err := s.UpsertCompactionEvent(ctx, &types.CompactionEvent{ID: "c2", SessionID: "nope"})
	if !errors.Is(err, ErrOrphanReference) {
		t.Fatalf("expected ErrOrphanReference, got %v", err)
	}
}

func TestCascadeDeleteSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertSession(ctx, &types.Session{ID: "s1"}); err != nil {
		t.Fatalf("session upsert failed: %v", err)
	}
	if err := s.UpsertMessage(ctx, &types.Message{ID: "m1", SessionID: "s1", TextContent: "x"}); err != nil {
		t.Fatalf("message upsert failed: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = 's1'"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	msgs, err := s.GetMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("get messages failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected cascade delete, got %d messages", len(msgs))
	}
}
