package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dxta-dev/clankers/internal/types"
)

// Upserts merge by id inside a transaction. Merge rules:
//
//   - created_at is immutable after the first successful write.
//   - An empty incoming string or zero incoming number never clobbers a
//     stored value. This keeps later, coarser events (e.g. "session.idle"
//     without a title) from erasing earlier richer data.
//   - Everything else is replaced by the incoming value.
//
// The empty-skip rule is applied uniformly to all five entities; the
// narrower "stable field" sets called out for Session and Message fall out
// of it.

// mergeStr returns incoming unless it is empty.
func mergeStr(existing, incoming string) string {
	if incoming == "" {
		return existing
	}
	return incoming
}

// mergeInt returns incoming unless it is zero.
func mergeInt(existing, incoming int64) int64 {
	if incoming == 0 {
		return existing
	}
	return incoming
}

func mergeFloat(existing, incoming float64) float64 {
	if incoming == 0 {
		return existing
	}
	return incoming
}

// UpsertSession inserts or merges a session row. The id is required; title
// defaults to "Untitled Session" on first insert when not supplied.
func (s *Store) UpsertSession(ctx context.Context, sess *types.Session) error {
	if sess.ID == "" {
		return &MissingFieldError{Field: "id"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing types.Session
	row := tx.QueryRowContext(ctx, `
		SELECT title, project_path, project_name, model, provider, source,
		       prompt_tokens, completion_tokens, cost, created_at, updated_at
		FROM sessions WHERE id = ?`, sess.ID)
	err = row.Scan(&existing.Title, &existing.ProjectPath, &existing.ProjectName,
		&existing.Model, &existing.Provider, &existing.Source,
		&existing.PromptTokens, &existing.CompletionTokens, &existing.Cost,
		&existing.CreatedAt, &existing.UpdatedAt)

	switch err {
	case sql.ErrNoRows:
		title := sess.Title
		if title == "" {
			title = "Untitled Session"
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sessions (id, title, project_path, project_name, model,
			                      provider, source, prompt_tokens, completion_tokens,
			                      cost, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, title, sess.ProjectPath, sess.ProjectName, sess.Model,
			sess.Provider, sess.Source, sess.PromptTokens, sess.CompletionTokens,
			sess.Cost, sess.CreatedAt, sess.UpdatedAt)
		if err != nil {
			return wrapDBError("insert session", err)
		}
	case nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE sessions SET title = ?, project_path = ?, project_name = ?,
			       model = ?, provider = ?, source = ?, prompt_tokens = ?,
			       completion_tokens = ?, cost = ?, updated_at = ?
			WHERE id = ?`,
			mergeStr(existing.Title, sess.Title),
			mergeStr(existing.ProjectPath, sess.ProjectPath),
			mergeStr(existing.ProjectName, sess.ProjectName),
			mergeStr(existing.Model, sess.Model),
			mergeStr(existing.Provider, sess.Provider),
			mergeStr(existing.Source, sess.Source),
			mergeInt(existing.PromptTokens, sess.PromptTokens),
			mergeInt(existing.CompletionTokens, sess.CompletionTokens),
			mergeFloat(existing.Cost, sess.Cost),
			mergeInt(existing.UpdatedAt, sess.UpdatedAt),
			sess.ID)
		if err != nil {
			return wrapDBError("update session", err)
		}
	default:
		return wrapDBError("upsert session", err)
	}

	return tx.Commit()
}

// UpsertMessage inserts or merges a message row. Both id and sessionId are
// required; the session must exist.
func (s *Store) UpsertMessage(ctx context.Context, msg *types.Message) error {
	if msg.ID == "" {
		return &MissingFieldError{Field: "id"}
	}
	if msg.SessionID == "" {
		return &MissingFieldError{Field: "sessionId"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing types.Message
	row := tx.QueryRowContext(ctx, `
		SELECT role, text_content, model, source, prompt_tokens,
		       completion_tokens, duration_ms, created_at, completed_at
		FROM messages WHERE id = ?`, msg.ID)
	err = row.Scan(&existing.Role, &existing.TextContent, &existing.Model,
		&existing.Source, &existing.PromptTokens, &existing.CompletionTokens,
		&existing.DurationMs, &existing.CreatedAt, &existing.CompletedAt)

	switch err {
	case sql.ErrNoRows:
		role := msg.Role
		if role == "" {
			role = types.RoleUnknown
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, session_id, role, text_content, model,
			                      source, prompt_tokens, completion_tokens,
			                      duration_ms, created_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.SessionID, role, msg.TextContent, msg.Model,
			msg.Source, msg.PromptTokens, msg.CompletionTokens,
			msg.DurationMs, msg.CreatedAt, msg.CompletedAt)
		if err != nil {
			return wrapFKError("insert message", err)
		}
	case nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE messages SET role = ?, text_content = ?, model = ?,
			       source = ?, prompt_tokens = ?, completion_tokens = ?,
			       duration_ms = ?, completed_at = ?
			WHERE id = ?`,
			mergeStr(existing.Role, msg.Role),
			mergeStr(existing.TextContent, msg.TextContent),
			mergeStr(existing.Model, msg.Model),
			mergeStr(existing.Source, msg.Source),
			mergeInt(existing.PromptTokens, msg.PromptTokens),
			mergeInt(existing.CompletionTokens, msg.CompletionTokens),
			mergeInt(existing.DurationMs, msg.DurationMs),
			mergeInt(existing.CompletedAt, msg.CompletedAt),
			msg.ID)
		if err != nil {
			return wrapDBError("update message", err)
		}
	default:
		return wrapDBError("upsert message", err)
	}

	return tx.Commit()
}

// UpsertTool inserts or merges a tool execution row.
func (s *Store) UpsertTool(ctx context.Context, tool *types.ToolExecution) error {
	if tool.ID == "" {
		return &MissingFieldError{Field: "id"}
	}
	if tool.SessionID == "" {
		return &MissingFieldError{Field: "sessionId"}
	}
	if tool.ToolName == "" {
		return &MissingFieldError{Field: "toolName"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert tool: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing types.ToolExecution
	row := tx.QueryRowContext(ctx, `
		SELECT tool_name, tool_input, tool_output, success, error_message,
		       duration_ms, file_path, created_at
		FROM tool_executions WHERE id = ?`, tool.ID)
	err = row.Scan(&existing.ToolName, &existing.ToolInput, &existing.ToolOutput,
		&existing.Success, &existing.ErrorMessage, &existing.DurationMs,
		&existing.FilePath, &existing.CreatedAt)

	switch err {
	case sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tool_executions (id, session_id, tool_name, tool_input,
			                             tool_output, success, error_message,
			                             duration_ms, file_path, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tool.ID, tool.SessionID, tool.ToolName, tool.ToolInput,
			tool.ToolOutput, tool.Success, tool.ErrorMessage,
			tool.DurationMs, tool.FilePath, tool.CreatedAt)
		if err != nil {
			return wrapFKError("insert tool execution", err)
		}
	case nil:
		// success is replaced outright: false is a meaningful outcome.
		_, err = tx.ExecContext(ctx, `
			UPDATE tool_executions SET tool_name = ?, tool_input = ?,
			       tool_output = ?, success = ?, error_message = ?,
			       duration_ms = ?, file_path = ?
			WHERE id = ?`,
			mergeStr(existing.ToolName, tool.ToolName),
			mergeStr(existing.ToolInput, tool.ToolInput),
			mergeStr(existing.ToolOutput, tool.ToolOutput),
			tool.Success,
			mergeStr(existing.ErrorMessage, tool.ErrorMessage),
			mergeInt(existing.DurationMs, tool.DurationMs),
			mergeStr(existing.FilePath, tool.FilePath),
			tool.ID)
		if err != nil {
			return wrapDBError("update tool execution", err)
		}
	default:
		return wrapDBError("upsert tool execution", err)
	}

	return tx.Commit()
}

// UpsertSessionError inserts or merges a session error row.
func (s *Store) UpsertSessionError(ctx context.Context, se *types.SessionError) error {
	if se.ID == "" {
		return &MissingFieldError{Field: "id"}
	}
	if se.SessionID == "" {
		return &MissingFieldError{Field: "sessionId"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert session error: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing types.SessionError
	row := tx.QueryRowContext(ctx, `
		SELECT error_type, error_message, created_at
		FROM session_errors WHERE id = ?`, se.ID)
	err = row.Scan(&existing.ErrorType, &existing.ErrorMessage, &existing.CreatedAt)

	switch err {
	case sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_errors (id, session_id, error_type, error_message, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			se.ID, se.SessionID, se.ErrorType, se.ErrorMessage, se.CreatedAt)
		if err != nil {
			return wrapFKError("insert session error", err)
		}
	case nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE session_errors SET error_type = ?, error_message = ? WHERE id = ?`,
			mergeStr(existing.ErrorType, se.ErrorType),
			mergeStr(existing.ErrorMessage, se.ErrorMessage),
			se.ID)
		if err != nil {
			return wrapDBError("update session error", err)
		}
	default:
		return wrapDBError("upsert session error", err)
	}

	return tx.Commit()
}

// UpsertCompactionEvent inserts or merges a compaction event row.
func (s *Store) UpsertCompactionEvent(ctx context.Context, ce *types.CompactionEvent) error {
	if ce.ID == "" {
		return &MissingFieldError{Field: "id"}
	}
	if ce.SessionID == "" {
		return &MissingFieldError{Field: "sessionId"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert compaction event: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing types.CompactionEvent
	row := tx.QueryRowContext(ctx, `
		SELECT tokens_before, tokens_after, messages_before, messages_after, created_at
		FROM compaction_events WHERE id = ?`, ce.ID)
	err = row.Scan(&existing.TokensBefore, &existing.TokensAfter,
		&existing.MessagesBefore, &existing.MessagesAfter, &existing.CreatedAt)

	switch err {
	case sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO compaction_events (id, session_id, tokens_before, tokens_after,
			                               messages_before, messages_after, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ce.ID, ce.SessionID, ce.TokensBefore, ce.TokensAfter,
			ce.MessagesBefore, ce.MessagesAfter, ce.CreatedAt)
		if err != nil {
			return wrapFKError("insert compaction event", err)
		}
	case nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE compaction_events SET tokens_before = ?, tokens_after = ?,
			       messages_before = ?, messages_after = ?
			WHERE id = ?`,
			mergeInt(existing.TokensBefore, ce.TokensBefore),
			mergeInt(existing.TokensAfter, ce.TokensAfter),
			mergeInt(existing.MessagesBefore, ce.MessagesBefore),
			mergeInt(existing.MessagesAfter, ce.MessagesAfter),
			ce.ID)
		if err != nil {
			return wrapDBError("update compaction event", err)
		}
	default:
		return wrapDBError("upsert compaction event", err)
	}

	return tx.Commit()
}
