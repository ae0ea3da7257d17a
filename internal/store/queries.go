package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dxta-dev/clankers/internal/types"
)

// SessionDetail is a session plus its messages in chronological order.
type SessionDetail struct {
	Session  types.Session   `json:"session"`
	Messages []types.Message `json:"messages"`
}

// GetSessions returns sessions ordered by created_at descending, ties broken
// by id ascending. limit 0 means no limit.
func (s *Store) GetSessions(ctx context.Context, limit int) ([]types.Session, error) {
	q := `
		SELECT id, title, project_path, project_name, model, provider, source,
		       prompt_tokens, completion_tokens, cost, created_at, updated_at
		FROM sessions
		ORDER BY created_at DESC, id ASC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, q+" LIMIT ?", limit)
	} else {
		rows, err = s.db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, wrapDBError("get sessions", err)
	}
	defer rows.Close()

	var out []types.Session
	for rows.Next() {
		var sess types.Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.ProjectPath,
			&sess.ProjectName, &sess.Model, &sess.Provider, &sess.Source,
			&sess.PromptTokens, &sess.CompletionTokens, &sess.Cost,
			&sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, wrapDBError("scan session", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// GetSessionByID returns one session and its messages ascending by
// created_at. Returns ErrNotFound when the session does not exist.
func (s *Store) GetSessionByID(ctx context.Context, id string) (*SessionDetail, error) {
	var sess types.Session
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, project_path, project_name, model, provider, source,
		       prompt_tokens, completion_tokens, cost, created_at, updated_at
		FROM sessions WHERE id = ?`, id)
	err := row.Scan(&sess.ID, &sess.Title, &sess.ProjectPath, &sess.ProjectName,
		&sess.Model, &sess.Provider, &sess.Source, &sess.PromptTokens,
		&sess.CompletionTokens, &sess.Cost, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapDBError("get session", err)
	}

	msgs, err := s.GetMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{Session: sess, Messages: msgs}, nil
}

// GetMessages returns the messages of a session ascending by created_at.
func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, text_content, model, source,
		       prompt_tokens, completion_tokens, duration_ms, created_at, completed_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, wrapDBError("get messages", err)
	}
	defer rows.Close()

	var out []types.Message
	for rows.Next() {
		var m types.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.TextContent,
			&m.Model, &m.Source, &m.PromptTokens, &m.CompletionTokens,
			&m.DurationMs, &m.CreatedAt, &m.CompletedAt); err != nil {
			return nil, wrapDBError("scan message", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Tables returns the user table names in the database.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_schema
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, wrapDBError("list tables", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapDBError("scan table name", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetTableSchema returns the column names of a table, in declaration order.
// Used for CLI diagnostics when a query names an unknown column.
func (s *Store) GetTableSchema(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, wrapDBError("get table schema", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapDBError("scan column name", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s: %w", table, ErrNotFound)
	}
	return cols, nil
}

// SuggestColumnNames returns columns of table whose names are close to the
// misspelled input, nearest first. Used by the CLI to print "did you mean".
func (s *Store) SuggestColumnNames(ctx context.Context, table, input string) ([]string, error) {
	cols, err := s.GetTableSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	type scored struct {
		name string
		dist int
	}
	var candidates []scored
	for _, c := range cols {
		d := editDistance(input, c)
		// Anything further than half the input away is noise.
		if d <= (len(input)+1)/2+1 {
			candidates = append(candidates, scored{c, d})
		}
	}
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].dist < candidates[j-1].dist; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.name)
	}
	return out, nil
}

// editDistance is the Levenshtein distance between two ASCII-ish strings.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
