package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// blockedKeywords rejects any statement that could mutate state or escape
// the read-only contract. Matched as whole words anywhere in the statement,
// before the engine sees it.
var blockedKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"REPLACE", "MERGE", "UPSERT", "ATTACH", "DETACH", "REINDEX", "VACUUM",
	"PRAGMA", "BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT", "RELEASE",
}

var blockedRe = regexp.MustCompile(`(?i)\b(` + strings.Join(blockedKeywords, "|") + `)\b`)

// validateReadOnly rejects statements that do not begin with SELECT or WITH
// or that contain a blocked keyword anywhere.
func validateReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only SELECT and WITH statements are allowed: %w", ErrForbidden)
	}
	if m := blockedRe.FindString(trimmed); m != "" {
		return fmt.Errorf("statement contains blocked keyword %s: %w", strings.ToUpper(m), ErrForbidden)
	}
	return nil
}

// ExecuteQuery runs a read-only query and returns one map per row keyed by
// column name. The statement is validated before it touches the engine.
func (s *Store) ExecuteQuery(ctx context.Context, query string) ([]map[string]any, error) {
	if err := validateReadOnly(query); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapDBError("execute query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, wrapDBError("query columns", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrapDBError("scan row", err)
		}
		rowMap := make(map[string]any, len(cols))
		for i, col := range cols {
			v := values[i]
			// Text columns come back as []byte from database/sql.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rowMap[col] = v
		}
		out = append(out, rowMap)
	}
	return out, rows.Err()
}
