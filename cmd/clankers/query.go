package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dxta-dev/clankers/internal/paths"
	"github.com/dxta-dev/clankers/internal/store"
)

var queryFormat string

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a read-only SQL query against the local database",
	Long: `Run a read-only SQL query against the local database.

Only SELECT (and WITH ... SELECT) statements are allowed. The database is
opened directly; WAL mode lets queries run while the daemon is writing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := paths.DBPath()
		if _, err := os.Stat(dbPath); err != nil {
			return fmt.Errorf("no database at %s (is the daemon running?)", dbPath)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		rows, err := st.ExecuteQuery(ctx, args[0])
		if err != nil {
			return queryError(ctx, st, err)
		}

		switch queryFormat {
		case "json":
			return printJSON(cmd, rows)
		case "table":
			return printTable(cmd, rows)
		default:
			return fmt.Errorf("unknown format %q (want table or json)", queryFormat)
		}
	},
}

// queryError turns store errors into actionable CLI messages: blocked
// statements get the read-only guidance, typo'd identifiers get
// suggestions.
func queryError(ctx context.Context, st *store.Store, err error) error {
	if errors.Is(err, store.ErrForbidden) {
		return fmt.Errorf("%w: only SELECT queries are allowed here; the daemon owns all writes", err)
	}
	msg := err.Error()
	if col := afterMarker(msg, "no such column: "); col != "" {
		if hints := columnHints(ctx, st, col); hints != "" {
			return fmt.Errorf("%s\n%s", msg, hints)
		}
	}
	if strings.Contains(msg, "no such table") {
		if tables, terr := st.Tables(ctx); terr == nil {
			return fmt.Errorf("%s\navailable tables: %s", msg, strings.Join(tables, ", "))
		}
	}
	return err
}

// afterMarker extracts the identifier following marker, or "".
func afterMarker(msg, marker string) string {
	i := strings.Index(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	if j := strings.IndexAny(rest, " \t\n("); j >= 0 {
		rest = rest[:j]
	}
	return strings.Trim(rest, `"'`)
}

// columnHints looks for close column-name matches across all tables.
func columnHints(ctx context.Context, st *store.Store, col string) string {
	tables, err := st.Tables(ctx)
	if err != nil {
		return ""
	}
	var lines []string
	for _, table := range tables {
		suggestions, err := st.SuggestColumnNames(ctx, table, col)
		if err != nil || len(suggestions) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("did you mean %s.%s?", table, suggestions[0]))
	}
	return strings.Join(lines, "\n")
}

func printJSON(cmd *cobra.Command, rows []map[string]any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func printTable(cmd *cobra.Command, rows []map[string]any) error {
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "(no rows)")
		return nil
	}

	cols := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, row := range rows {
		vals := make([]string, len(cols))
		for i, col := range cols {
			vals[i] = formatCell(row[col])
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d row(s)\n", len(rows))
	return nil
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func init() {
	queryCmd.Flags().StringVar(&queryFormat, "format", "table", "output format: table|json")
	rootCmd.AddCommand(queryCmd)
}
