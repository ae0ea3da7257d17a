package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dxta-dev/clankers/internal/paths"
	"github.com/dxta-dev/clankers/internal/rpc"
)

func newCLIClient() *rpc.Client {
	return rpc.NewClient(paths.SocketPath(), rpc.ClientInfo{
		Name:    "clankers-cli",
		Version: rpc.ServerVersion,
	})
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the daemon is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newCLIClient()
		health, err := client.Health()
		if err != nil {
			return fmt.Errorf("daemon not reachable at %s: %w", paths.SocketPath(), err)
		}
		dbPath, err := client.GetDBPath()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		uptime := time.Duration(health.Uptime * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(out, "daemon: ok (v%s, up %s)\n", health.Version, uptime)
		fmt.Fprintf(out, "endpoint: %s\n", paths.SocketPath())
		fmt.Fprintf(out, "database: %s\n", dbPath)
		return nil
	},
}

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := newCLIClient().GetSessions(sessionsLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(no sessions)")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSOURCE\tCREATED")
		for _, s := range sessions {
			created := ""
			if s.CreatedAt > 0 {
				created = time.UnixMilli(s.CreatedAt).UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Title, s.Source, created)
		}
		return w.Flush()
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum sessions to list")
	rootCmd.AddCommand(statusCmd, sessionsCmd)
}
