package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dxta-dev/clankers/internal/daemon"
)

var daemonOpts daemon.Options

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the persistence daemon in the foreground",
	Long: `Run the persistence daemon in the foreground.

The daemon listens on a local endpoint (unix socket, or a named pipe on
Windows), owns the SQLite database, and writes the unified log. Stop it
with Ctrl-C; shutdown drains in-flight requests and removes the endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return daemon.Run(ctx, daemonOpts)
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonOpts.SocketPath, "socket", "", "endpoint path (default: platform data dir)")
	daemonCmd.Flags().StringVar(&daemonOpts.DataRoot, "data-root", "", "root directory for database, logs and socket")
	daemonCmd.Flags().StringVar(&daemonOpts.DBPath, "db-path", "", "database file path")
	daemonCmd.Flags().StringVar(&daemonOpts.LogDir, "log-dir", "", "log directory")
	daemonCmd.Flags().StringVar(&daemonOpts.LogLevel, "log-level", "", "minimum log level: debug|info|warn|error")
	rootCmd.AddCommand(daemonCmd)
}
