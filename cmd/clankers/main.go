// clankers is the command-line front end for the clankers daemon: start
// the daemon, inspect the database with read-only SQL, and manage config
// profiles.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dxta-dev/clankers/internal/rpc"
)

var rootCmd = &cobra.Command{
	Use:           "clankers",
	Short:         "Local persistence daemon for coding-session telemetry",
	Version:       rpc.ServerVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
