package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dxta-dev/clankers/internal/config"
	"github.com/dxta-dev/clankers/internal/paths"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage config profiles",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the active profile's settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(paths.ConfigPath())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "profile: %s\n", cfg.ActiveProfile)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, kv := range cfg.Settings() {
			fmt.Fprintf(w, "%s\t%s\n", kv[0], kv[1])
		}
		return w.Flush()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting of the active profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(paths.ConfigPath())
		if err != nil {
			return err
		}
		v, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one setting of the active profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := paths.ConfigPath()
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		return cfg.Save(path)
	},
}

var configProfilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List profiles and switch between them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(paths.ConfigPath())
		if err != nil {
			return err
		}
		for _, name := range cfg.ProfileNames() {
			marker := "  "
			if name == cfg.ActiveProfile {
				marker = "* "
			}
			fmt.Fprintln(cmd.OutOrStdout(), marker+name)
		}
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use <profile>",
	Short: "Switch the active profile, creating it if new",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := paths.ConfigPath()
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg.Use(args[0])
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "switched to profile %q\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configProfilesCmd, configUseCmd)
	rootCmd.AddCommand(configCmd)
}
