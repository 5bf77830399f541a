package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"policywrangle/internal/config"
	"policywrangle/internal/etl"
)

// initConfigCmd writes the default configuration
var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the default configuration to a YAML file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

// sourcesCmd lists the registered source types and their options
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available source types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, spec := range etl.ListSources() {
			fmt.Fprintf(out, "%s\t%s\n", spec.Type, spec.Label)
			for _, f := range spec.ConfigFields {
				req := ""
				if f.Required {
					req = " (required)"
				}
				line := fmt.Sprintf("  %s%s", f.Key, req)
				if f.Help != "" {
					line += ": " + f.Help
				}
				fmt.Fprintln(out, strings.TrimRight(line, " "))
			}
		}
		return nil
	},
}
