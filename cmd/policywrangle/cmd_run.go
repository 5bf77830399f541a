package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"policywrangle/internal/etl"
)

const jobID = "policywrangle"

// runCmd executes the configured pipeline once
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and write the indicator table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		dest, err := newDestination(cmd.OutOrStdout())
		if err != nil {
			return err
		}

		engine := &etl.Engine{Dest: dest, Log: logger}
		result, err := engine.Run(cmd.Context(), cfg.Job(jobID))
		if err != nil {
			return err
		}
		logger.Debug("run result", zap.Any("result", result))
		return nil
	},
}

var previewRows int

// previewCmd shows the loaded table before any indicator is derived
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Load the source and print the first rows with normalized columns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := &etl.Engine{Log: logger}
		table, err := engine.Preview(cmd.Context(), cfg.Source.Type, etl.SourceConfig(cfg.Source.Options), previewRows)
		if err != nil {
			return err
		}
		dest, err := etl.NewDestination(cfg.Output.Format, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if _, err := dest.Write(cmd.Context(), table); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", 10, "Number of rows to show")
}
