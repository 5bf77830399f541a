package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"policywrangle/internal/config"
	"policywrangle/internal/etl"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Set up by PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "policywrangle",
	Short: "Turn prison distancing policy records into per-state indicator tables",
	Long: `policywrangle reads state-level prison policy records and derives binary
indicator columns from mark-style columns ("X", blank, free text) and from a
free-text policy summary, then writes the selected columns as CSV or JSON.

Configuration lives in a YAML file; run "policywrangle init-config" for a
starting point.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		logger, err = newLogger(cfg.Logging.Level, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "policywrangle.yaml", "Path to the YAML configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd, previewCmd, watchCmd, sourcesCmd, initConfigCmd)
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = lvl
	}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

// newDestination writes to the configured output file, or to w when no
// path is set.
func newDestination(w io.Writer) (etl.Destination, error) {
	if cfg.Output.Path != "" {
		return &etl.FileWriter{Path: cfg.Output.Path, Format: cfg.Output.Format}, nil
	}
	return etl.NewDestination(cfg.Output.Format, w)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
