package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"policywrangle/internal/etl"
	"policywrangle/internal/service"
)

// watchCmd re-runs the pipeline whenever the input file changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline, then re-run it each time the input file changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		dest, err := newDestination(cmd.OutOrStdout())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := service.NewPipelineService(
			&etl.Engine{Dest: dest, Log: logger},
			cfg.Job(jobID),
			cfg.InputPath(),
			&service.LogEmitter{Log: logger},
			logger,
		)

		if _, err := svc.RunOnce(ctx); err != nil {
			logger.Warn("initial run failed", zap.Error(err))
		}
		if err := svc.StartWatch(ctx); err != nil {
			return err
		}

		<-ctx.Done()
		svc.Stop()

		waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc.WaitRunning(waitCtx)
		return nil
	},
}
