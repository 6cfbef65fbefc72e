package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/groblegark/ktasks/internal/config"
	"github.com/groblegark/ktasks/internal/export"
)

// daemonCmd runs the background workers: the periodic recurrence sweep
// and, when configured, periodic S3 board snapshots. Settings come from
// KTASKS_ environment variables rather than flags so the process can run
// under a supervisor.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the recurrence sweeper and snapshot scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := slog.Default()
		ctx := context.Background()

		var snapshots *export.Scheduler
		if cfg.SnapshotInterval > 0 && cfg.SnapshotS3Bucket != "" {
			dest, err := export.NewS3Destination(ctx, cfg.SnapshotS3Bucket, cfg.SnapshotS3Key, cfg.SnapshotS3Region, cfg.SnapshotS3Endpoint)
			if err != nil {
				return fmt.Errorf("snapshot destination: %w", err)
			}
			snapshots = export.NewScheduler(backing, []export.Destination{dest}, cfg.SnapshotInterval, logger)
			snapshots.Start()
			defer snapshots.Stop()
			logger.Info("snapshot scheduler started", "interval", cfg.SnapshotInterval, "bucket", cfg.SnapshotS3Bucket)
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		if cfg.SweepInterval <= 0 {
			logger.Info("recurrence sweep disabled, waiting for shutdown")
			<-stop
			return nil
		}

		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		logger.Info("recurrence sweeper started", "interval", cfg.SweepInterval)

		for {
			n, err := orch.RunRecurrenceSweep(ctx, time.Now().UTC())
			if err != nil {
				logger.Error("recurrence sweep failed", "error", err)
			} else if n > 0 {
				logger.Info("recurrence sweep completed", "spawned", n)
			}
			select {
			case <-stop:
				return nil
			case <-ticker.C:
			}
		}
	},
}
