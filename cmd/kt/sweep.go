package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Spawn due occurrences of completed recurring tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		ctx := context.Background()

		if interval <= 0 {
			n, err := orch.RunRecurrenceSweep(ctx, time.Now().UTC())
			if err != nil {
				fatal(err)
			}
			fmt.Printf("Spawned %d tasks\n", n)
			return nil
		}

		// Periodic mode: sweep until interrupted.
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fmt.Printf("Sweeping every %s, Ctrl-C to stop\n", interval)
		for {
			n, err := orch.RunRecurrenceSweep(ctx, time.Now().UTC())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Sweep failed: %v\n", err)
			} else if n > 0 {
				fmt.Printf("Spawned %d tasks\n", n)
			}
			select {
			case <-stop:
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	sweepCmd.Flags().Duration("interval", 0, "sweep repeatedly at this interval (0 = once)")
}
