package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/groblegark/ktasks/internal/events"
	"github.com/groblegark/ktasks/internal/orchestrator"
	"github.com/groblegark/ktasks/internal/store"
	"github.com/groblegark/ktasks/internal/store/memory"
	"github.com/groblegark/ktasks/internal/store/postgres"
	"github.com/groblegark/ktasks/internal/ui"
)

var (
	jsonOutput bool
	actor      string
	scope      string
	useMemory  bool

	backing   store.Store
	publisher events.Publisher
	orch      *orchestrator.Orchestrator
)

func defaultActor() string {
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func defaultScope() string {
	if s := os.Getenv("KTASKS_SCOPE"); s != "" {
		return s
	}
	return "default"
}

// openStore picks the backing store: in-memory when requested, otherwise
// PostgreSQL at the URL from the active profile or KTASKS_DATABASE_URL.
func openStore() (store.Store, error) {
	if useMemory {
		return memory.New(), nil
	}
	url := activeDatabaseURL()
	if url == "" {
		url = os.Getenv("KTASKS_DATABASE_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("no database configured: set KTASKS_DATABASE_URL, add a profile, or pass --memory")
	}
	return postgres.New(url)
}

func openPublisher() events.Publisher {
	url := activeNATSURL()
	if url == "" {
		url = os.Getenv("KTASKS_NATS_URL")
	}
	if url == "" {
		return &events.NoopPublisher{}
	}
	pub, err := events.NewNATSPublisher(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: NATS unavailable, events disabled: %v\n", err)
		return &events.NoopPublisher{}
	}
	return pub
}

var rootCmd = &cobra.Command{
	Use:   "kt",
	Short: "Task board with dependencies and recurring tasks",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		// Profile management works without a store.
		if strings.HasPrefix(cmd.CommandPath(), "kt profile") {
			return nil
		}
		var err error
		backing, err = openStore()
		if err != nil {
			return err
		}
		publisher = openPublisher()
		orch = orchestrator.New(backing, publisher, slog.Default())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if publisher != nil {
			publisher.Close()
		}
		if backing != nil {
			backing.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "actor name for created_by fields")
	rootCmd.PersistentFlags().StringVar(&scope, "scope", defaultScope(), "board scope")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "use a throwaway in-memory store")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(depCmd)
	rootCmd.AddCommand(blockedCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(profileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
