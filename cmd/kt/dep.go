package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/ui"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage task dependencies",
}

var depAddCmd = &cobra.Command{
	Use:   "add <task-id> <depends-on-id>",
	Short: "Add a dependency between tasks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		edgeType, _ := cmd.Flags().GetString("type")

		edge, err := orch.AddDependency(context.Background(), args[0], args[1], model.EdgeType(edgeType), actor)
		if err != nil {
			fatal(err)
		}

		if jsonOutput {
			printJSON(edge)
		} else {
			fmt.Printf("Task:        %s\n", edge.TaskID)
			fmt.Printf("Depends On:  %s\n", edge.DependsOnID)
			fmt.Printf("Type:        %s\n", edge.Type)
			fmt.Printf("Created By:  %s\n", edge.CreatedBy)
			fmt.Printf("Created At:  %s\n", edge.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove <task-id> <depends-on-id>",
	Short: "Remove a dependency between tasks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := orch.RemoveDependency(context.Background(), args[0], args[1], actor); err != nil {
			fatal(err)
		}
		fmt.Println("Removed dependency")
		return nil
	},
}

var blockedCmd = &cobra.Command{
	Use:   "blocked <task-id>",
	Short: "Show which dependencies block a task from starting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := orch.GetBlockingTasks(context.Background(), args[0])
		if err != nil {
			fatal(err)
		}

		if jsonOutput {
			printJSON(report)
			return nil
		}
		if report.CanStart {
			fmt.Println("Ready to start")
			return nil
		}
		fmt.Println(ui.RenderBlocked("Blocked by:"))
		for _, b := range report.Blocking {
			fmt.Printf("  %s  %s  (%s)\n", ui.RenderAccent(b.ID), b.Title, b.Status)
		}
		return nil
	},
}

func init() {
	depAddCmd.Flags().StringP("type", "t", string(model.EdgeFinishToStart), "edge type")

	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
}
