package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/groblegark/ktasks/internal/model"
)

var showCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task with its dependencies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := orch.GetTask(context.Background(), args[0])
		if err != nil {
			fatal(err)
		}

		if jsonOutput {
			printJSON(task)
		} else {
			printTaskTable(task)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list [status]",
	Short: "List tasks in the scope, optionally one column",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		var tasks []*model.Task
		statuses := model.Statuses()
		if len(args) == 1 {
			statuses = []model.Status{model.Status(args[0])}
		}
		for _, status := range statuses {
			column, err := backing.ListByScopeAndStatus(ctx, scope, status)
			if err != nil {
				fatal(err)
			}
			tasks = append(tasks, column...)
		}

		if jsonOutput {
			printJSON(tasks)
		} else {
			printTaskListTable(tasks)
		}
		return nil
	},
}
