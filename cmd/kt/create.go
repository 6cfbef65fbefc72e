package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/orchestrator"
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		priority, _ := cmd.Flags().GetInt("priority")
		assignee, _ := cmd.Flags().GetString("assignee")
		estimate, _ := cmd.Flags().GetInt("estimate")
		dueStr, _ := cmd.Flags().GetString("due")
		every, _ := cmd.Flags().GetString("every")
		interval, _ := cmd.Flags().GetInt("interval")
		days, _ := cmd.Flags().GetStringSlice("on")

		req := orchestrator.CreateTaskRequest{
			Scope:         scope,
			Title:         args[0],
			Description:   description,
			Priority:      priority,
			Assignee:      assignee,
			EstimateHours: estimate,
			CreatedBy:     actor,
		}

		if dueStr != "" {
			due, err := time.Parse("2006-01-02", dueStr)
			if err != nil {
				return fmt.Errorf("invalid --due date %q: expected YYYY-MM-DD", dueStr)
			}
			req.DueAt = &due
		}
		if every != "" {
			req.IsRecurring = true
			req.RecurrencePattern = model.Pattern(every)
			req.RecurrenceInterval = interval
			for _, d := range days {
				req.RecurrenceDaysOfWeek = append(req.RecurrenceDaysOfWeek, model.Weekday(d))
			}
		}

		task, err := orch.CreateTask(context.Background(), req)
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

func init() {
	createCmd.Flags().StringP("description", "d", "", "task description")
	createCmd.Flags().IntP("priority", "p", 2, "task priority (0-4)")
	createCmd.Flags().String("assignee", "", "assignee")
	createCmd.Flags().Int("estimate", 0, "estimate in hours")
	createCmd.Flags().String("due", "", "due date (YYYY-MM-DD)")
	createCmd.Flags().String("every", "", "recurrence pattern (daily, weekly, monthly, yearly)")
	createCmd.Flags().Int("interval", 1, "recurrence interval")
	createCmd.Flags().StringSlice("on", nil, "weekdays for weekly recurrence (mon..sun, repeatable)")
}
