package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/taskerr"
	"github.com/groblegark/ktasks/internal/ui"
)

var moveCmd = &cobra.Command{
	Use:   "move <task-id> <status> [position]",
	Short: "Move a task to a column, optionally at a position",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetPos := 1 << 30 // default: tail of the column, the clamp handles it
		if len(args) == 3 {
			p, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid position %q", args[2])
			}
			targetPos = p
		}

		task, err := orch.MoveTask(context.Background(), args[0], model.Status(args[1]), targetPos, actor)
		if err != nil {
			var te *taskerr.Error
			if errors.As(err, &te) && te.Code == taskerr.CodeBlocked {
				fmt.Println(ui.RenderBlocked("Cannot start: blocked by unfinished dependencies"))
				for _, b := range te.Blocking {
					fmt.Printf("  %s  %s  (%s)\n", b.ID, b.Title, b.Status)
				}
			}
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

var deleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task and compact its scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := orch.DeleteTask(context.Background(), args[0], actor); err != nil {
			fatal(err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Renumber every column in the scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := orch.CompactScope(context.Background(), scope); err != nil {
			fatal(err)
		}
		fmt.Printf("Compacted scope %q\n", scope)
		return nil
	},
}
