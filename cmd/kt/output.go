package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printTaskTable(t *model.Task) {
	fmt.Printf("ID:          %s\n", ui.RenderAccent(t.ID))
	fmt.Printf("Title:       %s\n", t.Title)
	fmt.Printf("Scope:       %s\n", t.Scope)
	fmt.Printf("Status:      %s\n", ui.RenderStatus(t.Status))
	fmt.Printf("Position:    %d\n", t.Position)
	fmt.Printf("Priority:    %d\n", t.Priority)
	if t.Assignee != "" {
		fmt.Printf("Assignee:    %s\n", t.Assignee)
	}
	if t.Description != "" {
		fmt.Printf("Description: %s\n", t.Description)
	}
	if t.DueAt != nil {
		fmt.Printf("Due At:      %s\n", t.DueAt.Format("2006-01-02 15:04:05"))
	}
	if t.IsRecurring {
		fmt.Printf("Recurs:      every %d %s\n", t.RecurrenceInterval, t.RecurrencePattern)
		if len(t.RecurrenceDaysOfWeek) > 0 {
			fmt.Printf("On Days:     %v\n", t.RecurrenceDaysOfWeek)
		}
	}
	if t.OriginRecurringID != nil {
		fmt.Printf("Origin:      %s\n", ui.RenderMuted(*t.OriginRecurringID))
	}
	if len(t.Dependencies) > 0 {
		fmt.Println("Depends On:")
		for _, d := range t.Dependencies {
			fmt.Printf("  %s (%s)\n", d.DependsOnID, d.Type)
		}
	}
	fmt.Printf("Created By:  %s\n", t.CreatedBy)
	fmt.Printf("Created At:  %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	if t.CompletedAt != nil {
		fmt.Printf("Done At:     %s\n", t.CompletedAt.Format("2006-01-02 15:04:05"))
	}
}

func printTaskListTable(tasks []*model.Task) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPOS\tPRIORITY\tTITLE\tASSIGNEE")
	for _, t := range tasks {
		title := t.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			t.ID, t.Status, t.Position, t.Priority, title, t.Assignee)
	}
	w.Flush()
	fmt.Printf("\n%d tasks\n", len(tasks))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
