// Package export writes board snapshots as JSONL and ships them to
// configured destinations on a schedule.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/groblegark/ktasks/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TaskCount int       `json:"task_count"`
	EdgeCount int       `json:"edge_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every task and dependency edge from the store as
// JSONL to w. Tasks are sorted by ID so successive snapshots of the same
// board diff cleanly.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	tasks, err := s.ListAllTasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ID < tasks[j].ID
	})

	edges, err := s.ListAllEdges(ctx)
	if err != nil {
		return fmt.Errorf("list edges: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Timestamp: time.Now().UTC(),
		TaskCount: len(tasks),
		EdgeCount: len(edges),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, t := range tasks {
		if err := enc.Encode(record{Type: "task", Data: t}); err != nil {
			return fmt.Errorf("encode task %s: %w", t.ID, err)
		}
	}

	for _, e := range edges {
		if err := enc.Encode(record{Type: "edge", Data: e}); err != nil {
			return fmt.Errorf("encode edge %s->%s: %w", e.TaskID, e.DependsOnID, err)
		}
	}

	return nil
}
