package events

import (
	"context"

	"github.com/groblegark/ktasks/internal/model"
)

// Event topic constants
const (
	TopicTaskCreated       = "ktasks.task.created"
	TopicTaskMoved         = "ktasks.task.moved"
	TopicTaskDeleted       = "ktasks.task.deleted"
	TopicDependencyAdded   = "ktasks.dependency.added"
	TopicDependencyRemoved = "ktasks.dependency.removed"
	TopicRecurrenceSpawned = "ktasks.recurrence.spawned"
)

// Event types

type TaskCreated struct {
	Task *model.Task `json:"task"`
}

type TaskMoved struct {
	Task       *model.Task  `json:"task"`
	FromStatus model.Status `json:"from_status"`
	FromPos    int          `json:"from_pos"`
}

type TaskDeleted struct {
	TaskID string `json:"task_id"`
}

type DependencyAdded struct {
	Edge *model.Edge `json:"edge"`
}

type DependencyRemoved struct {
	TaskID      string `json:"task_id"`
	DependsOnID string `json:"depends_on_id"`
}

type RecurrenceSpawned struct {
	Task     *model.Task `json:"task"`
	SourceID string      `json:"source_id"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
