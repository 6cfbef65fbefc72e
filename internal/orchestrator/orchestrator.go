// Package orchestrator ties the dependency graph, column positions, and
// recurrence sweeps together behind one task coordination facade.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/groblegark/ktasks/internal/events"
	"github.com/groblegark/ktasks/internal/graph"
	"github.com/groblegark/ktasks/internal/idgen"
	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/position"
	"github.com/groblegark/ktasks/internal/recurrence"
	"github.com/groblegark/ktasks/internal/store"
	"github.com/groblegark/ktasks/internal/taskerr"
)

// Orchestrator is the single entry point for task mutations. Every
// operation goes through the dependency and position rules before it
// touches the store.
type Orchestrator struct {
	store      store.Store
	graph      *graph.Manager
	positions  *position.Manager
	recurrence *recurrence.Engine
	publisher  events.Publisher
	logger     *slog.Logger
}

func New(s store.Store, publisher events.Publisher, logger *slog.Logger) *Orchestrator {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:      s,
		graph:      graph.New(s),
		positions:  position.New(s),
		recurrence: recurrence.NewEngine(s, logger),
		publisher:  publisher,
		logger:     logger,
	}
}

// recordAndPublish persists an event to the store and publishes it to NATS.
// Both operations are best-effort; failures are logged but do not block the caller.
func (o *Orchestrator) recordAndPublish(ctx context.Context, topic, taskID, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		o.logger.Warn("failed to marshal event", "topic", topic, "task_id", taskID, "error", err)
		return
	}
	if err := o.store.RecordEvent(ctx, &model.Event{
		Topic:   topic,
		TaskID:  taskID,
		Actor:   actor,
		Payload: payload,
	}); err != nil {
		o.logger.Warn("failed to record event", "topic", topic, "task_id", taskID, "error", err)
	}
	if err := o.publisher.Publish(ctx, topic, event); err != nil {
		o.logger.Warn("failed to publish event", "topic", topic, "task_id", taskID, "error", err)
	}
}

// CreateTaskRequest carries the caller-supplied fields for a new task.
type CreateTaskRequest struct {
	Scope                string
	ParentTaskID         *string
	Title                string
	Description          string
	Status               model.Status
	Priority             int
	Assignee             string
	EstimateHours        int
	DueAt                *time.Time
	CreatedBy            string
	IsRecurring          bool
	RecurrencePattern    model.Pattern
	RecurrenceInterval   int
	RecurrenceDaysOfWeek []model.Weekday
	RecurrenceEndDate    *time.Time
}

// CreateTask validates the request and appends the new task to the tail
// of its column.
func (o *Orchestrator) CreateTask(ctx context.Context, req CreateTaskRequest) (*model.Task, error) {
	id, err := idgen.Generate()
	if err != nil {
		return nil, taskerr.InvalidInput("generating id: " + err.Error())
	}

	status := req.Status
	if status == "" {
		status = model.StatusBacklog
	}
	now := time.Now().UTC()
	task := &model.Task{
		ID:                   id,
		Scope:                req.Scope,
		ParentTaskID:         req.ParentTaskID,
		Title:                req.Title,
		Description:          req.Description,
		Status:               status,
		Priority:             req.Priority,
		Assignee:             req.Assignee,
		EstimateHours:        req.EstimateHours,
		DueAt:                req.DueAt,
		CreatedAt:            now,
		CreatedBy:            req.CreatedBy,
		UpdatedAt:            now,
		IsRecurring:          req.IsRecurring,
		RecurrencePattern:    req.RecurrencePattern,
		RecurrenceInterval:   req.RecurrenceInterval,
		RecurrenceDaysOfWeek: req.RecurrenceDaysOfWeek,
		RecurrenceEndDate:    req.RecurrenceEndDate,
	}
	if status == model.StatusDone {
		task.CompletedAt = &now
	}

	err = o.store.RunInTransaction(ctx, func(tx store.Store) error {
		pos, err := o.positions.Append(ctx, tx, task.Scope, task.Status)
		if err != nil {
			return err
		}
		task.Position = pos
		if err := model.ValidateTask(task); err != nil {
			return taskerr.InvalidInput(err.Error())
		}
		if err := tx.CreateTask(ctx, task); err != nil {
			return taskerr.StoreFailure("create task", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.recordAndPublish(ctx, events.TopicTaskCreated, task.ID, task.CreatedBy, events.TaskCreated{Task: task})
	return task, nil
}

// GetTask returns the task with its outgoing dependency edges attached.
func (o *Orchestrator) GetTask(ctx context.Context, id string) (*model.Task, error) {
	task, err := o.store.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, taskerr.TaskNotFound(id)
		}
		return nil, taskerr.StoreFailure("get task", err)
	}
	edges, err := o.store.ListOutgoingEdges(ctx, id)
	if err != nil {
		return nil, taskerr.StoreFailure("list edges", err)
	}
	task.Dependencies = edges
	return task, nil
}

// AddDependency records that dependent cannot start until dependency is
// done. Both tasks must exist and the new edge must keep the graph
// acyclic.
func (o *Orchestrator) AddDependency(ctx context.Context, dependentID, dependencyID string, edgeType model.EdgeType, actor string) (*model.Edge, error) {
	for _, id := range []string{dependentID, dependencyID} {
		if _, err := o.store.GetTask(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, taskerr.TaskNotFound(id)
			}
			return nil, taskerr.StoreFailure("get task", err)
		}
	}

	edge, err := o.graph.AddEdge(ctx, dependentID, dependencyID, edgeType, actor)
	if err != nil {
		return nil, err
	}

	o.recordAndPublish(ctx, events.TopicDependencyAdded, dependentID, actor, events.DependencyAdded{Edge: edge})
	return edge, nil
}

// RemoveDependency deletes the edge between the two tasks.
func (o *Orchestrator) RemoveDependency(ctx context.Context, dependentID, dependencyID string, actor string) error {
	if err := o.graph.RemoveEdge(ctx, dependentID, dependencyID); err != nil {
		return err
	}

	o.recordAndPublish(ctx, events.TopicDependencyRemoved, dependentID, actor, events.DependencyRemoved{
		TaskID:      dependentID,
		DependsOnID: dependencyID,
	})
	return nil
}

// BlockingReport answers "can this task start, and if not, why not".
type BlockingReport struct {
	CanStart bool
	Blocking []model.Summary
}

// GetBlockingTasks evaluates the task's finish-to-start dependencies.
func (o *Orchestrator) GetBlockingTasks(ctx context.Context, taskID string) (*BlockingReport, error) {
	if _, err := o.store.GetTask(ctx, taskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, taskerr.TaskNotFound(taskID)
		}
		return nil, taskerr.StoreFailure("get task", err)
	}
	ok, blocking, err := o.graph.CanStart(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &BlockingReport{CanStart: ok, Blocking: blocking}, nil
}

// MoveTask relocates a task to the target column and position. Moving
// into Active is refused while unfinished dependencies block the task;
// every other column transition is dependency-free.
func (o *Orchestrator) MoveTask(ctx context.Context, taskID string, targetStatus model.Status, targetPos int, actor string) (*model.Task, error) {
	if !targetStatus.IsValid() {
		return nil, taskerr.InvalidStatus(string(targetStatus))
	}

	before, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, taskerr.TaskNotFound(taskID)
		}
		return nil, taskerr.StoreFailure("get task", err)
	}

	if targetStatus == model.StatusActive && before.Status != model.StatusActive {
		ok, blocking, err := o.graph.CanStart(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, taskerr.Blocked(taskID, blocking)
		}
	}

	moved, err := o.positions.Move(ctx, taskID, targetStatus, targetPos)
	if err != nil {
		return nil, err
	}

	// Completion timestamps follow the Done column.
	if targetStatus == model.StatusDone && moved.CompletedAt == nil {
		now := time.Now().UTC()
		moved.CompletedAt = &now
		moved.UpdatedAt = now
		if err := o.store.UpdateTask(ctx, moved); err != nil {
			return nil, taskerr.StoreFailure("update task", err)
		}
	} else if targetStatus != model.StatusDone && moved.CompletedAt != nil {
		moved.CompletedAt = nil
		moved.UpdatedAt = time.Now().UTC()
		if err := o.store.UpdateTask(ctx, moved); err != nil {
			return nil, taskerr.StoreFailure("update task", err)
		}
	}

	o.recordAndPublish(ctx, events.TopicTaskMoved, taskID, actor, events.TaskMoved{
		Task:       moved,
		FromStatus: before.Status,
		FromPos:    before.Position,
	})
	return moved, nil
}

// DeleteTask removes the task, drops its edges, and compacts the
// affected scope so no column is left with a positional hole.
func (o *Orchestrator) DeleteTask(ctx context.Context, taskID string, actor string) error {
	task, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return taskerr.TaskNotFound(taskID)
		}
		return taskerr.StoreFailure("get task", err)
	}
	if err := o.store.DeleteTask(ctx, taskID); err != nil {
		return taskerr.StoreFailure("delete task", err)
	}
	if err := o.positions.Compact(ctx, task.Scope); err != nil {
		return err
	}

	o.recordAndPublish(ctx, events.TopicTaskDeleted, taskID, actor, events.TaskDeleted{TaskID: taskID})
	return nil
}

// CompactScope renumbers every column in the scope.
func (o *Orchestrator) CompactScope(ctx context.Context, scope string) error {
	return o.positions.Compact(ctx, scope)
}

// RunRecurrenceSweep spawns the next occurrence of every completed
// recurring task that is due at the given instant and returns the
// number of spawns.
func (o *Orchestrator) RunRecurrenceSweep(ctx context.Context, now time.Time) (int, error) {
	spawned, err := o.recurrence.ProcessDue(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, child := range spawned {
		source := ""
		if child.OriginRecurringID != nil {
			source = *child.OriginRecurringID
		}
		o.recordAndPublish(ctx, events.TopicRecurrenceSpawned, child.ID, "", events.RecurrenceSpawned{
			Task:     child,
			SourceID: source,
		})
	}
	return len(spawned), nil
}
