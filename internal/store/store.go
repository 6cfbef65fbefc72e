package store

import (
	"context"
	"errors"
	"time"

	"github.com/groblegark/ktasks/internal/model"
)

// ErrNotFound is returned when a requested task or edge does not exist.
// Backends map their own missing-row signals (e.g. sql.ErrNoRows) to it.
var ErrNotFound = errors.New("store: not found")

// PositionUpdate is one row of a batch re-sequencing. Backends must apply a
// batch as a single unit so no reader observes duplicate or gapped positions
// within a (scope, status) partition.
type PositionUpdate struct {
	ID       string
	Status   model.Status
	Position int
}

// Store defines the persistence interface the orchestration core runs over.
type Store interface {
	// Task CRUD
	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	DeleteTask(ctx context.Context, id string) error

	// ListByScopeAndStatus returns a column's tasks ordered by position.
	ListByScopeAndStatus(ctx context.Context, scope string, status model.Status) ([]*model.Task, error)

	// ListAllTasks returns every task, ordered by creation time. Used by
	// snapshot export.
	ListAllTasks(ctx context.Context) ([]*model.Task, error)

	// ListDueRecurring returns tasks eligible for the recurrence sweep:
	// recurring, done, and with no end date or an end date at or after now.
	ListDueRecurring(ctx context.Context, now time.Time) ([]*model.Task, error)

	// UpdateTaskPositions applies a batch of status/position assignments.
	UpdateTaskPositions(ctx context.Context, updates []PositionUpdate) error

	// Dependency edges
	InsertEdge(ctx context.Context, edge *model.Edge) error
	DeleteEdge(ctx context.Context, taskID, dependsOnID string) error
	ListOutgoingEdges(ctx context.Context, taskID string) ([]*model.Edge, error)
	ListAllEdges(ctx context.Context) ([]*model.Edge, error)

	// Events
	RecordEvent(ctx context.Context, event *model.Event) error
	ListEvents(ctx context.Context, taskID string) ([]*model.Event, error)

	// RunInTransaction runs fn against a transactional view of the store,
	// committing on nil and rolling back on error. Nested calls reuse the
	// open transaction.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
