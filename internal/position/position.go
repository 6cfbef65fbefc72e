// Package position keeps each (scope, status) column a contiguous
// zero-based sequence and performs atomic reorder moves within and
// across columns.
package position

import (
	"context"
	"errors"
	"sync"

	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/store"
	"github.com/groblegark/ktasks/internal/taskerr"
)

// Manager computes and applies positional shifts. All mutations are
// serialized: a concurrent move reading stale positions would corrupt
// column contiguity.
type Manager struct {
	store store.Store
	mu    sync.Mutex
}

func New(s store.Store) *Manager {
	return &Manager{store: s}
}

// Move relocates a task to targetStatus at targetPos within its scope,
// shifting neighbors so both columns stay contiguous. Out-of-range
// targets clamp to the nearest valid slot. The shifted batch and the
// moved task are written in one transaction.
func (m *Manager) Move(ctx context.Context, taskID string, targetStatus model.Status, targetPos int) (*model.Task, error) {
	if !targetStatus.IsValid() {
		return nil, taskerr.InvalidStatus(string(targetStatus))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var moved *model.Task
	err := m.store.RunInTransaction(ctx, func(tx store.Store) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return taskerr.TaskNotFound(taskID)
			}
			return taskerr.StoreFailure("get task", err)
		}

		var updates []store.PositionUpdate
		if task.Status == targetStatus {
			updates, targetPos, err = m.sameColumnShifts(ctx, tx, task, targetPos)
		} else {
			updates, targetPos, err = m.crossColumnShifts(ctx, tx, task, targetStatus, targetPos)
		}
		if err != nil {
			return err
		}

		updates = append(updates, store.PositionUpdate{
			ID:       task.ID,
			Status:   targetStatus,
			Position: targetPos,
		})
		if err := tx.UpdateTaskPositions(ctx, updates); err != nil {
			return taskerr.StoreFailure("apply position updates", err)
		}

		moved, err = tx.GetTask(ctx, taskID)
		if err != nil {
			return taskerr.StoreFailure("reload task", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// sameColumnShifts computes the shifts for a reorder within the task's
// current column. Forward moves pull the tasks strictly between the old
// and new slots back by one; backward moves push them forward by one.
func (m *Manager) sameColumnShifts(ctx context.Context, tx store.Store, task *model.Task, targetPos int) ([]store.PositionUpdate, int, error) {
	column, err := tx.ListByScopeAndStatus(ctx, task.Scope, task.Status)
	if err != nil {
		return nil, 0, taskerr.StoreFailure("list column", err)
	}
	targetPos = clamp(targetPos, 0, len(column)-1)
	oldPos := task.Position
	if targetPos == oldPos {
		return nil, targetPos, nil
	}

	var updates []store.PositionUpdate
	for _, t := range column {
		if t.ID == task.ID {
			continue
		}
		switch {
		case targetPos > oldPos && t.Position > oldPos && t.Position <= targetPos:
			updates = append(updates, store.PositionUpdate{ID: t.ID, Status: t.Status, Position: t.Position - 1})
		case targetPos < oldPos && t.Position >= targetPos && t.Position < oldPos:
			updates = append(updates, store.PositionUpdate{ID: t.ID, Status: t.Status, Position: t.Position + 1})
		}
	}
	return updates, targetPos, nil
}

// crossColumnShifts closes the gap left in the source column and opens a
// slot in the destination column.
func (m *Manager) crossColumnShifts(ctx context.Context, tx store.Store, task *model.Task, targetStatus model.Status, targetPos int) ([]store.PositionUpdate, int, error) {
	source, err := tx.ListByScopeAndStatus(ctx, task.Scope, task.Status)
	if err != nil {
		return nil, 0, taskerr.StoreFailure("list source column", err)
	}
	dest, err := tx.ListByScopeAndStatus(ctx, task.Scope, targetStatus)
	if err != nil {
		return nil, 0, taskerr.StoreFailure("list destination column", err)
	}
	targetPos = clamp(targetPos, 0, len(dest))

	var updates []store.PositionUpdate
	for _, t := range source {
		if t.ID != task.ID && t.Position > task.Position {
			updates = append(updates, store.PositionUpdate{ID: t.ID, Status: t.Status, Position: t.Position - 1})
		}
	}
	for _, t := range dest {
		if t.Position >= targetPos {
			updates = append(updates, store.PositionUpdate{ID: t.ID, Status: t.Status, Position: t.Position + 1})
		}
	}
	return updates, targetPos, nil
}

// Append returns the next free position at the tail of the column. The
// caller persists the task itself; Append only answers "where".
func (m *Manager) Append(ctx context.Context, s store.Store, scope string, status model.Status) (int, error) {
	column, err := s.ListByScopeAndStatus(ctx, scope, status)
	if err != nil {
		return 0, taskerr.StoreFailure("list column", err)
	}
	return len(column), nil
}

// Compact renumbers every column in the scope to 0..n-1 preserving the
// current order. Run after external deletions that may have left holes.
func (m *Manager) Compact(ctx context.Context, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.RunInTransaction(ctx, func(tx store.Store) error {
		var updates []store.PositionUpdate
		for _, status := range model.Statuses() {
			column, err := tx.ListByScopeAndStatus(ctx, scope, status)
			if err != nil {
				return taskerr.StoreFailure("list column", err)
			}
			for i, t := range column {
				if t.Position != i {
					updates = append(updates, store.PositionUpdate{ID: t.ID, Status: t.Status, Position: i})
				}
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.UpdateTaskPositions(ctx, updates); err != nil {
			return taskerr.StoreFailure("apply position updates", err)
		}
		return nil
	})
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
