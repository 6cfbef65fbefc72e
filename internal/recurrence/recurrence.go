// Package recurrence decides when completed recurring tasks spawn their
// next occurrence and computes drift-free due dates for the spawns.
package recurrence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/groblegark/ktasks/internal/idgen"
	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/store"
	"github.com/groblegark/ktasks/internal/taskerr"
)

// ShouldSpawn reports whether a recurring task is due for its next
// occurrence at the given instant. A task that has never recurred is
// always due. Elapsed time is measured in whole calendar units since
// the last recurrence; partial units never count.
func ShouldSpawn(t *model.Task, now time.Time) bool {
	if !t.IsRecurring || t.RecurrenceInterval < 1 {
		return false
	}
	if t.LastRecurrenceAt == nil {
		return true
	}
	last := *t.LastRecurrenceAt

	switch t.RecurrencePattern {
	case model.PatternDaily:
		return wholeDays(last, now) >= t.RecurrenceInterval
	case model.PatternWeekly:
		if wholeDays(last, now)/7 < t.RecurrenceInterval {
			return false
		}
		if len(t.RecurrenceDaysOfWeek) == 0 {
			return true
		}
		return model.ContainsWeekday(t.RecurrenceDaysOfWeek, model.WeekdayOf(now.Weekday()))
	case model.PatternMonthly:
		return wholeMonths(last, now) >= t.RecurrenceInterval
	case model.PatternYearly:
		return wholeMonths(last, now)/12 >= t.RecurrenceInterval
	default:
		return false
	}
}

// NextDueDate returns the due date for the next occurrence: the task's
// own due date advanced by one recurrence interval. Anchoring on the
// previous due date rather than on the completion time keeps the
// schedule from drifting when tasks are finished late. Tasks without a
// due date spawn without one.
func NextDueDate(t *model.Task) *time.Time {
	if t.DueAt == nil {
		return nil
	}
	var next time.Time
	switch t.RecurrencePattern {
	case model.PatternDaily:
		next = t.DueAt.AddDate(0, 0, t.RecurrenceInterval)
	case model.PatternWeekly:
		next = t.DueAt.AddDate(0, 0, 7*t.RecurrenceInterval)
	case model.PatternMonthly:
		next = t.DueAt.AddDate(0, t.RecurrenceInterval, 0)
	case model.PatternYearly:
		next = t.DueAt.AddDate(t.RecurrenceInterval, 0, 0)
	default:
		return nil
	}
	return &next
}

func wholeDays(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func wholeMonths(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	m := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		m--
	}
	if m < 0 {
		return 0
	}
	return m
}

// Engine scans completed recurring tasks and spawns their next
// occurrences.
type Engine struct {
	store  store.Store
	logger *slog.Logger
}

func NewEngine(s store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: s, logger: logger}
}

// ProcessDue runs one sweep at the given instant and returns the tasks
// it spawned. Each source task is handled in its own transaction: the
// spawn, the source's recurrence bookkeeping, and the tail append all
// commit together or not at all. A failure on one task is logged and
// does not stop the sweep.
func (e *Engine) ProcessDue(ctx context.Context, now time.Time) ([]*model.Task, error) {
	candidates, err := e.store.ListDueRecurring(ctx, now)
	if err != nil {
		return nil, taskerr.StoreFailure("list due recurring", err)
	}

	var spawned []*model.Task
	for _, c := range candidates {
		if !ShouldSpawn(c, now) {
			continue
		}
		child, err := e.spawnOne(ctx, c.ID, now)
		if err != nil {
			e.logger.Warn("recurrence spawn failed", "task_id", c.ID, "error", err)
			continue
		}
		if child != nil {
			spawned = append(spawned, child)
		}
	}
	return spawned, nil
}

// spawnOne re-reads the source inside the transaction and re-checks that
// it still recurs, so two overlapping sweeps cannot double-spawn.
func (e *Engine) spawnOne(ctx context.Context, sourceID string, now time.Time) (*model.Task, error) {
	var child *model.Task
	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		source, err := tx.GetTask(ctx, sourceID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return taskerr.StoreFailure("get source", err)
		}
		if !source.IsRecurring || !ShouldSpawn(source, now) {
			return nil
		}

		id, err := idgen.Generate()
		if err != nil {
			return fmt.Errorf("generating spawn id: %w", err)
		}
		tail, err := tx.ListByScopeAndStatus(ctx, source.Scope, model.StatusBacklog)
		if err != nil {
			return taskerr.StoreFailure("list backlog", err)
		}

		origin := source.ID
		if source.OriginRecurringID != nil {
			origin = *source.OriginRecurringID
		}
		child = &model.Task{
			ID:                   id,
			Scope:                source.Scope,
			ParentTaskID:         source.ParentTaskID,
			Title:                source.Title,
			Description:          source.Description,
			Status:               model.StatusBacklog,
			Position:             len(tail),
			Priority:             source.Priority,
			Assignee:             source.Assignee,
			EstimateHours:        source.EstimateHours,
			DueAt:                NextDueDate(source),
			CreatedAt:            now,
			CreatedBy:            source.CreatedBy,
			UpdatedAt:            now,
			IsRecurring:          true,
			RecurrencePattern:    source.RecurrencePattern,
			RecurrenceInterval:   source.RecurrenceInterval,
			RecurrenceDaysOfWeek: append([]model.Weekday(nil), source.RecurrenceDaysOfWeek...),
			RecurrenceEndDate:    source.RecurrenceEndDate,
			OriginRecurringID:    &origin,
		}
		if err := tx.CreateTask(ctx, child); err != nil {
			return taskerr.StoreFailure("create spawn", err)
		}

		// The source stops recurring once its successor exists; the
		// chain continues through the spawn.
		source.IsRecurring = false
		last := now
		source.LastRecurrenceAt = &last
		source.UpdatedAt = now
		if err := tx.UpdateTask(ctx, source); err != nil {
			return taskerr.StoreFailure("update source", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return child, nil
}
