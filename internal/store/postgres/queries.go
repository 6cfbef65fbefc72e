package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/store"
)

// taskColumns is the column list used for SELECT statements on the tasks table.
const taskColumns = `id, scope, parent_task_id, title, description,
	status, position, priority, assignee, estimate_hours,
	due_at, created_at, created_by, updated_at, completed_at,
	is_recurring, recurrence_pattern, recurrence_interval, recurrence_days,
	recurrence_end_date, last_recurrence_at, origin_recurring_id`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateTask(ctx context.Context, db executor, t *model.Task) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, scope, parent_task_id, title, description,
			status, position, priority, assignee, estimate_hours,
			due_at, created_at, created_by, updated_at, completed_at,
			is_recurring, recurrence_pattern, recurrence_interval, recurrence_days,
			recurrence_end_date, last_recurrence_at, origin_recurring_id
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19,
			$20, $21, $22
		)`,
		t.ID,
		t.Scope,
		nullStringPtr(t.ParentTaskID),
		t.Title,
		nullString(t.Description),
		string(t.Status),
		t.Position,
		t.Priority,
		nullString(t.Assignee),
		t.EstimateHours,
		nullTimePtr(t.DueAt),
		t.CreatedAt,
		nullString(t.CreatedBy),
		t.UpdatedAt,
		nullTimePtr(t.CompletedAt),
		t.IsRecurring,
		nullString(string(t.RecurrencePattern)),
		t.RecurrenceInterval,
		pq.Array(weekdayStrings(t.RecurrenceDaysOfWeek)),
		nullTimePtr(t.RecurrenceEndDate),
		nullTimePtr(t.LastRecurrenceAt),
		nullStringPtr(t.OriginRecurringID),
	)
	return err
}

func queryGetTask(ctx context.Context, db executor, id string) (*model.Task, error) {
	row := db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func queryUpdateTask(ctx context.Context, db executor, t *model.Task) error {
	res, err := db.ExecContext(ctx, `
		UPDATE tasks SET
			scope = $2, parent_task_id = $3, title = $4, description = $5,
			status = $6, position = $7, priority = $8, assignee = $9, estimate_hours = $10,
			due_at = $11, updated_at = $12, completed_at = $13,
			is_recurring = $14, recurrence_pattern = $15, recurrence_interval = $16,
			recurrence_days = $17, recurrence_end_date = $18, last_recurrence_at = $19,
			origin_recurring_id = $20
		WHERE id = $1`,
		t.ID,
		t.Scope,
		nullStringPtr(t.ParentTaskID),
		t.Title,
		nullString(t.Description),
		string(t.Status),
		t.Position,
		t.Priority,
		nullString(t.Assignee),
		t.EstimateHours,
		nullTimePtr(t.DueAt),
		t.UpdatedAt,
		nullTimePtr(t.CompletedAt),
		t.IsRecurring,
		nullString(string(t.RecurrencePattern)),
		t.RecurrenceInterval,
		pq.Array(weekdayStrings(t.RecurrenceDaysOfWeek)),
		nullTimePtr(t.RecurrenceEndDate),
		nullTimePtr(t.LastRecurrenceAt),
		nullStringPtr(t.OriginRecurringID),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryDeleteTask(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryListByScopeAndStatus(ctx context.Context, db executor, scope string, status model.Status) ([]*model.Task, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE scope = $1 AND status = $2
		ORDER BY position`, scope, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func queryListAllTasks(ctx context.Context, db executor) ([]*model.Task, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		ORDER BY scope, status, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func queryListDueRecurring(ctx context.Context, db executor, now time.Time) ([]*model.Task, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE is_recurring
		  AND status = $1
		  AND (recurrence_end_date IS NULL OR recurrence_end_date >= $2)
		ORDER BY id`, string(model.StatusDone), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// queryUpdateTaskPositions applies a batch of status/position writes as a
// single statement so the shifted neighbors and the moved task land
// together.
func queryUpdateTaskPositions(ctx context.Context, db executor, updates []store.PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	values := make([]string, len(updates))
	args := make([]any, 0, len(updates)*3)
	for i, u := range updates {
		base := i * 3
		values[i] = fmt.Sprintf("($%d, $%d::text, $%d::int)", base+1, base+2, base+3)
		args = append(args, u.ID, string(u.Status), u.Position)
	}

	_, err := db.ExecContext(ctx, `
		UPDATE tasks AS t
		SET status = v.status, position = v.position
		FROM (VALUES `+strings.Join(values, ", ")+`) AS v(id, status, position)
		WHERE t.id = v.id`, args...)
	return err
}

func queryInsertEdge(ctx context.Context, db executor, e *model.Edge) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO task_deps (task_id, depends_on_id, type, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5)`,
		e.TaskID,
		e.DependsOnID,
		string(e.Type),
		e.CreatedAt,
		nullString(e.CreatedBy),
	)
	return err
}

func queryDeleteEdge(ctx context.Context, db executor, taskID, dependsOnID string) error {
	res, err := db.ExecContext(ctx, `
		DELETE FROM task_deps WHERE task_id = $1 AND depends_on_id = $2`,
		taskID, dependsOnID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryListOutgoingEdges(ctx context.Context, db executor, taskID string) ([]*model.Edge, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT task_id, depends_on_id, type, created_at, created_by
		FROM task_deps WHERE task_id = $1
		ORDER BY created_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func queryListAllEdges(ctx context.Context, db executor) ([]*model.Edge, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT task_id, depends_on_id, type, created_at, created_by
		FROM task_deps
		ORDER BY task_id, depends_on_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, task_id, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		e.Topic,
		e.TaskID,
		nullString(e.Actor),
		jsonbBytes(e.Payload),
		e.CreatedAt,
	).Scan(&e.ID)
}

func queryListEvents(ctx context.Context, db executor, taskID string) ([]*model.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, topic, task_id, actor, payload, created_at
		FROM events WHERE task_id = $1
		ORDER BY id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// requireRow converts a zero-row result into store.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
