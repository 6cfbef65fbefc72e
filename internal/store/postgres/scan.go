package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/groblegark/ktasks/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanTask scans a single row into a model.Task.
// The row must contain columns in the order defined by taskColumns.
func scanTask(row scannable) (*model.Task, error) {
	var t model.Task
	var (
		parentTaskID      sql.NullString
		description       sql.NullString
		assignee          sql.NullString
		createdBy         sql.NullString
		dueAt             sql.NullTime
		completedAt       sql.NullTime
		recurrencePattern sql.NullString
		recurrenceDays    pq.StringArray
		recurrenceEnd     sql.NullTime
		lastRecurrenceAt  sql.NullTime
		originRecurringID sql.NullString
	)

	err := row.Scan(
		&t.ID,
		&t.Scope,
		&parentTaskID,
		&t.Title,
		&description,
		&t.Status,
		&t.Position,
		&t.Priority,
		&assignee,
		&t.EstimateHours,
		&dueAt,
		&t.CreatedAt,
		&createdBy,
		&t.UpdatedAt,
		&completedAt,
		&t.IsRecurring,
		&recurrencePattern,
		&t.RecurrenceInterval,
		&recurrenceDays,
		&recurrenceEnd,
		&lastRecurrenceAt,
		&originRecurringID,
	)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.Assignee = assignee.String
	t.CreatedBy = createdBy.String
	t.RecurrencePattern = model.Pattern(recurrencePattern.String)

	if parentTaskID.Valid {
		t.ParentTaskID = &parentTaskID.String
	}
	if originRecurringID.Valid {
		t.OriginRecurringID = &originRecurringID.String
	}
	if dueAt.Valid {
		ts := dueAt.Time
		t.DueAt = &ts
	}
	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}
	if recurrenceEnd.Valid {
		ts := recurrenceEnd.Time
		t.RecurrenceEndDate = &ts
	}
	if lastRecurrenceAt.Valid {
		ts := lastRecurrenceAt.Time
		t.LastRecurrenceAt = &ts
	}
	for _, d := range recurrenceDays {
		t.RecurrenceDaysOfWeek = append(t.RecurrenceDaysOfWeek, model.Weekday(d))
	}

	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]*model.Task, error) {
	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanEdges(rows *sql.Rows) ([]*model.Edge, error) {
	var edges []*model.Edge
	for rows.Next() {
		var e model.Edge
		var createdBy sql.NullString
		if err := rows.Scan(&e.TaskID, &e.DependsOnID, &e.Type, &e.CreatedAt, &createdBy); err != nil {
			return nil, err
		}
		e.CreatedBy = createdBy.String
		edges = append(edges, &e)
	}
	return edges, rows.Err()
}

func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		actor   sql.NullString
		payload []byte
	)
	if err := row.Scan(&e.ID, &e.Topic, &e.TaskID, &actor, &payload, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringPtr converts a *string to sql.NullString.
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}

// weekdayStrings converts the weekday set to plain strings for a text[] column.
func weekdayStrings(days []model.Weekday) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = string(d)
	}
	return out
}
