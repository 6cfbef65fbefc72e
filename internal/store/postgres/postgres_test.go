package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

// taskRowColumns is the column list for scanTask results.
var taskRowColumns = []string{
	"id", "scope", "parent_task_id", "title", "description",
	"status", "position", "priority", "assignee", "estimate_hours",
	"due_at", "created_at", "created_by", "updated_at", "completed_at",
	"is_recurring", "recurrence_pattern", "recurrence_interval", "recurrence_days",
	"recurrence_end_date", "last_recurrence_at", "origin_recurring_id",
}

// addTaskRow adds a minimal task row to a sqlmock.Rows.
func addTaskRow(rows *sqlmock.Rows, id, scope, title, status string, position int, now time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, scope, nil, title, nil,
		status, position, 0, nil, 0,
		nil, now, nil, now, nil,
		false, nil, 0, "{}",
		nil, nil, nil,
	)
}

func TestCreateTask(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(0, 1))

	task := &model.Task{
		ID: "tk-1", Scope: "ws-1", Title: "Write release notes",
		Status: model.StatusBacklog, Position: 0,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := queryCreateTask(context.Background(), db, task); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestGetTask(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(taskRowColumns)
	addTaskRow(rows, "tk-1", "ws-1", "Write release notes", "backlog", 0, now)
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id = \\$1").
		WithArgs("tk-1").
		WillReturnRows(rows)

	task, err := queryGetTask(context.Background(), db, "tk-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if task.ID != "tk-1" || task.Scope != "ws-1" || task.Status != model.StatusBacklog {
		t.Errorf("unexpected task: %+v", task)
	}
	if task.DueAt != nil || task.ParentTaskID != nil {
		t.Errorf("null columns must scan to nil pointers: %+v", task)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id = \\$1").
		WithArgs("tk-missing").
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	_, err := queryGetTask(context.Background(), db, "tk-missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestGetTask_RecurrenceColumns(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(taskRowColumns).AddRow(
		"tk-1", "ws-1", nil, "Weekly report", nil,
		"done", 0, 2, "alice", 4,
		now, now, "alice", now, now,
		true, "weekly", 1, "{mon,wed}",
		nil, nil, "tk-0",
	)
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id = \\$1").
		WithArgs("tk-1").
		WillReturnRows(rows)

	task, err := queryGetTask(context.Background(), db, "tk-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !task.IsRecurring || task.RecurrencePattern != model.PatternWeekly || task.RecurrenceInterval != 1 {
		t.Errorf("recurrence fields not scanned: %+v", task)
	}
	if len(task.RecurrenceDaysOfWeek) != 2 || task.RecurrenceDaysOfWeek[0] != model.Monday {
		t.Errorf("weekday array not scanned: %v", task.RecurrenceDaysOfWeek)
	}
	if task.OriginRecurringID == nil || *task.OriginRecurringID != "tk-0" {
		t.Errorf("origin not scanned: %v", task.OriginRecurringID)
	}
}

func TestUpdateTask_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE tasks SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	task := &model.Task{ID: "tk-missing", Scope: "ws-1", Title: "x", Status: model.StatusBacklog}
	err := queryUpdateTask(context.Background(), db, task)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestListByScopeAndStatus(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(taskRowColumns)
	addTaskRow(rows, "tk-1", "ws-1", "First", "backlog", 0, now)
	addTaskRow(rows, "tk-2", "ws-1", "Second", "backlog", 1, now)
	mock.ExpectQuery("SELECT .+ FROM tasks\\s+WHERE scope = \\$1 AND status = \\$2\\s+ORDER BY position").
		WithArgs("ws-1", "backlog").
		WillReturnRows(rows)

	tasks, err := queryListByScopeAndStatus(context.Background(), db, "ws-1", model.StatusBacklog)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "tk-1" || tasks[1].ID != "tk-2" {
		t.Errorf("unexpected tasks: %+v", tasks)
	}
}

func TestListDueRecurring(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(taskRowColumns)
	addTaskRow(rows, "tk-1", "ws-1", "Standup", "done", 0, now)
	mock.ExpectQuery("SELECT .+ FROM tasks\\s+WHERE is_recurring").
		WithArgs("done", now).
		WillReturnRows(rows)

	tasks, err := queryListDueRecurring(context.Background(), db, now)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("expected 1 task, got %d", len(tasks))
	}
}

func TestUpdateTaskPositions(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE tasks AS t\s+SET status = v.status, position = v.position\s+FROM \(VALUES \(\$1, \$2::text, \$3::int\), \(\$4, \$5::text, \$6::int\)\)`).
		WithArgs("tk-1", "backlog", 1, "tk-2", "active", 0).
		WillReturnResult(sqlmock.NewResult(0, 2))

	updates := []store.PositionUpdate{
		{ID: "tk-1", Status: model.StatusBacklog, Position: 1},
		{ID: "tk-2", Status: model.StatusActive, Position: 0},
	}
	if err := queryUpdateTaskPositions(context.Background(), db, updates); err != nil {
		t.Fatalf("batch update: %v", err)
	}
}

func TestUpdateTaskPositions_Empty(t *testing.T) {
	db, _ := newMockDB(t)
	if err := queryUpdateTaskPositions(context.Background(), db, nil); err != nil {
		t.Fatalf("empty batch must be a no-op: %v", err)
	}
}

func TestInsertAndDeleteEdge(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectExec("INSERT INTO task_deps").
		WithArgs("tk-1", "tk-2", "finish_to_start", now, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM task_deps WHERE task_id = \\$1 AND depends_on_id = \\$2").
		WithArgs("tk-1", "tk-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM task_deps WHERE task_id = \\$1 AND depends_on_id = \\$2").
		WithArgs("tk-1", "tk-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	edge := &model.Edge{TaskID: "tk-1", DependsOnID: "tk-2", Type: model.EdgeFinishToStart, CreatedAt: now}
	if err := queryInsertEdge(ctx, db, edge); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := queryDeleteEdge(ctx, db, "tk-1", "tk-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := queryDeleteEdge(ctx, db, "tk-1", "tk-2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound on second delete, got %v", err)
	}
}

func TestRecordEvent(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("INSERT INTO events").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	event := &model.Event{Topic: "ktasks.task.created", TaskID: "tk-1", Payload: []byte(`{}`)}
	if err := queryRecordEvent(context.Background(), db, event); err != nil {
		t.Fatalf("record: %v", err)
	}
	if event.ID != 7 {
		t.Errorf("event id = %d, want 7", event.ID)
	}
}

func TestRunInTransaction_Commit(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO task_deps").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.InsertEdge(context.Background(), &model.Edge{
			TaskID: "tk-1", DependsOnID: "tk-2", Type: model.EdgeFinishToStart,
		})
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestRunInTransaction_Rollback(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error to surface, got %v", err)
	}
}

func TestScanHelpers(t *testing.T) {
	// nullTimePtr
	if nullTimePtr(nil).Valid {
		t.Error("nullTimePtr(nil) should be invalid")
	}
	now := time.Now()
	if nt := nullTimePtr(&now); !nt.Valid || !nt.Time.Equal(now) {
		t.Errorf("nullTimePtr(now) = %v", nt)
	}

	// nullString
	if nullString("").Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if ns := nullString("hello"); !ns.Valid || ns.String != "hello" {
		t.Errorf("nullString(\"hello\") = %v", ns)
	}

	// nullStringPtr
	if nullStringPtr(nil).Valid {
		t.Error("nullStringPtr(nil) should be invalid")
	}
	v := "tk-0"
	if ns := nullStringPtr(&v); !ns.Valid || ns.String != "tk-0" {
		t.Errorf("nullStringPtr = %v", ns)
	}

	// jsonbBytes
	if jsonbBytes(nil) != nil {
		t.Error("jsonbBytes(nil) should be nil")
	}
	if string(jsonbBytes([]byte(`{"k":1}`))) != `{"k":1}` {
		t.Error("jsonbBytes should pass content through")
	}

	// weekdayStrings
	days := weekdayStrings([]model.Weekday{model.Monday, model.Friday})
	if len(days) != 2 || days[0] != "mon" || days[1] != "fri" {
		t.Errorf("weekdayStrings = %v", days)
	}
}
