package model

import "time"

// Status represents the board column a task currently occupies.
type Status string

const (
	StatusBacklog Status = "backlog"
	StatusActive  Status = "active"
	StatusReview  Status = "review"
	StatusDone    Status = "done"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusBacklog, StatusActive, StatusReview, StatusDone:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends a task's workflow.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// Statuses lists every recognized status in workflow order.
func Statuses() []Status {
	return []Status{StatusBacklog, StatusActive, StatusReview, StatusDone}
}

// Task is the core work-item record. Position is unique within the
// (Scope, Status) partition and the values of a partition always form a
// contiguous zero-based sequence.
type Task struct {
	ID           string  `json:"id"`
	Scope        string  `json:"scope"`
	ParentTaskID *string `json:"parent_task_id,omitempty"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Status       Status  `json:"status"`
	Position     int     `json:"position"`
	Priority     int     `json:"priority"`
	Assignee     string  `json:"assignee,omitempty"`
	EstimateHours int    `json:"estimate_hours,omitempty"`

	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CreatedBy   string     `json:"created_by,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Recurrence bookkeeping. OriginRecurringID links every spawned
	// occurrence back to the first task of its chain; there is no separate
	// chain entity.
	IsRecurring          bool       `json:"is_recurring"`
	RecurrencePattern    Pattern    `json:"recurrence_pattern,omitempty"`
	RecurrenceInterval   int        `json:"recurrence_interval,omitempty"`
	RecurrenceDaysOfWeek []Weekday  `json:"recurrence_days_of_week,omitempty"`
	RecurrenceEndDate    *time.Time `json:"recurrence_end_date,omitempty"`
	LastRecurrenceAt     *time.Time `json:"last_recurrence_at,omitempty"`
	OriginRecurringID    *string    `json:"origin_recurring_id,omitempty"`

	// Relational data -- populated by queries, not stored on the tasks table.
	Dependencies []*Edge `json:"dependencies,omitempty"`
}

// Summary is the minimal task projection surfaced in blocking reports.
type Summary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`
}

// Summarize returns the task's summary projection.
func (t *Task) Summarize() Summary {
	return Summary{ID: t.ID, Title: t.Title, Status: t.Status}
}
