package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateTask checks a Task for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the task is valid.
func ValidateTask(t *Task) error {
	var ve ValidationError

	title := strings.TrimSpace(t.Title)
	if title == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "title", Message: "is required"})
	} else if len([]rune(title)) > 500 {
		ve.Errors = append(ve.Errors, FieldError{Field: "title", Message: "must be 500 characters or fewer"})
	}

	if strings.TrimSpace(t.Scope) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "scope", Message: "is required"})
	}

	if !t.Status.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "status",
			Message: fmt.Sprintf("invalid value %q", t.Status),
		})
	}

	if t.Position < 0 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "position",
			Message: fmt.Sprintf("must be non-negative, got %d", t.Position),
		})
	}

	if t.Priority < 0 || t.Priority > 4 {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "priority",
			Message: fmt.Sprintf("must be between 0 and 4, got %d", t.Priority),
		})
	}

	if t.IsRecurring {
		if !t.RecurrencePattern.IsValid() {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   "recurrence_pattern",
				Message: fmt.Sprintf("invalid value %q", t.RecurrencePattern),
			})
		}
		if t.RecurrenceInterval < 1 {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   "recurrence_interval",
				Message: fmt.Sprintf("must be at least 1, got %d", t.RecurrenceInterval),
			})
		}
		for _, d := range t.RecurrenceDaysOfWeek {
			if !d.IsValid() {
				ve.Errors = append(ve.Errors, FieldError{
					Field:   "recurrence_days_of_week",
					Message: fmt.Sprintf("invalid weekday %q", d),
				})
			}
		}
	}

	// CompletedAt consistency with Status.
	if t.Status == StatusDone && t.CompletedAt == nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "completed_at",
			Message: "must be set when status is done",
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateEdge checks an Edge for constraint violations.
func ValidateEdge(e *Edge) error {
	var ve ValidationError

	if e.TaskID == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "task_id", Message: "is required"})
	}
	if e.DependsOnID == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "depends_on_id", Message: "is required"})
	}
	if !e.Type.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "type",
			Message: fmt.Sprintf("invalid value %q", e.Type),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
