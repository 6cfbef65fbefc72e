package model

import "time"

// EdgeType categorizes the scheduling relationship between two tasks.
// Only finish-to-start edges gate progress; the other three types are
// recorded but never block (see graph.Manager.CanStart).
type EdgeType string

const (
	EdgeFinishToStart  EdgeType = "finish_to_start"
	EdgeStartToStart   EdgeType = "start_to_start"
	EdgeFinishToFinish EdgeType = "finish_to_finish"
	EdgeStartToFinish  EdgeType = "start_to_finish"
)

// String returns the string representation of the edge type.
func (t EdgeType) String() string {
	return string(t)
}

// IsValid checks whether the edge type is a known value.
func (t EdgeType) IsValid() bool {
	switch t {
	case EdgeFinishToStart, EdgeStartToStart, EdgeFinishToFinish, EdgeStartToFinish:
		return true
	}
	return false
}

// Edge is a directed "must-finish-before" relation: TaskID depends on
// DependsOnID. The (TaskID, DependsOnID) pair is unique; type changes are
// modeled as remove+add, never mutation.
type Edge struct {
	TaskID      string    `json:"task_id"`
	DependsOnID string    `json:"depends_on_id"`
	Type        EdgeType  `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}
