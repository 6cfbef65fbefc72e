// Package taskerr provides the structured error taxonomy of the
// orchestration core. Every user-correctable failure carries a stable Code;
// store-level failures wrap their cause and are the only retryable class.
package taskerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/groblegark/ktasks/internal/model"
)

// Code identifies a failure condition.
type Code string

const (
	CodeTaskNotFound     Code = "TASK_NOT_FOUND"
	CodeEdgeNotFound     Code = "EDGE_NOT_FOUND"
	CodeSelfReference    Code = "SELF_REFERENCE"
	CodeDuplicateEdge    Code = "DUPLICATE_EDGE"
	CodeWouldCreateCycle Code = "WOULD_CREATE_CYCLE"
	CodeInvalidStatus    Code = "INVALID_STATUS"
	CodeBlocked          Code = "BLOCKED"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeStoreFailure     Code = "STORE_FAILURE"
)

// Error is the structured error type of the core.
type Error struct {
	Code Code
	Msg  string

	// Blocking is populated for CodeBlocked: the unmet finish-to-start
	// dependencies that prevent the operation.
	Blocking []model.Summary

	// CyclePath is populated for CodeWouldCreateCycle: the existing path
	// from the proposed dependency back to the dependent.
	CyclePath []string

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Msg)
	if len(e.CyclePath) > 0 {
		b.WriteString(" (path: ")
		b.WriteString(strings.Join(e.CyclePath, " -> "))
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code, so callers can
// match conditions with errors.Is against the sentinel constructors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Retryable reports whether callers may retry the failed operation. Only
// store-level failures qualify; everything else needs user correction.
func (e *Error) Retryable() bool {
	return e.Code == CodeStoreFailure
}

// CodeOf extracts the code from err, or "" if err is not a taskerr.Error.
func CodeOf(err error) Code {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// TaskNotFound reports that no task with the given id exists.
func TaskNotFound(id string) *Error {
	return &Error{Code: CodeTaskNotFound, Msg: fmt.Sprintf("task %s not found", id)}
}

// EdgeNotFound reports that the (dependent, dependency) edge does not exist.
func EdgeNotFound(taskID, dependsOnID string) *Error {
	return &Error{Code: CodeEdgeNotFound, Msg: fmt.Sprintf("dependency %s -> %s not found", taskID, dependsOnID)}
}

// SelfReference reports an attempt to make a task depend on itself.
func SelfReference(id string) *Error {
	return &Error{Code: CodeSelfReference, Msg: fmt.Sprintf("task %s cannot depend on itself", id)}
}

// DuplicateEdge reports that the edge already exists.
func DuplicateEdge(taskID, dependsOnID string) *Error {
	return &Error{Code: CodeDuplicateEdge, Msg: fmt.Sprintf("dependency %s -> %s already exists", taskID, dependsOnID)}
}

// WouldCreateCycle reports that adding the edge would make the graph cyclic.
// path is the existing route from the proposed dependency back to the
// dependent, included for diagnostics.
func WouldCreateCycle(taskID, dependsOnID string, path []string) *Error {
	return &Error{
		Code:      CodeWouldCreateCycle,
		Msg:       fmt.Sprintf("dependency %s -> %s would create a cycle", taskID, dependsOnID),
		CyclePath: path,
	}
}

// InvalidStatus reports a target status outside the recognized set.
func InvalidStatus(status string) *Error {
	return &Error{Code: CodeInvalidStatus, Msg: fmt.Sprintf("invalid status %q", status)}
}

// Blocked reports a move rejected by unmet finish-to-start dependencies.
func Blocked(taskID string, blocking []model.Summary) *Error {
	return &Error{
		Code:     CodeBlocked,
		Msg:      fmt.Sprintf("task %s is blocked by %d unfinished dependencies", taskID, len(blocking)),
		Blocking: blocking,
	}
}

// InvalidInput reports a malformed request before any store access.
func InvalidInput(msg string) *Error {
	return &Error{Code: CodeInvalidInput, Msg: msg}
}

// StoreFailure wraps an infrastructure error from the task store.
func StoreFailure(op string, cause error) *Error {
	return &Error{Code: CodeStoreFailure, Msg: op + " failed", Cause: cause}
}
