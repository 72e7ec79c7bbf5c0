package task

import (
	"errors"
	"fmt"

	domain "github.com/example/taskboard/domain/task"
)

var (
	// ErrTaskNotFound is returned when a task id does not resolve.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNoCandidates is returned when assignment is attempted with an
	// empty user population.
	ErrNoCandidates = errors.New("no candidate users for assignment")
	// ErrEmptyPatch is returned when an update submits no changes.
	ErrEmptyPatch = errors.New("update must change at least one field")
	// ErrEmptyTitle is returned when a title is missing or blank.
	ErrEmptyTitle = errors.New("task title cannot be empty")
	// ErrTitleTooLong is returned when a title exceeds 100 characters.
	ErrTitleTooLong = errors.New("task title cannot exceed 100 characters")
	// ErrDescriptionTooLong is returned when a description exceeds 500 characters.
	ErrDescriptionTooLong = errors.New("description cannot exceed 500 characters")
	// ErrInvalidStatus is returned for an unknown board column.
	ErrInvalidStatus = errors.New("status must be Todo, In Progress, or Done")
	// ErrInvalidPriority is returned for an unknown priority.
	ErrInvalidPriority = errors.New("priority must be Low, Medium, or High")
)

// DuplicateTitleError is returned when a create or rename collides with an
// existing task title or with a board column label. Nothing is applied.
type DuplicateTitleError struct {
	Title string
	// ColumnLabel is true when the collision is with a board column
	// label rather than another task.
	ColumnLabel bool
}

func (e *DuplicateTitleError) Error() string {
	if e.ColumnLabel {
		return fmt.Sprintf("task title %q matches a board column name", e.Title)
	}
	return fmt.Sprintf("task title %q already exists", e.Title)
}

// VersionConflictError is returned when a caller's expected version is stale.
// Current carries the authoritative server-side record so the caller can
// reconcile; the stored task is left untouched.
type VersionConflictError struct {
	TaskID           string
	SubmittedVersion int64
	Current          *domain.Task
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on task %s: submitted %d, server has %d",
		e.TaskID, e.SubmittedVersion, e.Current.Version)
}
