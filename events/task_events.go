package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/taskboard/domain/task"
)

// TaskState is the snapshot pushed to the notification sink after every
// committed mutation. Delivery is best-effort; consumers must tolerate gaps.
type TaskState struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Status       domain.Status   `json:"status"`
	Priority     domain.Priority `json:"priority"`
	AssignedUser string          `json:"assignedUser,omitempty"`
	LastEditedBy string          `json:"lastEditedBy"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Snapshot converts a domain task into its event representation.
func Snapshot(t *domain.Task) TaskState {
	return TaskState{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		AssignedUser: t.AssignedUser,
		LastEditedBy: t.LastEditedBy,
		Version:      t.Version,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// TaskCreatedEvent is emitted after a task is created.
type TaskCreatedEvent struct {
	Task  TaskState `json:"task"`
	Actor string    `json:"actor"`
}

// TaskUpdatedEvent is emitted after a field update commits.
type TaskUpdatedEvent struct {
	Task  TaskState `json:"task"`
	Actor string    `json:"actor"`
}

// TaskMovedEvent is emitted when an update changed only the board column.
type TaskMovedEvent struct {
	Task  TaskState     `json:"task"`
	Actor string        `json:"actor"`
	From  domain.Status `json:"from"`
	To    domain.Status `json:"to"`
}

// TaskDeletedEvent is emitted after a hard delete. Task carries the final
// pre-delete snapshot; the store retains nothing afterwards.
type TaskDeletedEvent struct {
	Task  TaskState `json:"task"`
	Actor string    `json:"actor"`
}

// TaskAssignedEvent is emitted after a smart assignment commits.
type TaskAssignedEvent struct {
	Task       TaskState `json:"task"`
	Actor      string    `json:"actor"`
	AssignedTo string    `json:"assignedTo"`
	Username   string    `json:"username"`
}

// Typed event definitions for the task domain.
var (
	// Subject: events.task.v1.task-created
	TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
		"task", "TaskCreated", "v1",
	)

	// Subject: events.task.v1.task-updated
	TaskUpdatedV1 = helper.EventDefinition[TaskUpdatedEvent](
		"task", "TaskUpdated", "v1",
	)

	// Subject: events.task.v1.task-moved
	TaskMovedV1 = helper.EventDefinition[TaskMovedEvent](
		"task", "TaskMoved", "v1",
	)

	// Subject: events.task.v1.task-deleted
	TaskDeletedV1 = helper.EventDefinition[TaskDeletedEvent](
		"task", "TaskDeleted", "v1",
	)

	// Subject: events.task.v1.task-assigned
	TaskAssignedV1 = helper.EventDefinition[TaskAssignedEvent](
		"task", "TaskAssigned", "v1",
	)
)
