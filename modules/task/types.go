package task

import (
	"context"
	"time"

	domain "github.com/example/taskboard/domain/task"
)

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Priority    domain.Priority `json:"priority,omitempty"`
	ActorID     string          `json:"actor_id"`
}

// GetTaskRequest is the request for getting a task.
type GetTaskRequest struct {
	TaskID string `json:"task_id"`
}

// ListTasksRequest is the request for listing tasks.
type ListTasksRequest struct{}

// ListTasksResponse is the response for listing tasks, newest first.
type ListTasksResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// UpdateTaskRequest is the request for a version-guarded update.
type UpdateTaskRequest struct {
	TaskID          string       `json:"task_id"`
	Patch           domain.Patch `json:"patch"`
	ExpectedVersion int64        `json:"expected_version"`
	ActorID         string       `json:"actor_id"`
}

// UpdateTaskResponse carries either the updated task or, on a stale write,
// the conflict payload. Exactly one of the two is set.
type UpdateTaskResponse struct {
	Task     *TaskResponse    `json:"task,omitempty"`
	Conflict *ConflictPayload `json:"conflict,omitempty"`
}

// ConflictPayload is returned on version mismatch. UserVersion echoes the
// caller's rejected submission; ServerVersion is the authoritative record.
// Reconciliation is entirely the caller's job; nothing was merged or applied.
type ConflictPayload struct {
	TaskID        string        `json:"taskId"`
	UserVersion   UserSubmitted `json:"userVersion"`
	ServerVersion TaskResponse  `json:"serverVersion"`
}

// UserSubmitted is the rejected patch together with the version it targeted.
type UserSubmitted struct {
	Patch   domain.Patch `json:"patch"`
	Version int64        `json:"version"`
}

// DeleteTaskRequest is the request for deleting a task.
type DeleteTaskRequest struct {
	TaskID  string `json:"task_id"`
	ActorID string `json:"actor_id"`
}

// SmartAssignRequest is the request for assigning a task to the least
// loaded user.
type SmartAssignRequest struct {
	TaskID  string `json:"task_id"`
	ActorID string `json:"actor_id"`
}

// TaskResponse is the response for a single task.
type TaskResponse struct {
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

// TaskPort defines the interface driving adapters use to reach the task
// mutation core.
type TaskPort interface {
	CreateTask(ctx context.Context, req *CreateTaskRequest) (*TaskResponse, error)
	GetTask(ctx context.Context, taskID string) (*TaskResponse, error)
	ListTasks(ctx context.Context) (*ListTasksResponse, error)
	UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*UpdateTaskResponse, error)
	DeleteTask(ctx context.Context, taskID, actorID string) (*TaskResponse, error)
	SmartAssign(ctx context.Context, taskID, actorID string) (*TaskResponse, error)
}

// toTaskResponse converts a domain Task to a TaskResponse.
func toTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
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
