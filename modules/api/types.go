package api

import (
	domain "github.com/example/taskboard/domain/task"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// RegisterBody is the registration request body.
type RegisterBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginBody is the login request body.
type LoginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshBody is the token refresh request body.
type RefreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

// CreateTaskBody is the task creation request body.
type CreateTaskBody struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
}

// UpdateTaskBody is the task update request body. All fields are optional
// except Version, which carries the version the caller read: the server
// refuses the write when it is stale.
type UpdateTaskBody struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Status       *domain.Status   `json:"status"`
	Priority     *domain.Priority `json:"priority"`
	AssignedUser *string          `json:"assignedUser"`
	Version      *int64           `json:"version"`
}

// Patch converts the body into the core's typed partial update.
func (b UpdateTaskBody) Patch() domain.Patch {
	return domain.Patch{
		Title:        b.Title,
		Description:  b.Description,
		Status:       b.Status,
		Priority:     b.Priority,
		AssignedUser: b.AssignedUser,
	}
}
