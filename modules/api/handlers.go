package api

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	auditdomain "github.com/example/taskboard/domain/audit"
	userdomain "github.com/example/taskboard/domain/user"
	"github.com/example/taskboard/modules/audit"
	"github.com/example/taskboard/modules/auth"
	"github.com/example/taskboard/modules/task"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	authContainer mono.ServiceContainer
	userPort      auth.UserPort
	taskPort      task.TaskPort
	auditPort     audit.AuditPort
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authContainer mono.ServiceContainer, userPort auth.UserPort, taskPort task.TaskPort, auditPort audit.AuditPort) *Handlers {
	return &Handlers{
		authContainer: authContainer,
		userPort:      userPort,
		taskPort:      taskPort,
		auditPort:     auditPort,
	}
}

// actor returns the verified identity the auth middleware attached.
func actor(c *fiber.Ctx) (*userdomain.Claims, bool) {
	claims, ok := c.Locals(UserContextKey).(*userdomain.Claims)
	return claims, ok
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var body RegisterBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if body.Username == "" || body.Email == "" || body.Password == "" {
		return badRequest(c, "Username, email and password are required")
	}

	req := auth.RegisterRequest{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	}
	var resp auth.RegisterResponse
	if err := helper.CallRequestReplyService(
		c.UserContext(), h.authContainer, "register",
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var body LoginBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	req := auth.LoginRequest{Email: body.Email, Password: body.Password}
	var resp auth.LoginResponse
	if err := helper.CallRequestReplyService(
		c.UserContext(), h.authContainer, "login",
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// Refresh handles token refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var body RefreshBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if body.RefreshToken == "" {
		return badRequest(c, "Refresh token is required")
	}

	req := auth.RefreshRequest{RefreshToken: body.RefreshToken}
	var resp auth.RefreshResponse
	if err := helper.CallRequestReplyService(
		c.UserContext(), h.authContainer, "refresh-token",
		json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// ListTasks returns all tasks, newest first.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	resp, err := h.taskPort.ListTasks(c.UserContext())
	if err != nil {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// CreateTask creates a task owned by no one, in the Todo column.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	claims, ok := actor(c)
	if !ok {
		return unauthenticated(c)
	}

	var body CreateTaskBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(body.Title) == "" {
		return badRequest(c, "Task title is required")
	}
	if len(body.Title) > 100 {
		return badRequest(c, "Task title cannot exceed 100 characters")
	}
	if len(body.Description) > 500 {
		return badRequest(c, "Description cannot exceed 500 characters")
	}
	if body.Priority != "" && !body.Priority.Valid() {
		return badRequest(c, "Priority must be Low, Medium, or High")
	}

	resp, err := h.taskPort.CreateTask(c.UserContext(), &task.CreateTaskRequest{
		Title:       body.Title,
		Description: body.Description,
		Priority:    body.Priority,
		ActorID:     claims.UserID,
	})
	if err != nil {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// GetTask returns one task by id.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	resp, err := h.taskPort.GetTask(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// UpdateTask applies a version-guarded update. A stale version comes back as
// 409 with the conflict payload so the client can reconcile; the server
// never merges concurrent edits on its own.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	claims, ok := actor(c)
	if !ok {
		return unauthenticated(c)
	}

	var body UpdateTaskBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if body.Version == nil {
		return badRequest(c, "Version is required")
	}
	if body.Status != nil && !body.Status.Valid() {
		return badRequest(c, "Status must be Todo, In Progress, or Done")
	}
	if body.Priority != nil && !body.Priority.Valid() {
		return badRequest(c, "Priority must be Low, Medium, or High")
	}

	resp, err := h.taskPort.UpdateTask(c.UserContext(), &task.UpdateTaskRequest{
		TaskID:          c.Params("id"),
		Patch:           body.Patch(),
		ExpectedVersion: *body.Version,
		ActorID:         claims.UserID,
	})
	if err != nil {
		return h.handleTaskError(c, err)
	}

	if resp.Conflict != nil {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "Version conflict detected",
			Details: resp.Conflict,
		})
	}
	return c.Status(fiber.StatusOK).JSON(resp.Task)
}

// DeleteTask hard-deletes a task.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	claims, ok := actor(c)
	if !ok {
		return unauthenticated(c)
	}

	resp, err := h.taskPort.DeleteTask(c.UserContext(), c.Params("id"), claims.UserID)
	if err != nil {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// SmartAssign assigns a task to the least loaded user.
func (h *Handlers) SmartAssign(c *fiber.Ctx) error {
	claims, ok := actor(c)
	if !ok {
		return unauthenticated(c)
	}

	resp, err := h.taskPort.SmartAssign(c.UserContext(), c.Params("id"), claims.UserID)
	if err != nil {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// ListActions returns recent audit entries, newest first. A missing or
// non-numeric limit falls back to the default; the store caps the maximum.
func (h *Handlers) ListActions(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	resp, err := h.auditPort.List(c.UserContext(), limit)
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// ListTaskActions returns the audit history for one task, newest first.
// Total carries the full history size even when entries are clamped.
func (h *Handlers) ListTaskActions(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	resp, err := h.auditPort.ListByResource(c.UserContext(), auditdomain.ResourceTask, c.Params("id"), limit)
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// GetUser returns one directory entry by id.
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	user, err := h.userPort.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "not_found",
				Message: "User not found",
			})
		}
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// ListUsers returns the user directory, ascending by id.
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.userPort.ListUsers(c.UserContext())
	if err != nil {
		return internalError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"users": users,
		"total": len(users),
	})
}

// handleAuthError maps auth service errors to HTTP responses.
// Errors cross the service bus as strings, so matching is on message text.
func (h *Handlers) handleAuthError(c *fiber.Ctx, err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "invalid email or password"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid email or password",
		})
	case strings.Contains(errStr, "already exists"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "User with this email or username already exists",
		})
	case strings.Contains(errStr, "invalid email format"),
		strings.Contains(errStr, "username must be"),
		strings.Contains(errStr, "password must be"):
		return badRequest(c, capitalize(errStr))
	default:
		return internalError(c, err)
	}
}

// handleTaskError maps task service errors to HTTP responses.
func (h *Handlers) handleTaskError(c *fiber.Ctx, err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "task not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Task not found",
		})
	case strings.Contains(errStr, "already exists"),
		strings.Contains(errStr, "matches a board column name"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "duplicate_title",
			Message: capitalize(errStr),
		})
	case strings.Contains(errStr, "no candidate users"):
		return badRequest(c, "No users available for assignment")
	case strings.Contains(errStr, "title cannot"),
		strings.Contains(errStr, "description cannot"),
		strings.Contains(errStr, "must change at least one field"),
		strings.Contains(errStr, "status must be"),
		strings.Contains(errStr, "priority must be"):
		return badRequest(c, capitalize(errStr))
	default:
		return internalError(c, err)
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
}

func internalError(c *fiber.Ctx, err error) error {
	log.Printf("[api] Internal error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// capitalize upper-cases the first byte of a service error message for
// display. Messages are plain ASCII sentences.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
