package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/events"
	"github.com/example/taskboard/modules/audit"
	"github.com/example/taskboard/modules/auth"
)

// Module is the task mutation core: the version-guarded store, the
// assignment balancer and the mutation service.
type Module struct {
	db        *gorm.DB
	repo      *Repository
	service   *Service
	userPort  auth.UserPort
	auditPort audit.AuditPort
	eventBus  mono.EventBus
	dbPath    string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new task Module.
func NewModule() *Module {
	dbPath := os.Getenv("TASKBOARD_DB_PATH")
	if dbPath == "" {
		dbPath = "taskboard.db"
	}
	return &Module{dbPath: dbPath}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "task"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"auth", "audit"}
}

// SetDependencyServiceContainer receives dependency service containers.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.userPort = auth.NewUserAdapter(container)
	case "audit":
		m.auditPort = audit.NewAuditAdapter(container)
	}
}

// SetEventBus receives the application event bus.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskMovedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
		events.TaskAssignedV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "smart-assign", json.Unmarshal, json.Marshal, m.smartAssign,
	); err != nil {
		return fmt.Errorf("failed to register smart-assign service: %w", err)
	}

	log.Printf("[task] Registered services: create-task, get-task, list-tasks, update-task, delete-task, smart-assign")
	return nil
}

// createTask handles the create-task service request.
func (m *Module) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Create(ctx, req.Title, req.Description, req.Priority, req.ActorID)
	if err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(t), nil
}

// getTask handles the get-task service request.
func (m *Module) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Get(ctx, req.TaskID)
	if err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(t), nil
}

// listTasks handles the list-tasks service request.
func (m *Module) listTasks(ctx context.Context, _ ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	tasks, err := m.service.List(ctx)
	if err != nil {
		return ListTasksResponse{}, err
	}
	resp := ListTasksResponse{
		Tasks: make([]TaskResponse, 0, len(tasks)),
		Total: len(tasks),
	}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(t))
	}
	return resp, nil
}

// updateTask handles the update-task service request. Version conflicts are
// data, not errors: they travel back in the response payload.
func (m *Module) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (UpdateTaskResponse, error) {
	updated, conflict, err := m.service.Update(ctx, req.TaskID, req.Patch, req.ExpectedVersion, req.ActorID)
	if err != nil {
		return UpdateTaskResponse{}, err
	}
	if conflict != nil {
		return UpdateTaskResponse{Conflict: conflict}, nil
	}
	resp := toTaskResponse(updated)
	return UpdateTaskResponse{Task: &resp}, nil
}

// deleteTask handles the delete-task service request.
func (m *Module) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	deleted, err := m.service.Delete(ctx, req.TaskID, req.ActorID)
	if err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(deleted), nil
}

// smartAssign handles the smart-assign service request.
func (m *Module) smartAssign(ctx context.Context, req SmartAssignRequest, _ *mono.Msg) (TaskResponse, error) {
	assigned, err := m.service.SmartAssign(ctx, req.TaskID, req.ActorID)
	if err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(assigned), nil
}

// Start opens the database, runs migrations and wires the mutation service.
func (m *Module) Start(_ context.Context) error {
	if m.userPort == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.auditPort == nil {
		return fmt.Errorf("audit dependency not set")
	}
	if m.eventBus == nil {
		log.Println("[task] Warning: eventBus not set, change events will not be published")
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&domain.Task{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.repo = NewRepository(m.db)
	m.service = NewService(m.repo, NewBalancer(m.repo), m.userPort, m.auditPort)
	m.service.SetEventBus(m.eventBus)

	log.Printf("[task] Module started (database: %s, depends on: auth, audit)", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[task] Module stopped")
	return nil
}

// Health performs a health check on the task module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get sql.DB: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}
