package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/taskboard/events"
)

// Module is the driven adapter behind the notification sink. It consumes
// task change events off the bus and pushes them to connected board clients.
// It has no feedback path into the mutation core: a consumer failure is
// logged and swallowed, never propagated.
type Module struct {
	hub    *Hub
	cancel context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)

// NewModule creates a new notification Module.
func NewModule() *Module {
	return &Module{hub: NewHub()}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "notification"
}

// Hub exposes the board hub so the API module can mount the /ws endpoint.
func (m *Module) Hub() *Hub {
	return m.hub
}

// RegisterEventConsumers subscribes to every task change event.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskMovedV1, m.handleTaskMoved, m); err != nil {
		return fmt.Errorf("failed to register TaskMoved consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskAssignedV1, m.handleTaskAssigned, m); err != nil {
		return fmt.Errorf("failed to register TaskAssigned consumer: %w", err)
	}

	log.Printf("[notification] Registered event consumers: TaskCreated, TaskUpdated, TaskMoved, TaskDeleted, TaskAssigned")
	return nil
}

func (m *Module) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	log.Printf("[notification] Task created: %s - %s", event.Task.ID, event.Task.Title)
	m.hub.Broadcast("task-created", event)
	return nil
}

func (m *Module) handleTaskUpdated(_ context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	log.Printf("[notification] Task updated: %s (v%d)", event.Task.ID, event.Task.Version)
	m.hub.Broadcast("task-updated", event)
	return nil
}

func (m *Module) handleTaskMoved(_ context.Context, event events.TaskMovedEvent, _ *mono.Msg) error {
	log.Printf("[notification] Task moved: %s %s -> %s", event.Task.ID, event.From, event.To)
	m.hub.Broadcast("task-moved", event)
	return nil
}

func (m *Module) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	log.Printf("[notification] Task deleted: %s by user %s", event.Task.ID, event.Actor)
	m.hub.Broadcast("task-deleted", event)
	return nil
}

func (m *Module) handleTaskAssigned(_ context.Context, event events.TaskAssignedEvent, _ *mono.Msg) error {
	log.Printf("[notification] Task %s assigned to %s", event.Task.ID, event.Username)
	m.hub.Broadcast("task-assigned", event)
	return nil
}

// Start launches the board hub loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.hub.Run(ctx)

	log.Println("[notification] Module started - listening for task events")
	return nil
}

// Stop shuts down the hub and closes every client connection.
func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
		m.hub.Wait()
	}
	log.Println("[notification] Module stopped")
	return nil
}
