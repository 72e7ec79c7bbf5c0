package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/google/uuid"

	auditdomain "github.com/example/taskboard/domain/audit"
	domain "github.com/example/taskboard/domain/task"
	"github.com/example/taskboard/events"
	"github.com/example/taskboard/modules/audit"
	"github.com/example/taskboard/modules/auth"
)

// Service orchestrates the full mutation protocol: version-guarded writes
// through the store, exactly one audit entry per committed mutation, and a
// fire-and-forget change event per commit. Failed or rejected mutations
// produce neither.
type Service struct {
	repo     *Repository
	balancer *Balancer
	users    auth.UserPort
	auditor  audit.AuditPort
	eventBus mono.EventBus
}

// NewService creates a new task Service.
func NewService(repo *Repository, balancer *Balancer, users auth.UserPort, auditor audit.AuditPort) *Service {
	return &Service{
		repo:     repo,
		balancer: balancer,
		users:    users,
		auditor:  auditor,
	}
}

// SetEventBus attaches the change-notification sink. A nil bus disables
// publishing; mutations are unaffected either way.
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.eventBus = bus
}

// Create makes a new task with version 1. Status starts in Todo; priority
// defaults to Medium when absent.
func (s *Service) Create(ctx context.Context, title, description string, priority domain.Priority, actorID string) (*domain.Task, error) {
	if len(description) > 500 {
		return nil, ErrDescriptionTooLong
	}
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	t := &domain.Task{
		ID:           uuid.New().String(),
		Title:        title,
		Description:  description,
		Status:       domain.StatusTodo,
		Priority:     priority,
		LastEditedBy: actorID,
	}
	if err := s.repo.Create(t); err != nil {
		return nil, err
	}

	s.record(ctx, actorID, auditdomain.ActionCreate, t.ID, t.UpdatedAt, auditdomain.Details{
		"title":  t.Title,
		"status": t.Status,
	})
	s.publishCreated(t, actorID)
	return t, nil
}

// Get retrieves one task.
func (s *Service) Get(_ context.Context, id string) (*domain.Task, error) {
	return s.repo.FindByID(id)
}

// List returns all tasks, newest first.
func (s *Service) List(_ context.Context) ([]*domain.Task, error) {
	return s.repo.FindAll()
}

// Update applies a version-guarded patch. A stale expected version yields a
// conflict payload carrying both the rejected submission and the
// authoritative record; nothing is merged and nothing is written. A status
// move with no other changes is recorded as a "move" action.
func (s *Service) Update(ctx context.Context, id string, patch domain.Patch, expectedVersion int64, actorID string) (*domain.Task, *ConflictPayload, error) {
	updated, from, err := s.repo.ApplyIfVersionMatches(id, expectedVersion, patch, actorID)
	if err != nil {
		var conflict *VersionConflictError
		if errors.As(err, &conflict) {
			log.Printf("[task] Version conflict on task %s: submitted %d, server has %d",
				id, expectedVersion, conflict.Current.Version)
			return nil, &ConflictPayload{
				TaskID: id,
				UserVersion: UserSubmitted{
					Patch:   patch,
					Version: expectedVersion,
				},
				ServerVersion: toTaskResponse(conflict.Current),
			}, nil
		}
		return nil, nil, err
	}

	action := auditdomain.ActionUpdate
	if patch.StatusOnly() {
		action = auditdomain.ActionMove
	}
	s.record(ctx, actorID, action, updated.ID, updated.UpdatedAt, auditdomain.Details{
		"title":  updated.Title,
		"status": updated.Status,
	})

	if action == auditdomain.ActionMove {
		s.publishMoved(updated, actorID, from)
	} else {
		s.publishUpdated(updated, actorID)
	}
	return updated, nil, nil
}

// Delete removes a task unconditionally; there is no version gate, so a
// delete always wins over a concurrent edit. The audit entry is built from
// the pre-delete snapshot.
func (s *Service) Delete(ctx context.Context, id, actorID string) (*domain.Task, error) {
	deleted, err := s.repo.Delete(id)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actorID, auditdomain.ActionDelete, deleted.ID, deleted.UpdatedAt, auditdomain.Details{
		"title": deleted.Title,
	})
	s.publishDeleted(deleted, actorID)
	return deleted, nil
}

// SmartAssign hands the task to the currently least loaded user. The write
// applies against live server state with no caller version; the count read
// is not snapshot-isolated against concurrent assignments (accepted race,
// the board rebalances on the next call).
func (s *Service) SmartAssign(ctx context.Context, id, actorID string) (*domain.Task, error) {
	if _, err := s.repo.FindByID(id); err != nil {
		return nil, err
	}

	candidates, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load user population: %w", err)
	}

	chosen, activeCount, err := s.balancer.PickLeastLoaded(ctx, candidates)
	if err != nil {
		return nil, err
	}

	assigned, err := s.repo.Assign(id, chosen.ID, actorID)
	if err != nil {
		return nil, err
	}

	s.record(ctx, actorID, auditdomain.ActionAssign, assigned.ID, assigned.UpdatedAt, auditdomain.Details{
		"title":      assigned.Title,
		"assignedTo": chosen.Username,
		"reason":     fmt.Sprintf("smart assign: %s had the fewest active tasks (%d)", chosen.Username, activeCount),
	})
	s.publishAssigned(assigned, actorID, chosen)
	return assigned, nil
}

// record appends one audit entry for a committed mutation. at is the commit
// time the store stamped inside the per-id critical section; using it keeps
// entries for one task in commit order even when two writers race from the
// critical section to here. The mutation has already been persisted, so a
// log failure is reported but cannot undo it.
func (s *Service) record(ctx context.Context, actorID string, action auditdomain.Action, taskID string, at time.Time, details auditdomain.Details) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, actorID, action, auditdomain.ResourceTask, taskID, at, details); err != nil {
		log.Printf("[task] Warning: failed to record %s action for task %s: %v", action, taskID, err)
	}
}

func (s *Service) publishCreated(t *domain.Task, actorID string) {
	if s.eventBus == nil {
		return
	}
	event := events.TaskCreatedEvent{Task: events.Snapshot(t), Actor: actorID}
	if err := events.TaskCreatedV1.Publish(s.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskCreated event for task %s: %v", t.ID, err)
	}
}

func (s *Service) publishUpdated(t *domain.Task, actorID string) {
	if s.eventBus == nil {
		return
	}
	event := events.TaskUpdatedEvent{Task: events.Snapshot(t), Actor: actorID}
	if err := events.TaskUpdatedV1.Publish(s.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskUpdated event for task %s: %v", t.ID, err)
	}
}

func (s *Service) publishMoved(t *domain.Task, actorID string, from domain.Status) {
	if s.eventBus == nil {
		return
	}
	event := events.TaskMovedEvent{Task: events.Snapshot(t), Actor: actorID, From: from, To: t.Status}
	if err := events.TaskMovedV1.Publish(s.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskMoved event for task %s: %v", t.ID, err)
	}
}

func (s *Service) publishDeleted(t *domain.Task, actorID string) {
	if s.eventBus == nil {
		return
	}
	event := events.TaskDeletedEvent{Task: events.Snapshot(t), Actor: actorID}
	if err := events.TaskDeletedV1.Publish(s.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskDeleted event for task %s: %v", t.ID, err)
	}
}

func (s *Service) publishAssigned(t *domain.Task, actorID string, chosen auth.UserInfo) {
	if s.eventBus == nil {
		return
	}
	event := events.TaskAssignedEvent{
		Task:       events.Snapshot(t),
		Actor:      actorID,
		AssignedTo: chosen.ID,
		Username:   chosen.Username,
	}
	if err := events.TaskAssignedV1.Publish(s.eventBus, event, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskAssigned event for task %s: %v", t.ID, err)
	}
}
