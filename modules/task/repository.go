package task

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	domain "github.com/example/taskboard/domain/task"
)

// Repository is the task store. Every mutation of an existing task runs its
// full read-compare-write sequence under a per-task-id mutex, so two writers
// can never interleave on the same record while writes to different tasks
// proceed in parallel.
type Repository struct {
	db    *gorm.DB
	locks sync.Map // task id -> *sync.Mutex
}

// NewRepository creates a new task repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// lockFor returns the mutex guarding one task id. Lock entries are never
// reclaimed; a mutex per historical task id is a few dozen bytes and reuse
// after delete must still serialize against late writers.
func (r *Repository) lockFor(id string) *sync.Mutex {
	v, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// titleTaken reports a collision for the given title, excluding excludeID.
// Board column labels are reserved: a task named after a column would be
// indistinguishable from the column itself on the board.
func titleTaken(tx *gorm.DB, title, excludeID string) error {
	for _, s := range domain.Statuses {
		if title == string(s) {
			return &DuplicateTitleError{Title: title, ColumnLabel: true}
		}
	}

	var count int64
	q := tx.Model(&domain.Task{}).Where("title = ?", title)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check title uniqueness: %w", err)
	}
	if count > 0 {
		return &DuplicateTitleError{Title: title}
	}
	return nil
}

// Create persists a new task with version 1 and server-assigned timestamps.
// The uniqueness check and the insert run in one transaction so a colliding
// create fails without partial effect.
func (r *Repository) Create(t *domain.Task) error {
	if err := validateTitle(t.Title); err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := titleTaken(tx, t.Title, ""); err != nil {
			return err
		}

		now := time.Now()
		t.Version = 1
		t.CreatedAt = now
		t.UpdatedAt = now
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	})
}

// FindByID retrieves a task by its ID.
func (r *Repository) FindByID(id string) (*domain.Task, error) {
	var t domain.Task
	if err := r.db.First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

// FindAll returns a snapshot of every task, newest first.
func (r *Repository) FindAll() ([]*domain.Task, error) {
	var tasks []*domain.Task
	if err := r.db.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// ApplyIfVersionMatches is the central atomicity primitive. It reads the
// current record under the task's lock, rejects the write with a
// VersionConflictError (carrying the authoritative record) when
// expectedVersion is stale, and otherwise applies the patch, stamps the
// actor, increments the version by exactly 1 and persists in a single
// transaction. The second return value is the status the task held before
// the patch, read under the same lock.
func (r *Repository) ApplyIfVersionMatches(id string, expectedVersion int64, patch domain.Patch, actorID string) (*domain.Task, domain.Status, error) {
	if err := validatePatch(patch); err != nil {
		return nil, "", err
	}

	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	current, err := r.FindByID(id)
	if err != nil {
		return nil, "", err
	}

	if current.Version != expectedVersion {
		return nil, "", &VersionConflictError{
			TaskID:           id,
			SubmittedVersion: expectedVersion,
			Current:          current,
		}
	}

	prior := current.Status

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if patch.Title != nil && *patch.Title != current.Title {
			if err := titleTaken(tx, *patch.Title, id); err != nil {
				return err
			}
			current.Title = *patch.Title
		}
		if patch.Description != nil {
			current.Description = *patch.Description
		}
		if patch.Status != nil {
			current.Status = *patch.Status
		}
		if patch.Priority != nil {
			current.Priority = *patch.Priority
		}
		if patch.AssignedUser != nil {
			current.AssignedUser = *patch.AssignedUser
		}
		current.LastEditedBy = actorID
		current.Version++
		current.UpdatedAt = time.Now()

		if err := tx.Save(current).Error; err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return current, prior, nil
}

// Assign sets the assignee against the current server state. There is no
// caller-supplied version to compare, so the write always applies; it still
// takes the per-id lock and bumps the version so concurrent guarded updates
// observe it.
func (r *Repository) Assign(id, userID, actorID string) (*domain.Task, error) {
	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	current, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}

	current.AssignedUser = userID
	current.LastEditedBy = actorID
	current.Version++
	current.UpdatedAt = time.Now()

	if err := r.db.Save(current).Error; err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}
	return current, nil
}

// Delete hard-deletes a task with no version check: delete always wins over
// a concurrent edit. The pre-delete snapshot is returned for audit details,
// with UpdatedAt stamped to the deletion time while the lock is still held;
// afterwards the action log is the only record the task existed.
func (r *Repository) Delete(id string) (*domain.Task, error) {
	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	current, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}

	if err := r.db.Unscoped().Delete(&domain.Task{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}
	current.UpdatedAt = time.Now()
	return current, nil
}

// CountActiveByUser counts tasks assigned to userID that are not Done.
func (r *Repository) CountActiveByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Task{}).
		Where("assigned_user = ? AND status <> ?", userID, domain.StatusDone).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active tasks: %w", err)
	}
	return count, nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if len(title) > 100 {
		return ErrTitleTooLong
	}
	return nil
}

func validatePatch(p domain.Patch) error {
	if p.Empty() {
		return ErrEmptyPatch
	}
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Description != nil && len(*p.Description) > 500 {
		return ErrDescriptionTooLong
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}
