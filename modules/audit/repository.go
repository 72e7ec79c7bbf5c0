package audit

import (
	"fmt"

	"gorm.io/gorm"

	domain "github.com/example/taskboard/domain/audit"
)

const (
	// DefaultLimit is used when a caller supplies no limit (or a
	// non-positive one).
	DefaultLimit = 20
	// MaxLimit caps a single listing so a caller cannot request the whole
	// history in one call.
	MaxLimit = 100
)

// Repository provides append-only access to action log storage.
// There is deliberately no update or delete method.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new audit repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append persists one entry. Entries for failed mutations must never reach
// this point; callers only append after a commit.
func (r *Repository) Append(entry *domain.Entry) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append action log entry: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first. A non-positive limit
// falls back to DefaultLimit; anything above MaxLimit is clamped.
func (r *Repository) List(limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var entries []*domain.Entry
	if err := r.db.Order("timestamp DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list action log entries: %w", err)
	}
	return entries, nil
}

// ListByResource returns the most recent entries for one resource, newest
// first, with the same limit handling as List.
func (r *Repository) ListByResource(resourceType domain.ResourceType, resourceID string, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var entries []*domain.Entry
	err := r.db.
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("timestamp DESC").Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list action log entries for resource: %w", err)
	}
	return entries, nil
}

// CountByResource returns how many entries exist for one resource.
func (r *Repository) CountByResource(resourceType domain.ResourceType, resourceID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Entry{}).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count action log entries: %w", err)
	}
	return count, nil
}
