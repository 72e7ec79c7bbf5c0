package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/taskboard/domain/audit"
)

// AuditPort defines the interface other modules use to reach the action log.
// at is the commit time of the mutation being recorded.
type AuditPort interface {
	Record(ctx context.Context, actorID string, action domain.Action, resourceType domain.ResourceType, resourceID string, at time.Time, details domain.Details) error
	List(ctx context.Context, limit int) (*ListResponse, error)
	ListByResource(ctx context.Context, resourceType domain.ResourceType, resourceID string, limit int) (*ListResponse, error)
}

// auditAdapter wraps ServiceContainer for type-safe cross-module communication.
type auditAdapter struct {
	container mono.ServiceContainer
}

// NewAuditAdapter creates a new adapter for audit services.
// container is the ServiceContainer from the audit module received via
// SetDependencyServiceContainer.
func NewAuditAdapter(container mono.ServiceContainer) AuditPort {
	if container == nil {
		panic("audit adapter requires non-nil ServiceContainer")
	}
	return &auditAdapter{container: container}
}

// Record appends one entry via the record service.
func (a *auditAdapter) Record(ctx context.Context, actorID string, action domain.Action, resourceType domain.ResourceType, resourceID string, at time.Time, details domain.Details) error {
	req := RecordRequest{
		UserID:       actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Timestamp:    at,
		Details:      details.Raw(),
	}
	var resp RecordResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"record",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("record service call failed: %w", err)
	}
	return nil
}

// List returns recent entries via the list service.
func (a *auditAdapter) List(ctx context.Context, limit int) (*ListResponse, error) {
	req := ListRequest{Limit: limit}
	var resp ListResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("list service call failed: %w", err)
	}
	return &resp, nil
}

// ListByResource returns one resource's history via the list-by-resource
// service.
func (a *auditAdapter) ListByResource(ctx context.Context, resourceType domain.ResourceType, resourceID string, limit int) (*ListResponse, error) {
	req := ListByResourceRequest{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Limit:        limit,
	}
	var resp ListResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list-by-resource",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("list-by-resource service call failed: %w", err)
	}
	return &resp, nil
}
