package audit

import (
	"encoding/json"
	"time"

	domain "github.com/example/taskboard/domain/audit"
)

// RecordRequest is the request for appending an action log entry.
// Timestamp is the commit time of the mutation being recorded, captured by
// the caller inside its serialization point; entries for one resource must
// sort in commit order, so the log never stamps its own clock over it.
type RecordRequest struct {
	UserID       string              `json:"user_id"`
	Action       domain.Action       `json:"action"`
	ResourceType domain.ResourceType `json:"resource_type"`
	ResourceID   string              `json:"resource_id"`
	Timestamp    time.Time           `json:"timestamp,omitempty"`
	Details      json.RawMessage     `json:"details,omitempty"`
}

// RecordResponse is the response for appending an entry.
type RecordResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// ListRequest is the request for listing recent entries.
type ListRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ListByResourceRequest is the request for one resource's history.
type ListByResourceRequest struct {
	ResourceType domain.ResourceType `json:"resource_type"`
	ResourceID   string              `json:"resource_id"`
	Limit        int                 `json:"limit,omitempty"`
}

// EntryResponse is one action log entry as returned to callers.
type EntryResponse struct {
	ID           string              `json:"id"`
	UserID       string              `json:"userId"`
	Action       domain.Action       `json:"action"`
	ResourceType domain.ResourceType `json:"resourceType"`
	ResourceID   string              `json:"resourceId"`
	Details      json.RawMessage     `json:"details"`
	Timestamp    time.Time           `json:"timestamp"`
}

// ListResponse is the response for listing entries, newest first.
type ListResponse struct {
	Entries []EntryResponse `json:"entries"`
	Total   int             `json:"total"`
}
