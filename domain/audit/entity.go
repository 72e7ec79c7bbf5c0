package audit

import (
	"encoding/json"
	"time"
)

// Action identifies the kind of mutation that was committed.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionAssign Action = "assign"
	ActionMove   Action = "move"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionAssign, ActionMove:
		return true
	}
	return false
}

// ResourceType identifies what kind of resource an entry refers to.
type ResourceType string

const (
	ResourceTask ResourceType = "task"
	ResourceUser ResourceType = "user"
)

// Entry is an immutable audit record of one committed mutation.
// Entries are only ever appended; the core never updates or deletes them.
type Entry struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	UserID       string          `gorm:"size:36;not null;index:idx_action_logs_user_ts,priority:1" json:"userId"`
	Action       Action          `gorm:"size:10;not null" json:"action"`
	ResourceType ResourceType    `gorm:"size:10;not null;index:idx_action_logs_resource,priority:1" json:"resourceType"`
	ResourceID   string          `gorm:"size:36;not null;index:idx_action_logs_resource,priority:2" json:"resourceId"`
	Details      json.RawMessage `gorm:"type:text" json:"details"`
	Timestamp    time.Time       `gorm:"not null;index:,sort:desc;index:idx_action_logs_user_ts,priority:2" json:"timestamp"`
}

// TableName returns the table name for the Entry entity.
func (Entry) TableName() string {
	return "action_logs"
}

// Details is a convenience builder for the free-form snapshot column.
type Details map[string]any

// Raw marshals d for storage. Marshaling a map of strings cannot fail, so the
// error is swallowed and an empty object returned in its place.
func (d Details) Raw() json.RawMessage {
	raw, err := json.Marshal(d)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}
