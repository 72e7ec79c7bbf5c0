package task

import "time"

// Status represents the board column a task sits in.
type Status string

const (
	StatusTodo       Status = "Todo"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// Statuses lists every valid board column in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is a known board column.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority represents task urgency.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is the core domain entity on the board.
//
// Version implements optimistic concurrency control: it starts at 1 and is
// incremented by exactly 1 on every successful mutation. A writer must present
// the version it read; a stale version is rejected without applying anything.
type Task struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Title        string    `gorm:"size:100;not null;uniqueIndex" json:"title"`
	Description  string    `gorm:"size:500" json:"description"`
	Status       Status    `gorm:"size:20;not null" json:"status"`
	Priority     Priority  `gorm:"size:10;not null" json:"priority"`
	AssignedUser string    `gorm:"size:36;index" json:"assignedUser,omitempty"`
	LastEditedBy string    `gorm:"size:36;not null" json:"lastEditedBy"`
	Version      int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Active reports whether the task counts toward its assignee's workload.
func (t *Task) Active() bool {
	return t.Status != StatusDone
}

// Patch is a typed partial update. Nil fields are left untouched.
// The expected version travels alongside the patch, not inside it.
type Patch struct {
	Title        *string   `json:"title,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Status       *Status   `json:"status,omitempty"`
	Priority     *Priority `json:"priority,omitempty"`
	AssignedUser *string   `json:"assignedUser,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.AssignedUser == nil
}

// StatusOnly reports whether the patch moves the task between columns and
// touches nothing else. Such updates are recorded as "move" actions.
func (p Patch) StatusOnly() bool {
	return p.Status != nil && p.Title == nil && p.Description == nil &&
		p.Priority == nil && p.AssignedUser == nil
}
