package models

import (
	"time"

	"github.com/google/uuid"
)

// MilestoneStatus tracks a phase within a project.
type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "not_started"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneBlocked    MilestoneStatus = "blocked"
	MilestoneCompleted  MilestoneStatus = "completed"
)

// Milestone is a named phase of a project containing tasks.
type Milestone struct {
	Base
	ProjectID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"projectId"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `json:"category,omitempty"`
	Status      MilestoneStatus `gorm:"type:varchar(32);not null;default:not_started" json:"status"`
	Order       int             `gorm:"column:sort_order;not null;default:0" json:"order"`
	DueDate     *time.Time      `json:"dueDate"`
	CompletedAt *time.Time      `json:"completedAt"`

	Tasks    []Task    `gorm:"constraint:OnDelete:CASCADE" json:"tasks,omitempty"`
	Comments []Comment `gorm:"constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

// TaskStatus tracks a unit of work in a milestone.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Task is a unit of work inside a milestone, optionally assigned to a user.
type Task struct {
	Base
	MilestoneID uuid.UUID  `gorm:"type:uuid;index;not null" json:"milestoneId"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"type:varchar(32);not null;default:todo;index" json:"status"`
	Order       int        `gorm:"column:sort_order;not null;default:0" json:"order"`
	AssigneeID  *uuid.UUID `gorm:"type:uuid;index" json:"assigneeId"`
	Assignee    *User      `gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL" json:"assignee,omitempty"`
	DueDate     *time.Time `json:"dueDate"`
	CompletedAt *time.Time `json:"completedAt"`

	Comments []Comment `gorm:"constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

// Comment is a remark on a milestone or a task.
type Comment struct {
	Base
	MilestoneID *uuid.UUID `gorm:"type:uuid;index" json:"milestoneId,omitempty"`
	TaskID      *uuid.UUID `gorm:"type:uuid;index" json:"taskId,omitempty"`
	AuthorID    *uuid.UUID `gorm:"type:uuid;index" json:"authorId"`
	Author      *User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"author,omitempty"`
	Body        string     `gorm:"type:text;not null" json:"body"`
}
