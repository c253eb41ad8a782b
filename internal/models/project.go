package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ProjectStatus is the ordered lifecycle of a job, from first contact to completion.
type ProjectStatus string

const (
	ProjectInitialContact ProjectStatus = "initial_contact"
	ProjectQuoteSent      ProjectStatus = "quote_sent"
	ProjectContractSigned ProjectStatus = "contract_signed"
	ProjectScheduled      ProjectStatus = "scheduled"
	ProjectInProgress     ProjectStatus = "in_progress"
	ProjectInstallation   ProjectStatus = "installation"
	ProjectInspection     ProjectStatus = "inspection"
	ProjectComplete       ProjectStatus = "complete"
	ProjectOnHold         ProjectStatus = "on_hold"
	ProjectCancelled      ProjectStatus = "cancelled"
)

// ProjectStatuses lists every status in lifecycle order.
var ProjectStatuses = []ProjectStatus{
	ProjectInitialContact, ProjectQuoteSent, ProjectContractSigned, ProjectScheduled,
	ProjectInProgress, ProjectInstallation, ProjectInspection, ProjectComplete,
	ProjectOnHold, ProjectCancelled,
}

// Project is a customer job.
type Project struct {
	Base
	Name        string        `gorm:"not null;index" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ProjectStatus `gorm:"type:varchar(32);not null;default:initial_contact;index" json:"status"`

	OwnerID   *uuid.UUID `gorm:"type:uuid;index" json:"ownerId"`
	Owner     *User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"owner,omitempty"`
	JobTypeID *uuid.UUID `gorm:"type:uuid;index" json:"jobTypeId"`
	JobType   *JobType   `gorm:"foreignKey:JobTypeID" json:"jobType,omitempty"`

	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`

	Address   string   `json:"address"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	Zip       string   `json:"zip"`
	PlaceID   string   `json:"placeId,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	StartDate *time.Time `json:"startDate"`
	DueDate   *time.Time `json:"dueDate"`

	Milestones     []Milestone     `gorm:"constraint:OnDelete:CASCADE" json:"milestones,omitempty"`
	Communications []Communication `gorm:"constraint:OnDelete:CASCADE" json:"communications,omitempty"`

	CommunicationCount int64 `gorm:"-" json:"communicationCount,omitempty"`
}

// Communication is a logged call, email, meeting or note on a project.
type Communication struct {
	Base
	ProjectID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"projectId"`
	MilestoneID  *uuid.UUID     `gorm:"type:uuid;index" json:"milestoneId"`
	Milestone    *Milestone     `gorm:"foreignKey:MilestoneID;constraint:OnDelete:SET NULL" json:"milestone,omitempty"`
	AuthorID     *uuid.UUID     `gorm:"type:uuid;index" json:"authorId"`
	Author       *User          `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"author,omitempty"`
	Type         string         `gorm:"type:varchar(16);not null;index" json:"type"`
	Direction    string         `gorm:"type:varchar(16)" json:"direction,omitempty"`
	Subject      string         `json:"subject"`
	Body         string         `gorm:"type:text" json:"body"`
	ContactName  string         `json:"contactName,omitempty"`
	OccurredAt   time.Time      `gorm:"index" json:"occurredAt"`
	Participants datatypes.JSON `json:"participants,omitempty"`
}

const (
	CommunicationCall    = "call"
	CommunicationEmail   = "email"
	CommunicationMeeting = "meeting"
	CommunicationNote    = "note"
)

// StatusChange is the immutable audit row written on every project or milestone status transition.
type StatusChange struct {
	Base
	EntityType  string     `gorm:"type:varchar(16);not null;index:idx_status_entity" json:"entityType"`
	EntityID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_status_entity" json:"entityId"`
	ProjectID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"projectId"`
	Project     *Project   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	OldStatus   string     `gorm:"type:varchar(32)" json:"oldStatus"`
	NewStatus   string     `gorm:"type:varchar(32);not null" json:"newStatus"`
	ChangedByID *uuid.UUID `gorm:"type:uuid" json:"changedById"`
	ChangedBy   *User      `gorm:"foreignKey:ChangedByID;constraint:OnDelete:SET NULL" json:"changedBy,omitempty"`
	ChangedAt   time.Time  `gorm:"not null" json:"changedAt"`
}

const (
	EntityProject   = "project"
	EntityMilestone = "milestone"
)
