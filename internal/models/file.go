package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FileAttachment records an uploaded object and where it lives.
type FileAttachment struct {
	Base
	ProjectID     *uuid.UUID `gorm:"type:uuid;index" json:"projectId,omitempty"`
	Project       *Project   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	MilestoneID   *uuid.UUID `gorm:"type:uuid;index" json:"milestoneId,omitempty"`
	Milestone     *Milestone `gorm:"foreignKey:MilestoneID;constraint:OnDelete:CASCADE" json:"-"`
	TaskID        *uuid.UUID `gorm:"type:uuid;index" json:"taskId,omitempty"`
	Task          *Task      `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	Name          string     `gorm:"not null" json:"name"`
	StorageDriver string     `gorm:"type:varchar(16);not null" json:"storageDriver"`
	StorageKey    string     `gorm:"not null" json:"-"`
	Size          int64      `json:"size"`
	MimeType      string     `json:"mimeType"`
	UploadedByID  *uuid.UUID `gorm:"type:uuid" json:"uploadedById"`
	UploadedBy    *User      `gorm:"foreignKey:UploadedByID;constraint:OnDelete:SET NULL" json:"uploadedBy,omitempty"`
}

// CalendarEvent is a scheduled installation, meeting or inspection.
type CalendarEvent struct {
	Base
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Type        string         `gorm:"type:varchar(16);not null;default:other" json:"type"`
	StartAt     time.Time      `gorm:"not null;index" json:"startAt"`
	EndAt       time.Time      `gorm:"not null;index" json:"endAt"`
	AllDay      bool           `json:"allDay"`
	Location    string         `json:"location"`
	ProjectID   *uuid.UUID     `gorm:"type:uuid;index" json:"projectId,omitempty"`
	Project     *Project       `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	MilestoneID *uuid.UUID     `gorm:"type:uuid;index" json:"milestoneId,omitempty"`
	Milestone   *Milestone     `gorm:"foreignKey:MilestoneID;constraint:OnDelete:SET NULL" json:"-"`
	CreatedByID *uuid.UUID     `gorm:"type:uuid" json:"createdById"`
	CreatedBy   *User          `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL" json:"-"`
	Attendees   datatypes.JSON `json:"attendees,omitempty"`
}

const (
	EventInstallation = "installation"
	EventMeeting      = "meeting"
	EventInspection   = "inspection"
	EventOther        = "other"
)

// BackupSchedule describes unattended backups; the newest row is authoritative.
type BackupSchedule struct {
	Base
	Enabled     bool       `gorm:"not null;default:false" json:"enabled"`
	Frequency   string     `gorm:"type:varchar(32);not null" json:"frequency"`
	NextRun     *time.Time `json:"nextRun"`
	LastRun     *time.Time `json:"lastRun"`
	LastStatus  string     `json:"lastStatus,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	UpdatedByID *uuid.UUID `gorm:"type:uuid" json:"updatedById,omitempty"`
}
