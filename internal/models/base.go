package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the identity and timestamps shared by every table.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a random UUID when the caller has not set one.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// All returns every model registered for AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&JobType{},
		&Project{},
		&Milestone{},
		&Task{},
		&Comment{},
		&Communication{},
		&StatusChange{},
		&FileAttachment{},
		&CalendarEvent{},
		&InventoryItem{},
		&InventoryUnit{},
		&InventoryAssignment{},
		&InventoryPackage{},
		&InventoryPackageItem{},
		&ProjectTemplate{},
		&TemplateMilestone{},
		&TemplateTask{},
		&BackupSchedule{},
	}
}
