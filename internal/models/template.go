package models

import "github.com/google/uuid"

// ProjectTemplate is a reusable milestone/task blueprint.
type ProjectTemplate struct {
	Base
	Name        string              `gorm:"uniqueIndex;not null" json:"name"`
	Description string              `gorm:"type:text" json:"description"`
	IsDefault   bool                `gorm:"not null;default:false" json:"isDefault"`
	Milestones  []TemplateMilestone `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"milestones"`
}

type TemplateMilestone struct {
	Base
	TemplateID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"templateId"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Category    string         `json:"category"`
	Order       int            `gorm:"column:sort_order;not null;default:0" json:"order"`
	Tasks       []TemplateTask `gorm:"foreignKey:TemplateMilestoneID;constraint:OnDelete:CASCADE" json:"tasks"`
}

type TemplateTask struct {
	Base
	TemplateMilestoneID uuid.UUID `gorm:"type:uuid;not null;index" json:"templateMilestoneId"`
	Name                string    `gorm:"not null" json:"name"`
	Description         string    `gorm:"type:text" json:"description"`
	Order               int       `gorm:"column:sort_order;not null;default:0" json:"order"`
}
