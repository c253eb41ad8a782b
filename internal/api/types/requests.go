package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserCreateRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=200"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

type UserUpdateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

type ProjectFields struct {
	Description  *string    `json:"description"`
	Status       *string    `json:"status" validate:"omitempty,project_status"`
	JobTypeID    *uuid.UUID `json:"jobTypeId"`
	OwnerID      *uuid.UUID `json:"ownerId"`
	ContactName  *string    `json:"contactName"`
	ContactEmail *string    `json:"contactEmail" validate:"omitempty,email"`
	ContactPhone *string    `json:"contactPhone"`
	Address      *string    `json:"address"`
	City         *string    `json:"city"`
	State        *string    `json:"state"`
	Zip          *string    `json:"zip"`
	PlaceID      *string    `json:"placeId"`
	Latitude     *float64   `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64   `json:"longitude" validate:"omitempty,longitude"`
	StartDate    *time.Time `json:"startDate"`
	DueDate      *time.Time `json:"dueDate"`
}

type ProjectCreateRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	ProjectFields
	TemplateID         *uuid.UUID `json:"templateId"`
	UseDefaultTemplate bool       `json:"useDefaultTemplate"`
}

type ProjectUpdateRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=200"`
	ProjectFields
}

type MilestoneRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Status      *string    `json:"status" validate:"omitempty,oneof=not_started in_progress blocked completed"`
	Order       *int       `json:"order" validate:"omitempty,gte=0"`
	DueDate     *time.Time `json:"dueDate"`
}

type TaskRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	Status      *string    `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Order       *int       `json:"order" validate:"omitempty,gte=0"`
	AssigneeID  *uuid.UUID `json:"assigneeId"`
	// ClearAssignee unassigns the task; a null assigneeId cannot be told apart from an absent one.
	ClearAssignee bool       `json:"clearAssignee"`
	DueDate       *time.Time `json:"dueDate"`
}

type CommentRequest struct {
	Body string `json:"body" validate:"required,max=10000"`
}

type ParticipantRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type CommunicationRequest struct {
	Type         *string              `json:"type" validate:"omitempty,oneof=call email meeting note"`
	Direction    *string              `json:"direction" validate:"omitempty,oneof=inbound outbound"`
	Subject      *string              `json:"subject" validate:"omitempty,max=500"`
	Body         *string              `json:"body"`
	ContactName  *string              `json:"contactName"`
	MilestoneID  *uuid.UUID           `json:"milestoneId"`
	OccurredAt   *time.Time           `json:"occurredAt"`
	Participants []ParticipantRequest `json:"participants" validate:"omitempty,dive"`
}

type EventRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=300"`
	Description *string    `json:"description"`
	Type        *string    `json:"type" validate:"omitempty,oneof=installation meeting inspection other"`
	StartAt     *time.Time `json:"startAt"`
	EndAt       *time.Time `json:"endAt"`
	AllDay      *bool      `json:"allDay"`
	Location    *string    `json:"location"`
	ProjectID   *uuid.UUID `json:"projectId"`
	MilestoneID *uuid.UUID `json:"milestoneId"`
	Attendees   []string   `json:"attendees" validate:"omitempty,dive,email"`
}

type JobTypeRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	Color       *string `json:"color" validate:"omitempty,hexcolor"`
}

type ItemRequest struct {
	Name              *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description       *string          `json:"description"`
	SKU               *string          `json:"sku" validate:"omitempty,max=100"`
	PartNumber        *string          `json:"partNumber"`
	Category          *string          `json:"category"`
	JobTypeID         *uuid.UUID       `json:"jobTypeId"`
	ClearJobType      bool             `json:"clearJobType"`
	Quantity          *int             `json:"quantity" validate:"omitempty,gte=0"`
	Threshold         *int             `json:"threshold" validate:"omitempty,gte=0"`
	Unit              *string          `json:"unit"`
	SerialTracked     *bool            `json:"serialTracked"`
	Location          *string          `json:"location"`
	Supplier          *string          `json:"supplier"`
	Distributor       *string          `json:"distributor"`
	OrderContactName  *string          `json:"orderContactName"`
	OrderContactEmail *string          `json:"orderContactEmail" validate:"omitempty,email"`
	OrderContactPhone *string          `json:"orderContactPhone"`
	Cost              *decimal.Decimal `json:"cost"`
	Notes             *string          `json:"notes"`
}

type UnitRequest struct {
	SerialNumber *string `json:"serialNumber" validate:"omitempty,min=1,max=200"`
	AssetTag     *string `json:"assetTag"`
	Status       *string `json:"status" validate:"omitempty,oneof=available assigned used"`
	Notes        *string `json:"notes"`
}

type AssignRequest struct {
	ItemID      uuid.UUID  `json:"itemId" validate:"required"`
	UnitID      *uuid.UUID `json:"unitId"`
	Quantity    int        `json:"quantity" validate:"gte=0"`
	ProjectID   *uuid.UUID `json:"projectId" validate:"required_without=MilestoneID"`
	MilestoneID *uuid.UUID `json:"milestoneId" validate:"required_without=ProjectID"`
	Notes       string     `json:"notes"`
}

type AssignmentUpdateRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=assigned used returned"`
	Notes  *string `json:"notes"`
}

type PackageItemRequest struct {
	ItemID   uuid.UUID `json:"itemId" validate:"required"`
	Quantity int       `json:"quantity" validate:"gte=1"`
}

type PackageRequest struct {
	Name        *string              `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string              `json:"description"`
	Items       []PackageItemRequest `json:"items" validate:"omitempty,dive"`
}

type ApplyPackageRequest struct {
	MilestoneID uuid.UUID `json:"milestoneId" validate:"required"`
}

type TemplateTaskRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Order       int    `json:"order" validate:"gte=0"`
}

type TemplateMilestoneRequest struct {
	Name        string                `json:"name" validate:"required"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Order       int                   `json:"order" validate:"gte=0"`
	Tasks       []TemplateTaskRequest `json:"tasks" validate:"omitempty,dive"`
}

type TemplateRequest struct {
	Name        *string                    `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string                    `json:"description"`
	IsDefault   *bool                      `json:"isDefault"`
	Milestones  []TemplateMilestoneRequest `json:"milestones" validate:"omitempty,dive"`
}

type ScheduleRequest struct {
	Enabled   bool   `json:"enabled"`
	Frequency string `json:"frequency" validate:"required,oneof=every_10_minutes every_30_minutes hourly daily weekly"`
}
