package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	UnitAvailable = "available"
	UnitAssigned  = "assigned"
	UnitUsed      = "used"

	AssignmentAssigned = "assigned"
	AssignmentUsed     = "used"
	AssignmentReturned = "returned"
)

// ActiveAssignmentStatuses count against an item's available stock.
var ActiveAssignmentStatuses = []string{AssignmentAssigned, AssignmentUsed}

// InventoryItem is a stock-keeping unit.
type InventoryItem struct {
	Base
	Name              string          `gorm:"not null;index" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	SKU               string          `gorm:"column:sku;index" json:"sku"`
	PartNumber        string          `json:"partNumber"`
	Category          string          `gorm:"index" json:"category"`
	JobTypeID         *uuid.UUID      `gorm:"type:uuid;index" json:"jobTypeId"`
	JobType           *JobType        `gorm:"foreignKey:JobTypeID" json:"jobType,omitempty"`
	Quantity          int             `gorm:"not null;default:0" json:"quantity"`
	Threshold         int             `gorm:"not null;default:0" json:"threshold"`
	Unit              string          `json:"unit"`
	SerialTracked     bool            `gorm:"not null;default:false" json:"serialTracked"`
	Location          string          `json:"location"`
	Supplier          string          `json:"supplier"`
	Distributor       string          `json:"distributor"`
	OrderContactName  string          `json:"orderContactName"`
	OrderContactEmail string          `json:"orderContactEmail"`
	OrderContactPhone string          `json:"orderContactPhone"`
	Cost              decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost"`
	Notes             string          `gorm:"type:text" json:"notes"`

	Units []InventoryUnit `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"units,omitempty"`

	Available  int  `gorm:"-" json:"available"`
	IsLowStock bool `gorm:"-" json:"isLowStock"`
}

// SetAvailability fills the derived stock fields from the active assignment total.
func (i *InventoryItem) SetAvailability(committed int) {
	i.Available = i.Quantity - committed
	i.IsLowStock = i.Available < i.Threshold
}

// InventoryUnit is one serial-tracked instance of an item.
type InventoryUnit struct {
	Base
	ItemID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_unit_serial" json:"itemId"`
	SerialNumber string    `gorm:"not null;uniqueIndex:idx_unit_serial" json:"serialNumber"`
	AssetTag     string    `json:"assetTag"`
	Status       string    `gorm:"type:varchar(16);not null;default:available;index" json:"status"`
	Notes        string    `gorm:"type:text" json:"notes"`
}

// InventoryAssignment allocates stock, or a single unit, to a project or milestone.
type InventoryAssignment struct {
	Base
	ItemID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"itemId"`
	Item         *InventoryItem `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item,omitempty"`
	UnitID       *uuid.UUID     `gorm:"type:uuid;index" json:"unitId"`
	Unit         *InventoryUnit `gorm:"foreignKey:UnitID;constraint:OnDelete:SET NULL" json:"unit,omitempty"`
	ProjectID    *uuid.UUID     `gorm:"type:uuid;index" json:"projectId"`
	Project      *Project       `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	MilestoneID  *uuid.UUID     `gorm:"type:uuid;index" json:"milestoneId"`
	Milestone    *Milestone     `gorm:"foreignKey:MilestoneID;constraint:OnDelete:CASCADE" json:"-"`
	Quantity     int            `gorm:"not null" json:"quantity"`
	Status       string         `gorm:"type:varchar(16);not null;default:assigned;index" json:"status"`
	AssignedByID *uuid.UUID     `gorm:"type:uuid" json:"assignedById"`
	AssignedBy   *User          `gorm:"foreignKey:AssignedByID;constraint:OnDelete:SET NULL" json:"-"`
	AssignedAt   time.Time      `json:"assignedAt"`
	Notes        string         `gorm:"type:text" json:"notes"`
}

// InventoryPackage is a named bundle of items applied to a milestone in one step.
type InventoryPackage struct {
	Base
	Name        string                 `gorm:"uniqueIndex;not null" json:"name"`
	Description string                 `gorm:"type:text" json:"description"`
	Items       []InventoryPackageItem `gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE" json:"items"`
}

type InventoryPackageItem struct {
	Base
	PackageID uuid.UUID      `gorm:"type:uuid;not null;index" json:"packageId"`
	ItemID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"itemId"`
	Item      *InventoryItem `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item,omitempty"`
	Quantity  int            `gorm:"not null" json:"quantity"`
}
