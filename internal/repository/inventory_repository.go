package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/voltworks/portal/internal/models"
	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/gorm"
)

// ItemFilter narrows inventory listings.
type ItemFilter struct {
	Search       string
	Category     string
	JobTypeID    *uuid.UUID
	LowStockOnly bool
}

// AssignmentFilter narrows assignment listings; zero fields are ignored.
type AssignmentFilter struct {
	ItemID      *uuid.UUID
	ProjectID   *uuid.UUID
	MilestoneID *uuid.UUID
	Status      string
}

type InventoryRepository interface {
	BaseRepository[models.InventoryItem]
	ListItems(ctx context.Context, f ItemFilter) ([]models.InventoryItem, error)
	GetItem(ctx context.Context, id uuid.UUID, dest *models.InventoryItem) error
	FindBySKU(ctx context.Context, sku string, dest *models.InventoryItem) error
	FindByName(ctx context.Context, name string, dest *models.InventoryItem) error
	// LockItem takes the item's write lock for the rest of the transaction and reloads it.
	LockItem(ctx context.Context, id uuid.UUID, dest *models.InventoryItem) error
	Committed(ctx context.Context, itemID uuid.UUID) (int, error)
	CommittedByItem(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]int, error)
	CountActiveAssignments(ctx context.Context, itemID uuid.UUID) (int64, error)
	ListAssignments(ctx context.Context, f AssignmentFilter) ([]models.InventoryAssignment, error)
	// ReleaseUnitsFor frees units held by assigned rows for a project or milestone.
	ReleaseUnitsFor(ctx context.Context, column string, id uuid.UUID) error
}

type inventoryRepository struct {
	BaseRepository[models.InventoryItem]
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{BaseRepository: NewBaseRepository[models.InventoryItem](db, "inventory item"), db: db}
}

func (r *inventoryRepository) ListItems(ctx context.Context, f ItemFilter) ([]models.InventoryItem, error) {
	q := r.db.WithContext(ctx).Preload("JobType")
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(part_number) LIKE ?", like, like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.JobTypeID != nil {
		q = q.Where("job_type_id = ?", *f.JobTypeID)
	}
	var items []models.InventoryItem
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list inventory items failed")
	}
	if err := r.fillAvailability(ctx, items); err != nil {
		return nil, err
	}
	if !f.LowStockOnly {
		return items, nil
	}
	low := items[:0]
	for _, it := range items {
		if it.IsLowStock {
			low = append(low, it)
		}
	}
	return low, nil
}

func (r *inventoryRepository) GetItem(ctx context.Context, id uuid.UUID, dest *models.InventoryItem) error {
	err := r.db.WithContext(ctx).Preload("JobType").
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("serial_number ASC") }).
		First(dest, "id = ?", id).Error
	if err != nil {
		return translate(err, "inventory item", "get")
	}
	committed, err := r.Committed(ctx, id)
	if err != nil {
		return err
	}
	dest.SetAvailability(committed)
	return nil
}

func (r *inventoryRepository) FindBySKU(ctx context.Context, sku string, dest *models.InventoryItem) error {
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(dest).Error; err != nil {
		return translate(err, "inventory item", "get")
	}
	return nil
}

func (r *inventoryRepository) FindByName(ctx context.Context, name string, dest *models.InventoryItem) error {
	if err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(name)).First(dest).Error; err != nil {
		return translate(err, "inventory item", "get")
	}
	return nil
}

func (r *inventoryRepository) LockItem(ctx context.Context, id uuid.UUID, dest *models.InventoryItem) error {
	// An UPDATE takes the row lock on postgres and the database write lock on sqlite,
	// so concurrent allocations against the same item serialize here.
	res := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("id = ?", id).UpdateColumn("updated_at", time.Now())
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "lock inventory item failed")
	}
	if res.RowsAffected == 0 {
		return appErr.NotFound("inventory item not found")
	}
	if err := r.db.WithContext(ctx).First(dest, "id = ?", id).Error; err != nil {
		return translate(err, "inventory item", "get")
	}
	return nil
}

func (r *inventoryRepository) Committed(ctx context.Context, itemID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).Model(&models.InventoryAssignment{}).
		Where("item_id = ? AND status IN ?", itemID, models.ActiveAssignmentStatuses).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "sum assignments failed")
	}
	return total, nil
}

func (r *inventoryRepository) CommittedByItem(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ItemID uuid.UUID
		Total  int
	}
	err := r.db.WithContext(ctx).Model(&models.InventoryAssignment{}).
		Select("item_id, COALESCE(SUM(quantity), 0) AS total").
		Where("item_id IN ? AND status IN ?", itemIDs, models.ActiveAssignmentStatuses).
		Group("item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "sum assignments failed")
	}
	for _, row := range rows {
		out[row.ItemID] = row.Total
	}
	return out, nil
}

func (r *inventoryRepository) fillAvailability(ctx context.Context, items []models.InventoryItem) error {
	ids := make([]uuid.UUID, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	committed, err := r.CommittedByItem(ctx, ids)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].SetAvailability(committed[items[i].ID])
	}
	return nil
}

func (r *inventoryRepository) CountActiveAssignments(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.InventoryAssignment{}).
		Where("item_id = ? AND status IN ?", itemID, models.ActiveAssignmentStatuses).
		Count(&n).Error
	if err != nil {
		return 0, appErr.Wrap(err, appErr.CodeInternal, "count assignments failed")
	}
	return n, nil
}

func (r *inventoryRepository) ListAssignments(ctx context.Context, f AssignmentFilter) ([]models.InventoryAssignment, error) {
	q := r.db.WithContext(ctx).Preload("Item").Preload("Unit")
	if f.ItemID != nil {
		q = q.Where("item_id = ?", *f.ItemID)
	}
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.MilestoneID != nil {
		q = q.Where("milestone_id = ?", *f.MilestoneID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var out []models.InventoryAssignment
	if err := q.Order("assigned_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list assignments failed")
	}
	return out, nil
}

func (r *inventoryRepository) ReleaseUnitsFor(ctx context.Context, column string, id uuid.UUID) error {
	if column != "project_id" && column != "milestone_id" {
		return appErr.Newf(appErr.CodeInternal, "unsupported assignment column %q", column)
	}
	held := r.db.Model(&models.InventoryAssignment{}).
		Select("unit_id").
		Where(column+" = ? AND status = ? AND unit_id IS NOT NULL", id, models.AssignmentAssigned)
	err := r.db.WithContext(ctx).Model(&models.InventoryUnit{}).
		Where("id IN (?)", held).
		Update("status", models.UnitAvailable).Error
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "release units failed")
	}
	return nil
}
