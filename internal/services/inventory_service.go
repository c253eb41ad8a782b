package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type InventoryService interface {
	ListItems(ctx context.Context, f repository.ItemFilter) ([]models.InventoryItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	CreateItem(ctx context.Context, input *ItemInput) (*models.InventoryItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, input *ItemInput) (*models.InventoryItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	ListUnits(ctx context.Context, itemID uuid.UUID) ([]models.InventoryUnit, error)
	GetUnit(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error)
	CreateUnit(ctx context.Context, itemID uuid.UUID, input *UnitInput) (*models.InventoryUnit, error)
	UpdateUnit(ctx context.Context, id uuid.UUID, input *UnitInput) (*models.InventoryUnit, error)
	DeleteUnit(ctx context.Context, id uuid.UUID) error

	ListAssignments(ctx context.Context, actor *models.User, f repository.AssignmentFilter) ([]models.InventoryAssignment, error)
	Assign(ctx context.Context, actor *models.User, input *AssignInput) (*models.InventoryAssignment, error)
	UpdateAssignment(ctx context.Context, actor *models.User, id uuid.UUID, input *AssignmentUpdate) (*models.InventoryAssignment, error)
	// ReturnAssignment deletes the assignment, freeing its stock and any held unit.
	ReturnAssignment(ctx context.Context, actor *models.User, id uuid.UUID) error

	ListPackages(ctx context.Context) ([]models.InventoryPackage, error)
	GetPackage(ctx context.Context, id uuid.UUID) (*models.InventoryPackage, error)
	CreatePackage(ctx context.Context, input *PackageInput) (*models.InventoryPackage, error)
	UpdatePackage(ctx context.Context, id uuid.UUID, input *PackageInput) (*models.InventoryPackage, error)
	DeletePackage(ctx context.Context, id uuid.UUID) error
	ApplyPackage(ctx context.Context, actor *models.User, packageID, milestoneID uuid.UUID) ([]models.InventoryAssignment, error)

	ExportCSV(ctx context.Context, w io.Writer) error
	ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error)
}

type ItemInput struct {
	Name              *string
	Description       *string
	SKU               *string
	PartNumber        *string
	Category          *string
	JobTypeID         *uuid.UUID
	ClearJobType      bool
	Quantity          *int
	Threshold         *int
	Unit              *string
	SerialTracked     *bool
	Location          *string
	Supplier          *string
	Distributor       *string
	OrderContactName  *string
	OrderContactEmail *string
	OrderContactPhone *string
	Cost              *decimal.Decimal
	Notes             *string
}

type UnitInput struct {
	SerialNumber *string
	AssetTag     *string
	Status       *string
	Notes        *string
}

type AssignInput struct {
	ItemID      uuid.UUID
	UnitID      *uuid.UUID
	Quantity    int
	ProjectID   *uuid.UUID
	MilestoneID *uuid.UUID
	Notes       string
}

type AssignmentUpdate struct {
	Status *string
	Notes  *string
}

type PackageItemInput struct {
	ItemID   uuid.UUID
	Quantity int
}

type PackageInput struct {
	Name        *string
	Description *string
	Items       []PackageItemInput
}

type inventoryService struct {
	db   *gorm.DB
	repo repository.InventoryRepository
}

func NewInventoryService(db *gorm.DB, repo repository.InventoryRepository) InventoryService {
	return &inventoryService{db: db, repo: repo}
}

var _ InventoryService = (*inventoryService)(nil)

// ErrInsufficientInventory builds the error returned when an allocation exceeds stock.
func ErrInsufficientInventory(requested, available int) error {
	return appErr.Newf(appErr.CodeInvalid, "insufficient inventory: requested %d, available %d", requested, available).
		WithMeta("requested", requested).
		WithMeta("available", available)
}

// Items

func (s *inventoryService) ListItems(ctx context.Context, f repository.ItemFilter) ([]models.InventoryItem, error) {
	return s.repo.ListItems(ctx, f)
}

func (s *inventoryService) GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var it models.InventoryItem
	if err := s.repo.GetItem(ctx, id, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *inventoryService) CreateItem(ctx context.Context, input *ItemInput) (*models.InventoryItem, error) {
	it := &models.InventoryItem{Unit: "each"}
	if err := s.applyItem(ctx, s.db, it, input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(it.Name) == "" {
		return nil, appErr.Invalid("name is required")
	}
	if err := s.checkSKU(ctx, s.db, it); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}
	logger.L().Info("inventory item created", zap.String("item_id", it.ID.String()), zap.String("name", it.Name), zap.Int("quantity", it.Quantity))
	return s.GetItem(ctx, it.ID)
}

func (s *inventoryService) UpdateItem(ctx context.Context, id uuid.UUID, input *ItemInput) (*models.InventoryItem, error) {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewInventoryRepository(tx)
		var it models.InventoryItem
		if err := repo.LockItem(ctx, id, &it); err != nil {
			return err
		}
		if err := s.applyItem(ctx, tx, &it, input); err != nil {
			return err
		}
		if err := s.checkSKU(ctx, tx, &it); err != nil {
			return err
		}
		if input.Quantity != nil {
			committed, err := repo.Committed(ctx, id)
			if err != nil {
				return err
			}
			if it.Quantity < committed {
				return appErr.Newf(appErr.CodeInvalid, "quantity cannot be less than the %d currently assigned", committed)
			}
		}
		return repo.Update(ctx, &it)
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

func (s *inventoryService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewInventoryRepository(tx)
		var it models.InventoryItem
		if err := repo.LockItem(ctx, id, &it); err != nil {
			return err
		}
		active, err := repo.CountActiveAssignments(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return appErr.Newf(appErr.CodeInvalid, "cannot delete %q: it has %d active assignment(s); return them first", it.Name, active)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.L().Info("inventory item deleted", zap.String("item_id", id.String()))
	return nil
}

func (s *inventoryService) applyItem(ctx context.Context, db *gorm.DB, it *models.InventoryItem, in *ItemInput) error {
	setIf(&it.Name, in.Name)
	setIf(&it.Description, in.Description)
	setIf(&it.SKU, in.SKU)
	setIf(&it.PartNumber, in.PartNumber)
	setIf(&it.Category, in.Category)
	setIf(&it.Quantity, in.Quantity)
	setIf(&it.Threshold, in.Threshold)
	setIf(&it.Unit, in.Unit)
	setIf(&it.SerialTracked, in.SerialTracked)
	setIf(&it.Location, in.Location)
	setIf(&it.Supplier, in.Supplier)
	setIf(&it.Distributor, in.Distributor)
	setIf(&it.OrderContactName, in.OrderContactName)
	setIf(&it.OrderContactEmail, in.OrderContactEmail)
	setIf(&it.OrderContactPhone, in.OrderContactPhone)
	setIf(&it.Cost, in.Cost)
	setIf(&it.Notes, in.Notes)
	it.SKU = strings.TrimSpace(it.SKU)
	if it.Quantity < 0 || it.Threshold < 0 {
		return appErr.Invalid("quantity and threshold must not be negative")
	}
	if it.Cost.IsNegative() {
		return appErr.Invalid("cost must not be negative")
	}
	switch {
	case in.ClearJobType:
		it.JobTypeID = nil
	case in.JobTypeID != nil:
		var jt models.JobType
		if err := repository.NewJobTypeRepository(db).GetByID(ctx, *in.JobTypeID, &jt); err != nil {
			return err
		}
		it.JobTypeID = in.JobTypeID
	}
	it.JobType = nil
	it.Units = nil
	return nil
}

// checkSKU keeps non-empty SKUs unique across items.
func (s *inventoryService) checkSKU(ctx context.Context, db *gorm.DB, it *models.InventoryItem) error {
	if it.SKU == "" {
		return nil
	}
	var other models.InventoryItem
	err := repository.NewInventoryRepository(db).FindBySKU(ctx, it.SKU, &other)
	switch {
	case err == nil && other.ID != it.ID:
		return appErr.Newf(appErr.CodeConflict, "SKU %q is already used by %q", it.SKU, other.Name)
	case err != nil && !appErr.IsCode(err, appErr.CodeNotFound):
		return err
	}
	return nil
}

// Units

func (s *inventoryService) unitRepo(db *gorm.DB) repository.BaseRepository[models.InventoryUnit] {
	return repository.NewBaseRepository[models.InventoryUnit](db, "inventory unit")
}

func (s *inventoryService) ListUnits(ctx context.Context, itemID uuid.UUID) ([]models.InventoryUnit, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	var out []models.InventoryUnit
	err := s.unitRepo(s.db).List(ctx, &out, repository.Where("item_id = ?", itemID), repository.OrderBy("serial_number ASC"))
	return out, err
}

func (s *inventoryService) GetUnit(ctx context.Context, id uuid.UUID) (*models.InventoryUnit, error) {
	var u models.InventoryUnit
	if err := s.unitRepo(s.db).GetByID(ctx, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *inventoryService) CreateUnit(ctx context.Context, itemID uuid.UUID, input *UnitInput) (*models.InventoryUnit, error) {
	u := &models.InventoryUnit{ItemID: itemID, Status: models.UnitAvailable}
	setIf(&u.SerialNumber, input.SerialNumber)
	setIf(&u.AssetTag, input.AssetTag)
	setIf(&u.Notes, input.Notes)
	u.SerialNumber = strings.TrimSpace(u.SerialNumber)
	if u.SerialNumber == "" {
		return nil, appErr.Invalid("serial number is required")
	}
	if input.Status != nil && *input.Status != models.UnitAvailable {
		return nil, appErr.Invalid("new units start available")
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewInventoryRepository(tx)
		var it models.InventoryItem
		if err := repo.LockItem(ctx, itemID, &it); err != nil {
			return err
		}
		if !it.SerialTracked {
			return appErr.Newf(appErr.CodeInvalid, "%q is not serial tracked", it.Name)
		}
		if err := s.unitRepo(tx).Create(ctx, u); err != nil {
			if appErr.IsCode(err, appErr.CodeConflict) {
				return appErr.Newf(appErr.CodeConflict, "serial number %q already exists for %q", u.SerialNumber, it.Name)
			}
			return err
		}
		// each tracked unit is one piece of stock
		return tx.Model(&models.InventoryItem{}).Where("id = ?", itemID).
			UpdateColumn("quantity", gorm.Expr("quantity + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *inventoryService) UpdateUnit(ctx context.Context, id uuid.UUID, input *UnitInput) (*models.InventoryUnit, error) {
	var u models.InventoryUnit
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		units := s.unitRepo(tx)
		if err := units.GetByID(ctx, id, &u); err != nil {
			return err
		}
		if input.Status != nil && *input.Status != u.Status {
			held, err := s.activeUnitAssignments(ctx, tx, id)
			if err != nil {
				return err
			}
			if held > 0 {
				return appErr.Invalid("unit status is managed by its active assignment")
			}
			u.Status = *input.Status
		}
		setIf(&u.SerialNumber, input.SerialNumber)
		setIf(&u.AssetTag, input.AssetTag)
		setIf(&u.Notes, input.Notes)
		return units.Update(ctx, &u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *inventoryService) DeleteUnit(ctx context.Context, id uuid.UUID) error {
	return inTx(ctx, s.db, func(tx *gorm.DB) error {
		units := s.unitRepo(tx)
		var u models.InventoryUnit
		if err := units.GetByID(ctx, id, &u); err != nil {
			return err
		}
		held, err := s.activeUnitAssignments(ctx, tx, id)
		if err != nil {
			return err
		}
		if held > 0 {
			return appErr.Newf(appErr.CodeInvalid, "cannot delete unit %q: it is attached to an active assignment", u.SerialNumber)
		}
		if err := units.Delete(ctx, id); err != nil {
			return err
		}
		return tx.Model(&models.InventoryItem{}).Where("id = ? AND quantity > 0", u.ItemID).
			UpdateColumn("quantity", gorm.Expr("quantity - 1")).Error
	})
}

func (s *inventoryService) activeUnitAssignments(ctx context.Context, db *gorm.DB, unitID uuid.UUID) (int64, error) {
	return repository.NewBaseRepository[models.InventoryAssignment](db, "assignment").Count(ctx,
		repository.Where("unit_id = ? AND status IN ?", unitID, models.ActiveAssignmentStatuses))
}

// Assignments

func (s *inventoryService) ListAssignments(ctx context.Context, actor *models.User, f repository.AssignmentFilter) ([]models.InventoryAssignment, error) {
	if f.ProjectID != nil {
		if _, err := loadVisibleProject(ctx, repository.NewProjectRepository(s.db), actor, *f.ProjectID); err != nil {
			return nil, err
		}
	}
	if f.MilestoneID != nil {
		if _, _, err := loadVisibleMilestone(ctx, s.db, actor, *f.MilestoneID); err != nil {
			return nil, err
		}
	}
	out, err := s.repo.ListAssignments(ctx, f)
	if err != nil || actor.IsAdmin() || f.ProjectID != nil || f.MilestoneID != nil {
		return out, err
	}
	// item-wide listings for non-admins only show their own projects
	visible := out[:0]
	for _, a := range out {
		if a.ProjectID == nil {
			continue
		}
		if _, err := loadVisibleProject(ctx, repository.NewProjectRepository(s.db), actor, *a.ProjectID); err == nil {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

func (s *inventoryService) Assign(ctx context.Context, actor *models.User, input *AssignInput) (*models.InventoryAssignment, error) {
	var out *models.InventoryAssignment
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		projectID, err := s.assignmentTarget(ctx, tx, actor, input.ProjectID, input.MilestoneID)
		if err != nil {
			return err
		}
		a, err := s.allocate(ctx, tx, actor, projectID, input)
		out = a
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("inventory assigned",
		zap.String("assignment_id", out.ID.String()),
		zap.String("item_id", out.ItemID.String()),
		zap.Int("quantity", out.Quantity))
	return out, nil
}

// assignmentTarget validates the project/milestone pair and returns the owning project id.
func (s *inventoryService) assignmentTarget(ctx context.Context, tx *gorm.DB, actor *models.User, projectID, milestoneID *uuid.UUID) (uuid.UUID, error) {
	switch {
	case milestoneID != nil:
		m, _, err := loadVisibleMilestone(ctx, tx, actor, *milestoneID)
		if err != nil {
			return uuid.Nil, err
		}
		if projectID != nil && *projectID != m.ProjectID {
			return uuid.Nil, appErr.Invalid("milestone belongs to a different project")
		}
		return m.ProjectID, nil
	case projectID != nil:
		p, err := loadVisibleProject(ctx, repository.NewProjectRepository(tx), actor, *projectID)
		if err != nil {
			return uuid.Nil, err
		}
		return p.ID, nil
	default:
		return uuid.Nil, appErr.Invalid("projectId or milestoneId is required")
	}
}

// allocate runs inside a transaction: the item row is locked before the availability
// check so two allocations against the same item cannot both pass it.
func (s *inventoryService) allocate(ctx context.Context, tx *gorm.DB, actor *models.User, projectID uuid.UUID, in *AssignInput) (*models.InventoryAssignment, error) {
	repo := repository.NewInventoryRepository(tx)
	var it models.InventoryItem
	if err := repo.LockItem(ctx, in.ItemID, &it); err != nil {
		return nil, err
	}

	qty := in.Quantity
	var unit *models.InventoryUnit
	if in.UnitID != nil {
		unit = &models.InventoryUnit{}
		if err := s.unitRepo(tx).GetByID(ctx, *in.UnitID, unit); err != nil {
			return nil, err
		}
		if unit.ItemID != it.ID {
			return nil, appErr.Invalid("unit does not belong to this item")
		}
		if unit.Status != models.UnitAvailable {
			return nil, appErr.Newf(appErr.CodeInvalid, "unit %s is %s, not available", unit.SerialNumber, unit.Status)
		}
		qty = 1
	}
	if qty <= 0 {
		return nil, appErr.Invalid("quantity must be positive")
	}

	committed, err := repo.Committed(ctx, it.ID)
	if err != nil {
		return nil, err
	}
	if available := it.Quantity - committed; qty > available {
		return nil, ErrInsufficientInventory(qty, available)
	}

	a := &models.InventoryAssignment{
		ItemID:       it.ID,
		UnitID:       in.UnitID,
		ProjectID:    &projectID,
		MilestoneID:  in.MilestoneID,
		Quantity:     qty,
		Status:       models.AssignmentAssigned,
		AssignedByID: actorID(actor),
		AssignedAt:   now(),
		Notes:        in.Notes,
	}
	if err := repository.NewBaseRepository[models.InventoryAssignment](tx, "assignment").Create(ctx, a); err != nil {
		return nil, err
	}
	if unit != nil {
		res := tx.Model(&models.InventoryUnit{}).
			Where("id = ? AND status = ?", unit.ID, models.UnitAvailable).
			Update("status", models.UnitAssigned)
		if res.Error != nil {
			return nil, appErr.Wrap(res.Error, appErr.CodeInternal, "mark unit assigned failed")
		}
		if res.RowsAffected == 0 {
			return nil, appErr.Newf(appErr.CodeInvalid, "unit %s is no longer available", unit.SerialNumber)
		}
	}
	return a, nil
}

func (s *inventoryService) loadAssignment(ctx context.Context, db *gorm.DB, actor *models.User, id uuid.UUID) (*models.InventoryAssignment, error) {
	var a models.InventoryAssignment
	if err := repository.NewBaseRepository[models.InventoryAssignment](db, "assignment").GetByID(ctx, id, &a); err != nil {
		return nil, err
	}
	if a.ProjectID != nil {
		if _, err := loadVisibleProject(ctx, repository.NewProjectRepository(db), actor, *a.ProjectID); err != nil {
			return nil, appErr.NotFound("assignment not found")
		}
	} else if !actor.IsAdmin() {
		return nil, appErr.NotFound("assignment not found")
	}
	return &a, nil
}

func (s *inventoryService) UpdateAssignment(ctx context.Context, actor *models.User, id uuid.UUID, input *AssignmentUpdate) (*models.InventoryAssignment, error) {
	var out *models.InventoryAssignment
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		a, err := s.loadAssignment(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		setIf(&a.Notes, input.Notes)
		if input.Status != nil && *input.Status != a.Status {
			if a.Status != models.AssignmentAssigned {
				return appErr.Newf(appErr.CodeInvalid, "assignment is already %s", a.Status)
			}
			unitStatus := ""
			switch *input.Status {
			case models.AssignmentUsed:
				unitStatus = models.UnitUsed
			case models.AssignmentReturned:
				unitStatus = models.UnitAvailable
			default:
				return appErr.Newf(appErr.CodeInvalid, "cannot move assignment to %q", *input.Status)
			}
			a.Status = *input.Status
			if a.UnitID != nil {
				if err := tx.Model(&models.InventoryUnit{}).Where("id = ?", *a.UnitID).Update("status", unitStatus).Error; err != nil {
					return appErr.Wrap(err, appErr.CodeInternal, "update unit status failed")
				}
			}
		}
		out = a
		return repository.NewBaseRepository[models.InventoryAssignment](tx, "assignment").Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *inventoryService) ReturnAssignment(ctx context.Context, actor *models.User, id uuid.UUID) error {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		a, err := s.loadAssignment(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if a.UnitID != nil && a.Status == models.AssignmentAssigned {
			err := tx.Model(&models.InventoryUnit{}).
				Where("id = ? AND status = ?", *a.UnitID, models.UnitAssigned).
				Update("status", models.UnitAvailable).Error
			if err != nil {
				return appErr.Wrap(err, appErr.CodeInternal, "release unit failed")
			}
		}
		return repository.NewBaseRepository[models.InventoryAssignment](tx, "assignment").Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.L().Info("inventory assignment returned", zap.String("assignment_id", id.String()))
	return nil
}

// Packages

func (s *inventoryService) packageRepo(db *gorm.DB) repository.BaseRepository[models.InventoryPackage] {
	return repository.NewBaseRepository[models.InventoryPackage](db, "package")
}

func (s *inventoryService) ListPackages(ctx context.Context) ([]models.InventoryPackage, error) {
	var out []models.InventoryPackage
	err := s.packageRepo(s.db).List(ctx, &out, repository.Preload("Items.Item"), repository.OrderBy("name ASC"))
	return out, err
}

func (s *inventoryService) GetPackage(ctx context.Context, id uuid.UUID) (*models.InventoryPackage, error) {
	var p models.InventoryPackage
	if err := s.packageRepo(s.db).GetByID(ctx, id, &p, repository.Preload("Items.Item")); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *inventoryService) CreatePackage(ctx context.Context, input *PackageInput) (*models.InventoryPackage, error) {
	p := &models.InventoryPackage{}
	setIf(&p.Name, input.Name)
	setIf(&p.Description, input.Description)
	if strings.TrimSpace(p.Name) == "" {
		return nil, appErr.Invalid("name is required")
	}
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.packageRepo(tx).Create(ctx, p); err != nil {
			return err
		}
		return s.replacePackageItems(ctx, tx, p.ID, input.Items)
	})
	if err != nil {
		return nil, err
	}
	return s.GetPackage(ctx, p.ID)
}

func (s *inventoryService) UpdatePackage(ctx context.Context, id uuid.UUID, input *PackageInput) (*models.InventoryPackage, error) {
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := s.packageRepo(tx)
		var p models.InventoryPackage
		if err := repo.GetByID(ctx, id, &p); err != nil {
			return err
		}
		setIf(&p.Name, input.Name)
		setIf(&p.Description, input.Description)
		if err := repo.Update(ctx, &p); err != nil {
			return err
		}
		if input.Items == nil {
			return nil
		}
		return s.replacePackageItems(ctx, tx, id, input.Items)
	})
	if err != nil {
		return nil, err
	}
	return s.GetPackage(ctx, id)
}

func (s *inventoryService) replacePackageItems(ctx context.Context, tx *gorm.DB, packageID uuid.UUID, items []PackageItemInput) error {
	if err := tx.Where("package_id = ?", packageID).Delete(&models.InventoryPackageItem{}).Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "clear package items failed")
	}
	repo := repository.NewInventoryRepository(tx)
	for _, in := range items {
		if in.Quantity <= 0 {
			return appErr.Invalid("package item quantity must be positive")
		}
		var it models.InventoryItem
		if err := repo.GetByID(ctx, in.ItemID, &it); err != nil {
			return err
		}
		pi := &models.InventoryPackageItem{PackageID: packageID, ItemID: in.ItemID, Quantity: in.Quantity}
		if err := tx.Create(pi).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "create package item failed")
		}
	}
	return nil
}

func (s *inventoryService) DeletePackage(ctx context.Context, id uuid.UUID) error {
	return s.packageRepo(s.db).Delete(ctx, id)
}

// ApplyPackage allocates every item in the package to the milestone, all or nothing.
func (s *inventoryService) ApplyPackage(ctx context.Context, actor *models.User, packageID, milestoneID uuid.UUID) ([]models.InventoryAssignment, error) {
	var out []models.InventoryAssignment
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		var p models.InventoryPackage
		if err := s.packageRepo(tx).GetByID(ctx, packageID, &p, repository.Preload("Items.Item")); err != nil {
			return err
		}
		if len(p.Items) == 0 {
			return appErr.Newf(appErr.CodeInvalid, "package %q has no items", p.Name)
		}
		projectID, err := s.assignmentTarget(ctx, tx, actor, nil, &milestoneID)
		if err != nil {
			return err
		}
		for _, pi := range p.Items {
			a, err := s.allocate(ctx, tx, actor, projectID, &AssignInput{
				ItemID:      pi.ItemID,
				Quantity:    pi.Quantity,
				MilestoneID: &milestoneID,
				Notes:       fmt.Sprintf("package: %s", p.Name),
			})
			if err != nil {
				var ae *appErr.AppError
				if pi.Item != nil && errors.As(err, &ae) && ae.Code == appErr.CodeInvalid {
					return appErr.Newf(appErr.CodeInvalid, "%s: %s", pi.Item.Name, ae.Message)
				}
				return err
			}
			out = append(out, *a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("package applied", zap.String("package_id", packageID.String()), zap.String("milestone_id", milestoneID.String()), zap.Int("assignments", len(out)))
	return out, nil
}
