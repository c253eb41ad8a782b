package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/testutil"
	appErr "github.com/voltworks/portal/pkg/errors"
	"gorm.io/gorm"
)

type inventoryFixture struct {
	db        *gorm.DB
	svc       InventoryService
	admin     *models.User
	project   *models.Project
	milestone *models.Milestone
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	db := testutil.NewTestDB(t)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	p := testutil.CreateProject(t, db, admin, "Smith Residence")
	m := testutil.CreateMilestone(t, db, p, "Rough-in")
	return &inventoryFixture{
		db:        db,
		svc:       NewInventoryService(db, repository.NewInventoryRepository(db)),
		admin:     admin,
		project:   p,
		milestone: m,
	}
}

func TestInventory_AvailabilityAndLowStock(t *testing.T) {
	f := newInventoryFixture(t)
	item := testutil.CreateItem(t, f.db, "Cable Reel", 10, 2)

	_, err := f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, Quantity: 7, ProjectID: &f.project.ID})
	require.NoError(t, err)

	got, err := f.svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Available)
	assert.False(t, got.IsLowStock)

	a, err := f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, Quantity: 2, MilestoneID: &f.milestone.ID})
	require.NoError(t, err)
	require.NotNil(t, a.ProjectID)
	assert.Equal(t, f.project.ID, *a.ProjectID)

	got, err = f.svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Available)
	assert.True(t, got.IsLowStock)

	low, err := f.svc.ListItems(ctx, repository.ItemFilter{LowStockOnly: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, item.ID, low[0].ID)

	_, err = f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, Quantity: 2, ProjectID: &f.project.ID})
	requireCode(t, err, appErr.CodeInvalid)
	assert.Equal(t, "insufficient inventory: requested 2, available 1", rowMessage(err))

	// returned stock is available again; used stock stays committed
	_, err = f.svc.UpdateAssignment(ctx, f.admin, a.ID, &AssignmentUpdate{Status: ptr(models.AssignmentReturned)})
	require.NoError(t, err)
	got, err = f.svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Available)
}

func TestInventory_ConcurrentAssignmentsNeverOverAllocate(t *testing.T) {
	f := newInventoryFixture(t)
	item := testutil.CreateItem(t, f.db, "Breaker 20A", 10, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, rejected := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, Quantity: 2, ProjectID: &f.project.ID})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if appErr.IsCode(err, appErr.CodeInvalid) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 3, rejected)
	got, err := f.svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Available)
}

func TestInventory_UnitLifecycle(t *testing.T) {
	f := newInventoryFixture(t)
	item, err := f.svc.CreateItem(ctx, &ItemInput{Name: ptr("Inverter"), SerialTracked: ptr(true)})
	require.NoError(t, err)

	unit, err := f.svc.CreateUnit(ctx, item.ID, &UnitInput{SerialNumber: ptr("INV-001")})
	require.NoError(t, err)
	assert.Equal(t, models.UnitAvailable, unit.Status)

	_, err = f.svc.CreateUnit(ctx, item.ID, &UnitInput{SerialNumber: ptr("INV-001")})
	requireCode(t, err, appErr.CodeConflict)

	got, err := f.svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)

	a, err := f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, UnitID: &unit.ID, ProjectID: &f.project.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Quantity)

	u, err := f.svc.GetUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitAssigned, u.Status)

	// a held unit cannot be assigned twice or deleted
	_, err = f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, UnitID: &unit.ID, ProjectID: &f.project.ID})
	requireCode(t, err, appErr.CodeInvalid)
	requireCode(t, f.svc.DeleteUnit(ctx, unit.ID), appErr.CodeInvalid)

	require.NoError(t, f.svc.ReturnAssignment(ctx, f.admin, a.ID))
	u, err = f.svc.GetUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitAvailable, u.Status)

	a, err = f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, UnitID: &unit.ID, MilestoneID: &f.milestone.ID})
	require.NoError(t, err)
	_, err = f.svc.UpdateAssignment(ctx, f.admin, a.ID, &AssignmentUpdate{Status: ptr(models.AssignmentUsed)})
	require.NoError(t, err)
	u, err = f.svc.GetUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitUsed, u.Status)

	// used is terminal for the assignment
	_, err = f.svc.UpdateAssignment(ctx, f.admin, a.ID, &AssignmentUpdate{Status: ptr(models.AssignmentReturned)})
	requireCode(t, err, appErr.CodeInvalid)
}

func TestInventory_DeleteItemBlockedByActiveAssignments(t *testing.T) {
	f := newInventoryFixture(t)
	item := testutil.CreateItem(t, f.db, "Conduit", 5, 1)

	a, err := f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, Quantity: 1, ProjectID: &f.project.ID})
	require.NoError(t, err)

	err = f.svc.DeleteItem(ctx, item.ID)
	requireCode(t, err, appErr.CodeInvalid)
	assert.Contains(t, err.Error(), "active assignment")

	require.NoError(t, f.svc.ReturnAssignment(ctx, f.admin, a.ID))
	require.NoError(t, f.svc.DeleteItem(ctx, item.ID))
	_, err = f.svc.GetItem(ctx, item.ID)
	requireCode(t, err, appErr.CodeNotFound)
}

func TestInventory_QuantityCannotDropBelowCommitted(t *testing.T) {
	f := newInventoryFixture(t)
	item := testutil.CreateItem(t, f.db, "Wire 12AWG", 10, 0)
	_, err := f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, Quantity: 6, ProjectID: &f.project.ID})
	require.NoError(t, err)

	_, err = f.svc.UpdateItem(ctx, item.ID, &ItemInput{Quantity: ptr(5)})
	requireCode(t, err, appErr.CodeInvalid)

	got, err := f.svc.UpdateItem(ctx, item.ID, &ItemInput{Quantity: ptr(6)})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Available)
}

func TestInventory_AssignmentScopedToVisibleProjects(t *testing.T) {
	f := newInventoryFixture(t)
	other := testutil.CreateUser(t, f.db, "tech@example.com", models.RoleUser)
	item := testutil.CreateItem(t, f.db, "Panel", 3, 0)

	_, err := f.svc.Assign(ctx, other, &AssignInput{ItemID: item.ID, Quantity: 1, ProjectID: &f.project.ID})
	requireCode(t, err, appErr.CodeNotFound)

	_, err = f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, Quantity: 1})
	requireCode(t, err, appErr.CodeInvalid)

	missing := uuid.New()
	_, err = f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, Quantity: 1, MilestoneID: &missing})
	requireCode(t, err, appErr.CodeNotFound)
}

func TestInventory_ApplyPackageIsAllOrNothing(t *testing.T) {
	f := newInventoryFixture(t)
	plenty := testutil.CreateItem(t, f.db, "Junction Box", 50, 5)
	scarce := testutil.CreateItem(t, f.db, "Smart Meter", 1, 0)

	pkg, err := f.svc.CreatePackage(ctx, &PackageInput{
		Name: ptr("Standard install"),
		Items: []PackageItemInput{
			{ItemID: plenty.ID, Quantity: 4},
			{ItemID: scarce.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, pkg.Items, 2)

	_, err = f.svc.ApplyPackage(ctx, f.admin, pkg.ID, f.milestone.ID)
	requireCode(t, err, appErr.CodeInvalid)
	assert.Contains(t, err.Error(), "Smart Meter")

	as, err := f.svc.ListAssignments(ctx, f.admin, repository.AssignmentFilter{MilestoneID: &f.milestone.ID})
	require.NoError(t, err)
	assert.Empty(t, as)

	_, err = f.svc.UpdatePackage(ctx, pkg.ID, &PackageInput{Items: []PackageItemInput{
		{ItemID: plenty.ID, Quantity: 4},
		{ItemID: scarce.ID, Quantity: 1},
	}})
	require.NoError(t, err)

	created, err := f.svc.ApplyPackage(ctx, f.admin, pkg.ID, f.milestone.ID)
	require.NoError(t, err)
	assert.Len(t, created, 2)

	got, err := f.svc.GetItem(ctx, plenty.ID)
	require.NoError(t, err)
	assert.Equal(t, 46, got.Available)
}

func TestInventory_DeleteMilestoneReleasesUnits(t *testing.T) {
	f := newInventoryFixture(t)
	item, err := f.svc.CreateItem(ctx, &ItemInput{Name: ptr("Battery"), SerialTracked: ptr(true)})
	require.NoError(t, err)
	unit, err := f.svc.CreateUnit(ctx, item.ID, &UnitInput{SerialNumber: ptr("BAT-7")})
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, UnitID: &unit.ID, MilestoneID: &f.milestone.ID})
	require.NoError(t, err)

	require.NoError(t, NewMilestoneService(f.db, nil).Delete(ctx, f.admin, f.milestone.ID))

	u, err := f.svc.GetUnit(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitAvailable, u.Status)
	got, err := f.svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Available)
}
