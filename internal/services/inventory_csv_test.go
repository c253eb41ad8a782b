package services

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	"github.com/voltworks/portal/internal/testutil"
)

func TestCanonicalHeader(t *testing.T) {
	cases := map[string]string{
		"Item Name":           colName,
		"\ufeffName":          colName,
		"QTY":                 colQuantity,
		"Reorder Level":       colThreshold,
		"low_stock_threshold": colThreshold,
		"Part #":              colPartNumber,
		"Vendor":              colSupplier,
		"Unit Cost":           colCost,
		"Track Serials":       colSerialTracked,
		"JobType":             colJobType,
		"Order Contact Email": colOrderContactEmail,
	}
	for in, want := range cases {
		assert.Equal(t, want, canonicalHeader(in), in)
	}
}

func TestInventoryCSV_RoundTrip(t *testing.T) {
	f := newInventoryFixture(t)
	jt := &models.JobType{Name: "Solar"}
	require.NoError(t, f.db.Create(jt).Error)

	item, err := f.svc.CreateItem(ctx, &ItemInput{
		Name:      ptr("Cable Reel"),
		SKU:       ptr("CR-100"),
		JobTypeID: &jt.ID,
		Quantity:  ptr(10),
		Threshold: ptr(2),
		Cost:      ptr(decimal.RequireFromString("42.50")),
		Supplier:  ptr("Acme Electric"),
	})
	require.NoError(t, err)
	_, err = f.svc.Assign(ctx, f.admin, &AssignInput{ItemID: item.ID, Quantity: 3, ProjectID: &f.project.ID})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(ctx, &buf))

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, "Cable Reel", rows[1][0])
	assert.Equal(t, "CR-100", rows[1][2])
	assert.Equal(t, "Solar", rows[1][5])
	assert.Equal(t, "10", rows[1][6])
	assert.Equal(t, "7", rows[1][7])
	assert.Equal(t, "42.50", rows[1][17])

	// re-importing the export updates in place and ignores Available
	res, err := f.svc.ImportCSV(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Empty(t, res.Errors)

	got, err := f.svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Quantity)
	assert.Equal(t, 7, got.Available)
	assert.True(t, decimal.RequireFromString("42.50").Equal(got.Cost))
}

func TestInventoryCSV_ImportSynonymsAndErrors(t *testing.T) {
	f := newInventoryFixture(t)
	existing := testutil.CreateItem(t, f.db, "Breaker 20A", 4, 1)

	in := strings.Join([]string{
		"Item Name,Part #,Qty,Min Stock,Vendor,Price,Serialized,Type,Available",
		"Breaker 20A,BR-20,12,3,Acme,$8.25,no,Electrical,999",
		"Smart Meter,SM-1,2,1,Grid Co,120,yes,Solar,0",
		"Bad Row,X,lots,1,,,,,",
		",,,,,,,,",
		"Negative,N-1,-4,0,,,,,",
	}, "\n")

	res, err := f.svc.ImportCSV(ctx, strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 4, res.Errors[0].Row)
	assert.Contains(t, res.Errors[0].Message, "quantity")
	assert.Equal(t, 6, res.Errors[1].Row)

	got, err := f.svc.GetItem(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Quantity)
	assert.Equal(t, 3, got.Threshold)
	assert.Equal(t, "BR-20", got.PartNumber)
	assert.Equal(t, "Acme", got.Supplier)
	assert.True(t, decimal.RequireFromString("8.25").Equal(got.Cost))
	require.NotNil(t, got.JobType)
	assert.Equal(t, "Electrical", got.JobType.Name)

	items, err := f.svc.ListItems(ctx, repository.ItemFilter{Search: "smart"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].SerialTracked)
	assert.Equal(t, 2, items[0].Quantity)

	var jobTypes []models.JobType
	require.NoError(t, f.db.Order("name").Find(&jobTypes).Error)
	require.Len(t, jobTypes, 2)
	assert.Equal(t, "Electrical", jobTypes[0].Name)
	assert.Equal(t, "Solar", jobTypes[1].Name)

	// the bad rows created nothing
	var n int64
	require.NoError(t, f.db.Model(&models.InventoryItem{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
}

func TestInventoryCSV_RequiresNameColumn(t *testing.T) {
	f := newInventoryFixture(t)
	_, err := f.svc.ImportCSV(ctx, strings.NewReader("SKU,Qty\nA,1\n"))
	require.Error(t, err)

	_, err = f.svc.ImportCSV(ctx, strings.NewReader(""))
	require.Error(t, err)
}
