package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/voltworks/portal/internal/models"
	"github.com/voltworks/portal/internal/repository"
	appErr "github.com/voltworks/portal/pkg/errors"
	"github.com/voltworks/portal/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	colName              = "name"
	colDescription       = "description"
	colSKU               = "sku"
	colPartNumber        = "part number"
	colCategory          = "category"
	colJobType           = "job type"
	colQuantity          = "quantity"
	colAvailable         = "available"
	colThreshold         = "threshold"
	colUnit              = "unit"
	colSerialTracked     = "serial tracked"
	colLocation          = "location"
	colSupplier          = "supplier"
	colDistributor       = "distributor"
	colOrderContactName  = "order contact name"
	colOrderContactEmail = "order contact email"
	colOrderContactPhone = "order contact phone"
	colCost              = "cost"
	colNotes             = "notes"
)

// CSVHeader is the export column order.
var CSVHeader = []string{
	"Name", "Description", "SKU", "Part Number", "Category", "Job Type", "Quantity", "Available",
	"Threshold", "Unit", "Serial Tracked", "Location", "Supplier", "Distributor",
	"Order Contact Name", "Order Contact Email", "Order Contact Phone", "Cost", "Notes",
}

var headerSynonyms = map[string]string{
	"item name":           colName,
	"item":                colName,
	"qty":                 colQuantity,
	"min stock":           colThreshold,
	"reorder level":       colThreshold,
	"low stock threshold": colThreshold,
	"part #":              colPartNumber,
	"part no":             colPartNumber,
	"part no.":            colPartNumber,
	"vendor":              colSupplier,
	"price":               colCost,
	"unit cost":           colCost,
	"serialized":          colSerialTracked,
	"track serials":       colSerialTracked,
	"jobtype":             colJobType,
	"type":                colJobType,
}

// ImportResult summarises a CSV import.
type ImportResult struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Errors  []RowError `json:"errors"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func canonicalHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(h)), " ")
	if c, ok := headerSynonyms[h]; ok {
		return c
	}
	return h
}

func (s *inventoryService) ExportCSV(ctx context.Context, w io.Writer) error {
	items, err := s.repo.ListItems(ctx, repository.ItemFilter{})
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "write csv header failed")
	}
	for _, it := range items {
		jobType := ""
		if it.JobType != nil {
			jobType = it.JobType.Name
		}
		row := []string{
			it.Name, it.Description, it.SKU, it.PartNumber, it.Category, jobType,
			strconv.Itoa(it.Quantity), strconv.Itoa(it.Available), strconv.Itoa(it.Threshold),
			it.Unit, strconv.FormatBool(it.SerialTracked), it.Location, it.Supplier, it.Distributor,
			it.OrderContactName, it.OrderContactEmail, it.OrderContactPhone,
			it.Cost.StringFixed(2), it.Notes,
		}
		if err := cw.Write(row); err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "write csv row failed")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "flush csv failed")
	}
	return nil
}

// ImportCSV upserts items by SKU, then by name. Bad rows are reported and skipped.
func (s *inventoryService) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, appErr.Invalid("csv file is empty")
	}
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid csv header")
	}
	cols := map[string]int{}
	for i, h := range header {
		if c := canonicalHeader(h); c != "" {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	if _, ok := cols[colName]; !ok {
		return nil, appErr.Invalid("csv must include a Name column")
	}

	res := &ImportResult{Errors: []RowError{}}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: line, Message: err.Error()})
			continue
		}
		row := csvRow{cols: cols, rec: rec}
		if row.blank() {
			continue
		}
		created, err := s.importRow(ctx, row)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: line, Message: rowMessage(err)})
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	logger.L().Info("inventory csv imported",
		zap.Int("created", res.Created), zap.Int("updated", res.Updated), zap.Int("errors", len(res.Errors)))
	return res, nil
}

func rowMessage(err error) string {
	var ae *appErr.AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

type csvRow struct {
	cols map[string]int
	rec  []string
}

func (r csvRow) get(col string) (string, bool) {
	i, ok := r.cols[col]
	if !ok || i >= len(r.rec) {
		return "", false
	}
	return strings.TrimSpace(r.rec[i]), true
}

func (r csvRow) blank() bool {
	for _, v := range r.rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (r csvRow) str(col string, dst *string) {
	if v, ok := r.get(col); ok {
		*dst = v
	}
}

func (r csvRow) int(col string, dst *int) error {
	v, ok := r.get(col)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(v, ",", ""))
	if err != nil || n < 0 {
		return appErr.Newf(appErr.CodeInvalid, "%s must be a non-negative whole number, got %q", col, v)
	}
	*dst = n
	return nil
}

func (r csvRow) bool(col string, dst *bool) error {
	v, ok := r.get(col)
	if !ok || v == "" {
		return nil
	}
	switch strings.ToLower(v) {
	case "true", "yes", "y", "1", "x":
		*dst = true
	case "false", "no", "n", "0":
		*dst = false
	default:
		return appErr.Newf(appErr.CodeInvalid, "%s must be yes or no, got %q", col, v)
	}
	return nil
}

func (r csvRow) decimal(col string, dst *decimal.Decimal) error {
	v, ok := r.get(col)
	if !ok || v == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.NewReplacer("$", "", ",", "").Replace(v))
	if err != nil || d.IsNegative() {
		return appErr.Newf(appErr.CodeInvalid, "%s must be a non-negative amount, got %q", col, v)
	}
	*dst = d.Round(2)
	return nil
}

func (s *inventoryService) importRow(ctx context.Context, row csvRow) (bool, error) {
	name, _ := row.get(colName)
	sku, _ := row.get(colSKU)
	if name == "" && sku == "" {
		return false, appErr.Invalid("name is required")
	}
	created := false
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		repo := repository.NewInventoryRepository(tx)
		it, err := s.matchItem(ctx, repo, sku, name)
		if err != nil {
			return err
		}
		if it == nil {
			if name == "" {
				return appErr.Newf(appErr.CodeInvalid, "no item with SKU %q and no name to create one", sku)
			}
			created = true
			it = &models.InventoryItem{Unit: "each"}
		} else if err := repo.LockItem(ctx, it.ID, it); err != nil {
			return err
		}

		if name != "" {
			it.Name = name
		}
		if sku != "" {
			it.SKU = sku
		}
		row.str(colDescription, &it.Description)
		row.str(colPartNumber, &it.PartNumber)
		row.str(colCategory, &it.Category)
		row.str(colLocation, &it.Location)
		row.str(colSupplier, &it.Supplier)
		row.str(colDistributor, &it.Distributor)
		row.str(colOrderContactName, &it.OrderContactName)
		row.str(colOrderContactEmail, &it.OrderContactEmail)
		row.str(colOrderContactPhone, &it.OrderContactPhone)
		row.str(colNotes, &it.Notes)
		if v, ok := row.get(colUnit); ok && v != "" {
			it.Unit = v
		}
		for _, err := range []error{
			row.int(colQuantity, &it.Quantity),
			row.int(colThreshold, &it.Threshold),
			row.bool(colSerialTracked, &it.SerialTracked),
			row.decimal(colCost, &it.Cost),
		} {
			if err != nil {
				return err
			}
		}
		if v, ok := row.get(colJobType); ok {
			if v == "" {
				it.JobTypeID = nil
			} else {
				jt, err := s.jobTypeFor(ctx, tx, v)
				if err != nil {
					return err
				}
				it.JobTypeID = &jt.ID
			}
		}
		it.JobType = nil
		it.Units = nil

		if created {
			return repo.Create(ctx, it)
		}
		committed, err := repo.Committed(ctx, it.ID)
		if err != nil {
			return err
		}
		if it.Quantity < committed {
			return appErr.Newf(appErr.CodeInvalid, "quantity %d is less than the %d currently assigned", it.Quantity, committed)
		}
		return repo.Update(ctx, it)
	})
	return created, err
}

func (s *inventoryService) matchItem(ctx context.Context, repo repository.InventoryRepository, sku, name string) (*models.InventoryItem, error) {
	var it models.InventoryItem
	if sku != "" {
		err := repo.FindBySKU(ctx, sku, &it)
		if err == nil {
			return &it, nil
		}
		if !appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, err
		}
	}
	if name != "" {
		err := repo.FindByName(ctx, name, &it)
		if err == nil {
			if sku != "" && it.SKU != "" && !strings.EqualFold(it.SKU, sku) {
				return nil, appErr.Newf(appErr.CodeConflict, "item %q already exists with SKU %q", name, it.SKU)
			}
			return &it, nil
		}
		if !appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// jobTypeFor resolves a job type by name, creating it when unknown.
func (s *inventoryService) jobTypeFor(ctx context.Context, tx *gorm.DB, name string) (*models.JobType, error) {
	repo := repository.NewJobTypeRepository(tx)
	var jt models.JobType
	err := repo.GetByName(ctx, name, &jt)
	switch {
	case err == nil:
	case appErr.IsCode(err, appErr.CodeNotFound):
		jt = models.JobType{Name: name}
		if err := repo.Create(ctx, &jt); err != nil {
			return nil, err
		}
		logger.L().Info("job type created from csv", zap.String("name", name))
	default:
		return nil, fmt.Errorf("lookup job type %q: %w", name, err)
	}
	return &jt, nil
}
