package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/agritrack/agritrack-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

// CreateBatchInput holds the fields needed to register a harvested batch
type CreateBatchInput struct {
	HarvestID      string
	WarehouseID    string
	ProductionDate time.Time
	Quantity       decimal.Decimal
	Crop           domain.CropAttrs
}

// UpdateBatchInput holds the editable fields of a batch
type UpdateBatchInput struct {
	ProductionDate time.Time
	Quantity       decimal.Decimal
	Crop           domain.CropAttrs
}

// Ledger owns the creation and editing of batches together with their
// warehouse stock and crop records.
type Ledger struct {
	uow         UnitOfWork
	batches     BatchStore
	allocations AllocationStore
	publisher   EventPublisher
	metrics     *metrics.Collector
	logger      *logger.Logger
	clock       Clock
	shelfLife   int
}

// NewLedger creates a new stock ledger. shelfLifeMonths is added to the
// production date of every batch to derive its expiry date.
func NewLedger(
	uow UnitOfWork,
	batches BatchStore,
	allocations AllocationStore,
	publisher EventPublisher,
	m *metrics.Collector,
	log *logger.Logger,
	shelfLifeMonths int,
) *Ledger {
	if shelfLifeMonths <= 0 {
		shelfLifeMonths = domain.DefaultShelfLifeMonths
	}
	return &Ledger{
		uow:         uow,
		batches:     batches,
		allocations: allocations,
		publisher:   publisherOrNop(publisher),
		metrics:     m,
		logger:      log.WithComponent("ledger"),
		clock:       SystemClock,
		shelfLife:   shelfLifeMonths,
	}
}

// WithClock replaces the clock used for expiry classification
func (l *Ledger) WithClock(clock Clock) *Ledger {
	l.clock = clock
	return l
}

// ExpiryStatus classifies expiryDate against the ledger's clock
func (l *Ledger) ExpiryStatus(expiryDate time.Time) domain.ExpiryStatus {
	return domain.ExpiryStatusAt(expiryDate, l.clock())
}

// CreateBatch registers a batch, its warehouse stock and its crop in one unit
// of work. The stock row is written first and back-filled with the batch id
// once the batch exists.
func (l *Ledger) CreateBatch(ctx context.Context, scope Scope, in CreateBatchInput) (*domain.Batch, error) {
	if in.WarehouseID == "" {
		in.WarehouseID = scope.WarehouseID
	}

	problems := fieldErrors{}
	problems.require("harvest_id", in.HarvestID)
	problems.require("warehouse_id", in.WarehouseID)
	problems.requireDate("production_date", in.ProductionDate)
	problems.positive("quantity", in.Quantity)
	problems.crop(in.Crop)
	if in.WarehouseID != "" && !scope.Allows(in.WarehouseID) {
		problems["warehouse_id"] = "is outside the selected warehouse"
	}
	if err := problems.err(); err != nil {
		return nil, err
	}

	production := domain.DateOf(in.ProductionDate)
	stock := &domain.WarehouseStock{
		ID:          domain.NewID(domain.PrefixStock),
		WarehouseID: in.WarehouseID,
		Quantity:    in.Quantity,
		EntryDate:   production,
		ExpiryDate:  domain.ExpiryDate(production, l.shelfLife),
		Status:      domain.StockAvailable,
	}
	batch := &domain.Batch{
		ID:             domain.NewID(domain.PrefixBatch),
		HarvestID:      in.HarvestID,
		StockID:        stock.ID,
		WarehouseID:    in.WarehouseID,
		ProductionDate: production,
		Quantity:       in.Quantity,
	}
	crop := newCrop(batch.ID, in.Crop)

	const operation = "create batch"
	err := l.uow.Run(ctx, operation,
		func(ctx context.Context) error { return l.batches.InsertStock(ctx, stock) },
		func(ctx context.Context) error { return l.batches.InsertBatch(ctx, batch) },
		func(ctx context.Context) error { return l.batches.InsertCrop(ctx, crop) },
		func(ctx context.Context) error { return l.batches.LinkStock(ctx, stock.ID, batch.ID) },
	)
	if err != nil {
		l.metrics.UnitOfWorkFailed(operation)
		return nil, err
	}
	stock.BatchID = &batch.ID

	l.metrics.BatchCreated()
	l.publisher.BatchCreated(ctx, batch, stock, crop)

	l.logger.Info().
		Str("batch_id", batch.ID).
		Str("warehouse_id", batch.WarehouseID).
		Str("crop", crop.Name).
		Str("quantity", batch.Quantity.String()).
		Msg("batch created")

	return batch, nil
}

// UpdateBatch edits a batch and rewrites the dates of its stock record. The
// new quantity may not drop below what purchases already hold.
func (l *Ledger) UpdateBatch(ctx context.Context, scope Scope, batchID string, in UpdateBatchInput) (*domain.Batch, error) {
	problems := fieldErrors{}
	problems.requireDate("production_date", in.ProductionDate)
	problems.positive("quantity", in.Quantity)
	problems.crop(in.Crop)
	if err := problems.err(); err != nil {
		return nil, err
	}

	production := domain.DateOf(in.ProductionDate)
	expiry := domain.ExpiryDate(production, l.shelfLife)

	var batch *domain.Batch
	const operation = "update batch"
	err := l.uow.Run(ctx, operation,
		func(ctx context.Context) error {
			locked, err := l.batches.LockByID(ctx, batchID)
			if err != nil {
				return err
			}
			if !scope.Allows(locked.WarehouseID) {
				return errors.NotFound("batch")
			}

			allocated, err := l.allocations.AllocatedQuantity(ctx, batchID)
			if err != nil {
				return err
			}
			if in.Quantity.LessThan(allocated) {
				return errors.Validation(map[string]string{
					"quantity": fmt.Sprintf("must not be below the %s kg already allocated", allocated.String()),
				})
			}

			locked.ProductionDate = production
			locked.Quantity = in.Quantity
			batch = locked
			return l.batches.UpdateBatch(ctx, batch)
		},
		func(ctx context.Context) error {
			return l.batches.UpdateStock(ctx, batch.StockID, in.Quantity, production, expiry)
		},
		func(ctx context.Context) error {
			return l.batches.UpdateCrop(ctx, batchID, trimCrop(in.Crop))
		},
	)
	if err != nil {
		if !errors.Is(err, errors.ErrValidation) && !errors.IsNotFound(err) {
			l.metrics.UnitOfWorkFailed(operation)
		}
		return nil, err
	}

	l.publisher.BatchUpdated(ctx, batch, expiry)
	l.logger.Info().Str("batch_id", batchID).Str("quantity", in.Quantity.String()).Msg("batch updated")

	return batch, nil
}

// UpdateStockStatus moves the stock record of a batch to status
func (l *Ledger) UpdateStockStatus(ctx context.Context, scope Scope, batchID string, status domain.StockStatus) error {
	if !status.Valid() {
		names := make([]string, len(domain.StockStatuses))
		for i, s := range domain.StockStatuses {
			names[i] = string(s)
		}
		return errors.Validation(map[string]string{
			"status": "must be one of: " + strings.Join(names, ", "),
		})
	}

	err := l.uow.Run(ctx, "update stock status",
		func(ctx context.Context) error {
			batch, err := l.batches.LockByID(ctx, batchID)
			if err != nil {
				return err
			}
			if !scope.Allows(batch.WarehouseID) {
				return errors.NotFound("batch")
			}
			return l.batches.UpdateStockStatus(ctx, batchID, status)
		},
	)
	if err != nil {
		return err
	}

	l.publisher.StockStatusChanged(ctx, batchID, status)
	return nil
}

func newCrop(batchID string, attrs domain.CropAttrs) *domain.Crop {
	attrs = trimCrop(attrs)
	return &domain.Crop{
		ID:      domain.NewID(domain.PrefixCrop),
		BatchID: batchID,
		Name:    attrs.Name,
		Type:    attrs.Type,
		Variety: attrs.Variety,
		Season:  attrs.Season,
	}
}

func trimCrop(attrs domain.CropAttrs) domain.CropAttrs {
	return domain.CropAttrs{
		Name:    strings.TrimSpace(attrs.Name),
		Type:    strings.TrimSpace(attrs.Type),
		Variety: strings.TrimSpace(attrs.Variety),
		Season:  strings.TrimSpace(attrs.Season),
	}
}

// fieldErrors collects per-field validation messages
type fieldErrors map[string]string

func (f fieldErrors) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = "this field is required"
	}
}

func (f fieldErrors) requireDate(field string, value time.Time) {
	if value.IsZero() {
		f[field] = "this field is required"
	}
}

func (f fieldErrors) positive(field string, value decimal.Decimal) {
	if !value.IsPositive() {
		f[field] = "must be greater than zero"
	}
}

func (f fieldErrors) nonNegative(field string, value decimal.Decimal) {
	if value.IsNegative() {
		f[field] = "must not be negative"
	}
}

func (f fieldErrors) crop(attrs domain.CropAttrs) {
	f.require("crop.name", attrs.Name)
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return errors.Validation(f)
}
