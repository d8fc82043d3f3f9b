package service

import (
	"context"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Allocator assigns purchase quantities to batches, soonest expiry first
type Allocator struct {
	uow         UnitOfWork
	batches     BatchStore
	allocations AllocationStore
	logger      *logger.Logger
}

// NewAllocator creates a new FEFO allocator
func NewAllocator(uow UnitOfWork, batches BatchStore, allocations AllocationStore, log *logger.Logger) *Allocator {
	return &Allocator{
		uow:         uow,
		batches:     batches,
		allocations: allocations,
		logger:      log.WithComponent("allocator"),
	}
}

// AvailableQuantity is the batch quantity not yet held by any purchase
func (a *Allocator) AvailableQuantity(ctx context.Context, scope Scope, batchID string) (decimal.Decimal, error) {
	batch, err := a.scopedBatch(ctx, scope, batchID)
	if err != nil {
		return decimal.Zero, err
	}

	allocated, err := a.allocations.AllocatedQuantity(ctx, batchID)
	if err != nil {
		return decimal.Zero, err
	}
	return batch.Quantity.Sub(allocated), nil
}

// ListAllocations returns the purchase allocations recorded against a batch
func (a *Allocator) ListAllocations(ctx context.Context, scope Scope, batchID string) ([]domain.Allocation, error) {
	if _, err := a.scopedBatch(ctx, scope, batchID); err != nil {
		return nil, err
	}
	return a.allocations.ListByBatch(ctx, batchID)
}

func (a *Allocator) scopedBatch(ctx context.Context, scope Scope, batchID string) (*domain.Batch, error) {
	batch, err := a.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(batch.WarehouseID) {
		return nil, errors.NotFound("batch")
	}
	return batch, nil
}

// FindCandidates lists the batches of a crop that still have stock, in the
// order Allocate would draw from them.
func (a *Allocator) FindCandidates(ctx context.Context, scope Scope, key domain.CropKey) ([]domain.Candidate, error) {
	if key.IsZero() {
		return nil, errors.Validation(map[string]string{"crop_name": "this field is required"})
	}

	candidates, err := a.allocations.Candidates(ctx, scope.WarehouseID, key)
	if err != nil {
		return nil, err
	}
	return domain.Eligible(candidates), nil
}

// Plan previews an allocation without writing anything
func (a *Allocator) Plan(ctx context.Context, scope Scope, key domain.CropKey, quantity decimal.Decimal) (domain.AllocationPlan, error) {
	if err := validateRequest(key, quantity); err != nil {
		return domain.AllocationPlan{}, err
	}

	candidates, err := a.allocations.Candidates(ctx, scope.WarehouseID, key)
	if err != nil {
		return domain.AllocationPlan{}, err
	}
	return domain.PlanFEFO(candidates, quantity), nil
}

// Allocate draws quantity for purchaseID from the matching batches and records
// the allocations. Candidate rows stay locked until the unit of work ends, so
// two concurrent allocations cannot both take the same stock. A shortfall is
// not an error: the plan reports it and whatever was available is allocated.
//
// Called inside another unit of work, Allocate joins it.
func (a *Allocator) Allocate(ctx context.Context, scope Scope, purchaseID string, key domain.CropKey, quantity decimal.Decimal) (domain.AllocationPlan, error) {
	if err := validateRequest(key, quantity); err != nil {
		return domain.AllocationPlan{}, err
	}

	var plan domain.AllocationPlan
	err := a.uow.Run(ctx, "allocate stock",
		func(ctx context.Context) error {
			candidates, err := a.allocations.LockCandidates(ctx, scope.WarehouseID, key)
			if err != nil {
				return err
			}

			plan = domain.PlanFEFO(candidates, quantity)
			for i := range plan.Allocations {
				plan.Allocations[i].PurchaseID = purchaseID
				if err := a.allocations.Insert(ctx, plan.Allocations[i]); err != nil {
					return err
				}
			}
			return nil
		},
	)
	if err != nil {
		return domain.AllocationPlan{}, err
	}

	if plan.Shortfall.IsPositive() {
		a.logger.Warn().
			Str("purchase_id", purchaseID).
			Str("crop", key.String()).
			Str("requested", quantity.String()).
			Str("shortfall", plan.Shortfall.String()).
			Msg("purchase only partly allocated")
	}
	return plan, nil
}

func validateRequest(key domain.CropKey, quantity decimal.Decimal) error {
	problems := fieldErrors{}
	if key.IsZero() {
		problems["crop_name"] = "this field is required"
	}
	problems.positive("quantity", quantity)
	return problems.err()
}
