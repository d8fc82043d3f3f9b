package repository

import (
	"context"
	"fmt"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/database"
	"github.com/shopspring/decimal"
)

// AllocationRepository persists batch_purchases rows and answers availability queries
type AllocationRepository struct {
	db *database.DB
}

// NewAllocationRepository creates a new allocation repository
func NewAllocationRepository(db *database.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// normalized mirrors domain.NewCropKey on the SQL side.
const normalizedCrop = `lower(regexp_replace(trim(%s), '\s+', ' ', 'g'))`

// candidateQuery selects every batch whose crop matches the key, soonest
// expiry first. The allocated sum is a correlated subquery so the statement
// can take row locks on batches.
var candidateQuery = `
	SELECT
		b.id AS batch_id,
		s.expiry_date,
		b.quantity - COALESCE((SELECT SUM(bp.quantity) FROM batch_purchases bp WHERE bp.batch_id = b.id), 0) AS available
	FROM batches b
	JOIN warehouse_stocks s ON s.id = b.stock_id
	JOIN crops c ON c.batch_id = b.id
	WHERE ` + fmt.Sprintf(normalizedCrop, "c.name") + ` = $1
		AND ($2::text = '' OR ` + fmt.Sprintf(normalizedCrop, "c.type") + ` = $2)
		AND ($3::text = '' OR ` + fmt.Sprintf(normalizedCrop, "c.variety") + ` = $3)
		AND ($4::text = '' OR b.warehouse_id = $4)
	ORDER BY s.expiry_date, b.id
`

// Candidates returns batches matching key with their available quantity.
// Exhausted batches are included; callers filter with domain.Eligible.
func (r *AllocationRepository) Candidates(ctx context.Context, warehouseID string, key domain.CropKey) ([]domain.Candidate, error) {
	return r.candidates(ctx, candidateQuery, warehouseID, key)
}

// LockCandidates is Candidates with FOR UPDATE on the batch rows, so that no
// concurrent transaction can allocate from them until this one ends.
func (r *AllocationRepository) LockCandidates(ctx context.Context, warehouseID string, key domain.CropKey) ([]domain.Candidate, error) {
	return r.candidates(ctx, candidateQuery+` FOR UPDATE OF b`, warehouseID, key)
}

func (r *AllocationRepository) candidates(ctx context.Context, query, warehouseID string, key domain.CropKey) ([]domain.Candidate, error) {
	candidates := []domain.Candidate{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &candidates, query,
		key.Name, key.Type, key.Variety, warehouseID,
	); err != nil {
		return nil, err
	}
	return candidates, nil
}

// AllocatedQuantity sums every allocation made against a batch
func (r *AllocationRepository) AllocatedQuantity(ctx context.Context, batchID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(quantity), 0) FROM batch_purchases WHERE batch_id = $1`
	if err := r.db.Conn(ctx).GetContext(ctx, &total, query, batchID); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Insert records an allocation of a batch to a purchase
func (r *AllocationRepository) Insert(ctx context.Context, alloc domain.Allocation) error {
	query := `INSERT INTO batch_purchases (batch_id, purchase_id, quantity) VALUES ($1, $2, $3)`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query, alloc.BatchID, alloc.PurchaseID, alloc.Quantity)
	return err
}

// ListByBatch lists the allocations made against a batch
func (r *AllocationRepository) ListByBatch(ctx context.Context, batchID string) ([]domain.Allocation, error) {
	allocations := []domain.Allocation{}
	query := `
		SELECT batch_id, purchase_id, quantity FROM batch_purchases
		WHERE batch_id = $1
		ORDER BY id
	`
	if err := r.db.Conn(ctx).SelectContext(ctx, &allocations, query, batchID); err != nil {
		return nil, err
	}
	return allocations, nil
}
