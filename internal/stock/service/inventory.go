package service

import (
	"context"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/agritrack/agritrack-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

// DashboardStats summarizes the stock visible in a scope
type DashboardStats struct {
	TotalBatches    int             `json:"total_batches"`
	NormalCount     int             `json:"normal_count"`
	ExpiringCount   int             `json:"expiring_soon_count"`
	ExpiredCount    int             `json:"expired_count"`
	ShippedCount    int             `json:"shipped_count"`
	TotalKg         decimal.Decimal `json:"total_kg"`
	AllocatedKg     decimal.Decimal `json:"allocated_kg"`
	AvailableKg     decimal.Decimal `json:"available_kg"`
	StatusBreakdown map[string]int  `json:"status_breakdown"`
}

// InventoryView serves read models of the stock. Every expiry classification
// goes through domain.ExpiryStatusAt.
type InventoryView struct {
	batches BatchStore
	metrics *metrics.Collector
	clock   Clock
}

// NewInventoryView creates a new inventory view
func NewInventoryView(batches BatchStore, m *metrics.Collector) *InventoryView {
	return &InventoryView{batches: batches, metrics: m, clock: SystemClock}
}

// WithClock replaces the clock used for expiry classification
func (v *InventoryView) WithClock(clock Clock) *InventoryView {
	v.clock = clock
	return v
}

// GetBatchDetail returns a batch with its stock, crop and derived quantities
func (v *InventoryView) GetBatchDetail(ctx context.Context, scope Scope, batchID string) (*domain.BatchDetail, error) {
	detail, err := v.batches.GetDetail(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(detail.WarehouseID) {
		return nil, errors.NotFound("batch")
	}

	detail.Classify(v.clock())
	return detail, nil
}

// ListInventory lists the batches in scope in FEFO order, optionally only
// those with the given expiry status.
func (v *InventoryView) ListInventory(ctx context.Context, scope Scope, filter *domain.ExpiryStatus) ([]domain.BatchDetail, error) {
	details, err := v.batches.ListDetails(ctx, scope.WarehouseID)
	if err != nil {
		return nil, err
	}

	now := v.clock()
	out := make([]domain.BatchDetail, 0, len(details))
	for _, d := range details {
		d.Classify(now)
		if filter != nil && d.ExpiryStatus != *filter {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// DashboardStats counts batches per expiry and stock status and totals the
// quantities in scope.
func (v *InventoryView) DashboardStats(ctx context.Context, scope Scope) (*DashboardStats, error) {
	details, err := v.ListInventory(ctx, scope, nil)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalKg:         decimal.Zero,
		AllocatedKg:     decimal.Zero,
		AvailableKg:     decimal.Zero,
		StatusBreakdown: make(map[string]int),
	}
	for _, d := range details {
		stats.TotalBatches++
		switch d.ExpiryStatus {
		case domain.ExpiryExpired:
			stats.ExpiredCount++
		case domain.ExpiryExpiringSoon:
			stats.ExpiringCount++
		default:
			stats.NormalCount++
		}
		if d.Shipped {
			stats.ShippedCount++
		}
		stats.TotalKg = stats.TotalKg.Add(d.Quantity)
		stats.AllocatedKg = stats.AllocatedKg.Add(d.Allocated)
		stats.AvailableKg = stats.AvailableKg.Add(d.Available)
		stats.StatusBreakdown[string(d.StockStatus)]++
	}

	// The gauge tracks the unscoped totals only.
	if scope.WarehouseID == "" {
		v.metrics.SetExpiryCounts(map[string]int{
			string(domain.ExpiryNormal):       stats.NormalCount,
			string(domain.ExpiryExpiringSoon): stats.ExpiringCount,
			string(domain.ExpiryExpired):      stats.ExpiredCount,
		})
	}
	return stats, nil
}
