// Package service implements the batch and stock lifecycle engine: the stock
// ledger, the FEFO allocator, the lifecycle guard and the transactional
// consumers built on them.
package service

import (
	"context"
	"time"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/database"
	"github.com/shopspring/decimal"
)

// Scope carries the warehouse a caller has selected. The zero Scope spans
// every warehouse.
type Scope struct {
	WarehouseID string
}

// Allows reports whether a record kept in warehouseID is visible in the scope
func (s Scope) Allows(warehouseID string) bool {
	return s.WarehouseID == "" || s.WarehouseID == warehouseID
}

// Clock supplies "now" for expiry classification
type Clock func() time.Time

// SystemClock is the wall clock
func SystemClock() time.Time {
	return time.Now()
}

// UnitOfWork runs steps atomically; see database.DB.Run
type UnitOfWork interface {
	Run(ctx context.Context, operation string, steps ...database.Step) error
}

// BatchStore persists batches with their stock and crop rows
type BatchStore interface {
	InsertStock(ctx context.Context, stock *domain.WarehouseStock) error
	InsertBatch(ctx context.Context, batch *domain.Batch) error
	InsertCrop(ctx context.Context, crop *domain.Crop) error
	LinkStock(ctx context.Context, stockID, batchID string) error
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	LockByID(ctx context.Context, id string) (*domain.Batch, error)
	UpdateBatch(ctx context.Context, batch *domain.Batch) error
	UpdateStock(ctx context.Context, stockID string, quantity decimal.Decimal, entryDate, expiryDate time.Time) error
	UpdateCrop(ctx context.Context, batchID string, attrs domain.CropAttrs) error
	UpdateStockStatus(ctx context.Context, batchID string, status domain.StockStatus) error
	GetDetail(ctx context.Context, id string) (*domain.BatchDetail, error)
	ListDetails(ctx context.Context, warehouseID string) ([]domain.BatchDetail, error)
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// AllocationStore persists allocations and reads candidate batches
type AllocationStore interface {
	Candidates(ctx context.Context, warehouseID string, key domain.CropKey) ([]domain.Candidate, error)
	LockCandidates(ctx context.Context, warehouseID string, key domain.CropKey) ([]domain.Candidate, error)
	AllocatedQuantity(ctx context.Context, batchID string) (decimal.Decimal, error)
	Insert(ctx context.Context, alloc domain.Allocation) error
	ListByBatch(ctx context.Context, batchID string) ([]domain.Allocation, error)
}

// OrderStore persists orders and purchase lines
type OrderStore interface {
	InsertOrder(ctx context.Context, order *domain.Order) error
	InsertPurchase(ctx context.Context, purchase *domain.Purchase) error
}

// ShipmentStore persists shipments and their links
type ShipmentStore interface {
	InsertShipment(ctx context.Context, shipment *domain.Shipment) error
	LinkBatch(ctx context.Context, link domain.BatchShipment) error
	InsertTransport(ctx context.Context, t domain.TransportAssignment) error
}

// ReferenceStore answers the lifecycle guard's questions
type ReferenceStore interface {
	Exists(ctx context.Context, refs domain.EntityRefs, id string) (bool, error)
	Lock(ctx context.Context, refs domain.EntityRefs, id string) (bool, error)
	CountReferences(ctx context.Context, refs domain.EntityRefs, id string) ([]domain.ReferenceCount, error)
	DeleteOwned(ctx context.Context, ref domain.TableRef, id string) (int64, error)
	DeleteEntity(ctx context.Context, kind domain.EntityKind, refs domain.EntityRefs, id string) error
}

// EventPublisher announces committed lifecycle changes. Publishing is best
// effort and never fails the operation.
type EventPublisher interface {
	BatchCreated(ctx context.Context, batch *domain.Batch, stock *domain.WarehouseStock, crop *domain.Crop)
	BatchUpdated(ctx context.Context, batch *domain.Batch, expiryDate time.Time)
	StockStatusChanged(ctx context.Context, batchID string, status domain.StockStatus)
	OrderAllocated(ctx context.Context, order *domain.Order, warehouseID string)
	ShipmentCreated(ctx context.Context, shipment *domain.Shipment)
	EntityDeleted(ctx context.Context, kind domain.EntityKind, id string)
}

// nopPublisher is used when no broker is configured
type nopPublisher struct{}

func (nopPublisher) BatchCreated(context.Context, *domain.Batch, *domain.WarehouseStock, *domain.Crop) {}
func (nopPublisher) BatchUpdated(context.Context, *domain.Batch, time.Time) {}
func (nopPublisher) StockStatusChanged(context.Context, string, domain.StockStatus) {}
func (nopPublisher) OrderAllocated(context.Context, *domain.Order, string) {}
func (nopPublisher) ShipmentCreated(context.Context, *domain.Shipment) {}
func (nopPublisher) EntityDeleted(context.Context, domain.EntityKind, string) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
