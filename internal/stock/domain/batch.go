package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus is the physical state of a warehouse stock record
type StockStatus string

const (
	StockAvailable   StockStatus = "Available"
	StockReserved    StockStatus = "Reserved"
	StockInTransit   StockStatus = "In Transit"
	StockQuarantined StockStatus = "Quarantined"
	StockPrioritized StockStatus = "Prioritized"
)

// StockStatuses lists every valid status in display order
var StockStatuses = []StockStatus{
	StockAvailable, StockReserved, StockInTransit, StockQuarantined, StockPrioritized,
}

// Valid reports whether s is one of the known statuses
func (s StockStatus) Valid() bool {
	for _, known := range StockStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Batch is a dated quantity of a single crop carved out of one harvest
type Batch struct {
	ID             string          `json:"id" db:"id"`
	HarvestID      string          `json:"harvest_id" db:"harvest_id"`
	StockID        string          `json:"stock_id" db:"stock_id"`
	WarehouseID    string          `json:"warehouse_id" db:"warehouse_id"`
	ProductionDate time.Time       `json:"production_date" db:"production_date"`
	Quantity       decimal.Decimal `json:"quantity" db:"quantity"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// WarehouseStock anchors exactly one batch to a physical warehouse
type WarehouseStock struct {
	ID          string          `json:"id" db:"id"`
	BatchID     *string         `json:"batch_id" db:"batch_id"`
	WarehouseID string          `json:"warehouse_id" db:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	EntryDate   time.Time       `json:"entry_date" db:"entry_date"`
	ExpiryDate  time.Time       `json:"expiry_date" db:"expiry_date"`
	Status      StockStatus     `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Crop describes the produce held in a batch. It lives and dies with its batch.
type Crop struct {
	ID      string `json:"id" db:"id"`
	BatchID string `json:"batch_id" db:"batch_id"`
	Name    string `json:"name" db:"name"`
	Type    string `json:"type" db:"type"`
	Variety string `json:"variety" db:"variety"`
	Season  string `json:"season" db:"season"`
}

// CropAttrs are the descriptive crop fields supplied on create/update
type CropAttrs struct {
	Name    string `json:"name" validate:"required,max=100"`
	Type    string `json:"type" validate:"max=100"`
	Variety string `json:"variety" validate:"max=100"`
	Season  string `json:"season" validate:"max=50"`
}

// Key returns the normalized identity of the crop
func (c CropAttrs) Key() CropKey {
	return NewCropKey(c.Name, c.Type, c.Variety)
}

// BatchDetail is the joined batch/stock/crop view with derived quantities
type BatchDetail struct {
	BatchID        string          `json:"batch_id" db:"batch_id"`
	HarvestID      string          `json:"harvest_id" db:"harvest_id"`
	WarehouseID    string          `json:"warehouse_id" db:"warehouse_id"`
	StockID        string          `json:"stock_id" db:"stock_id"`
	ProductionDate time.Time       `json:"production_date" db:"production_date"`
	Quantity       decimal.Decimal `json:"quantity" db:"quantity"`
	Allocated      decimal.Decimal `json:"allocated" db:"allocated"`
	Available      decimal.Decimal `json:"available" db:"-"`
	EntryDate      time.Time       `json:"entry_date" db:"entry_date"`
	ExpiryDate     time.Time       `json:"expiry_date" db:"expiry_date"`
	StockStatus    StockStatus     `json:"stock_status" db:"status"`
	CropName       string          `json:"crop_name" db:"crop_name"`
	CropType       string          `json:"crop_type" db:"crop_type"`
	CropVariety    string          `json:"crop_variety" db:"crop_variety"`
	CropSeason     string          `json:"crop_season" db:"crop_season"`
	ExpiryStatus   ExpiryStatus    `json:"expiry_status" db:"-"`
	DaysUntil      int             `json:"days_until_expiry" db:"-"`
	Shipped        bool            `json:"shipped" db:"shipped"`
}

// Classify fills the derived fields using now as the reference time
func (d *BatchDetail) Classify(now time.Time) {
	d.Available = d.Quantity.Sub(d.Allocated)
	d.ExpiryStatus = ExpiryStatusAt(d.ExpiryDate, now)
	d.DaysUntil = DaysUntil(d.ExpiryDate, now)
}
