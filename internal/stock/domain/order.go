package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order groups the purchases a customer places in one go
type Order struct {
	ID         string     `json:"id" db:"id"`
	CustomerID string     `json:"customer_id" db:"customer_id"`
	MarketID   *string    `json:"market_id,omitempty" db:"market_id"`
	OrderDate  time.Time  `json:"order_date" db:"order_date"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	Purchases  []Purchase `json:"purchases" db:"-"`
}

// Purchase is one line of an order. CropName is free text and is matched to
// batches through a CropKey at allocation time.
type Purchase struct {
	ID          string          `json:"id" db:"id"`
	OrderID     string          `json:"order_id" db:"order_id"`
	CropName    string          `json:"crop_name" db:"crop_name"`
	CropType    string          `json:"crop_type,omitempty" db:"crop_type"`
	CropVariety string          `json:"crop_variety,omitempty" db:"crop_variety"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Allocations []Allocation    `json:"allocations" db:"-"`
	Shortfall   decimal.Decimal `json:"shortfall" db:"-"`
}

// Shipment moves whole batches to a market
type Shipment struct {
	ID           string                `json:"id" db:"id"`
	MarketID     string                `json:"market_id" db:"market_id"`
	OrderID      *string               `json:"order_id,omitempty" db:"order_id"`
	ShipmentDate time.Time             `json:"shipment_date" db:"shipment_date"`
	CreatedAt    time.Time             `json:"created_at" db:"created_at"`
	BatchIDs     []string              `json:"batch_ids" db:"-"`
	Transports   []TransportAssignment `json:"transports" db:"-"`
}

// BatchShipment links a batch to the shipment that carried it
type BatchShipment struct {
	ShipmentID string `json:"shipment_id" db:"shipment_id"`
	BatchID    string `json:"batch_id" db:"batch_id"`
}

// TransportAssignment records a vehicle and the weight it carried for a shipment
type TransportAssignment struct {
	ShipmentID    string          `json:"shipment_id,omitempty" db:"shipment_id"`
	VehicleID     string          `json:"vehicle_id" db:"vehicle_id" validate:"required"`
	CarriedWeight decimal.Decimal `json:"carried_weight" db:"carried_weight"`
}
