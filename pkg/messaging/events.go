package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventBatchCreated    = "stock.batch.created"
	EventBatchUpdated    = "stock.batch.updated"
	EventStockStatus     = "stock.batch.status_changed"
	EventOrderAllocated  = "stock.order.allocated"
	EventShipmentCreated = "stock.shipment.created"
	EventEntityDeleted   = "stock.entity.deleted"
)

// Exchange names
const (
	ExchangeStockEvents = "stock.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// BatchCreatedEvent is published once a batch, its stock and its crop are committed
type BatchCreatedEvent struct {
	BatchID        string          `json:"batch_id"`
	StockID        string          `json:"stock_id"`
	HarvestID      string          `json:"harvest_id"`
	WarehouseID    string          `json:"warehouse_id"`
	CropName       string          `json:"crop_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	ProductionDate time.Time       `json:"production_date"`
	ExpiryDate     time.Time       `json:"expiry_date"`
}

// BatchUpdatedEvent is published after a batch edit
type BatchUpdatedEvent struct {
	BatchID        string          `json:"batch_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	ProductionDate time.Time       `json:"production_date"`
	ExpiryDate     time.Time       `json:"expiry_date"`
}

// StockStatusChangedEvent is published when a stock record changes status
type StockStatusChangedEvent struct {
	BatchID string `json:"batch_id"`
	Status  string `json:"status"`
}

// AllocationLine is one batch-to-purchase allocation inside an order event
type AllocationLine struct {
	PurchaseID string          `json:"purchase_id"`
	BatchID    string          `json:"batch_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// OrderAllocatedEvent is published after an order and its allocations commit
type OrderAllocatedEvent struct {
	OrderID     string           `json:"order_id"`
	CustomerID  string           `json:"customer_id"`
	WarehouseID string           `json:"warehouse_id,omitempty"`
	Allocations []AllocationLine `json:"allocations"`
	Shortfall   decimal.Decimal  `json:"shortfall"`
}

// ShipmentCreatedEvent is published after a shipment commits
type ShipmentCreatedEvent struct {
	ShipmentID string   `json:"shipment_id"`
	MarketID   string   `json:"market_id"`
	BatchIDs   []string `json:"batch_ids"`
}

// EntityDeletedEvent is published after a guarded delete
type EntityDeletedEvent struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.NewString()
}
