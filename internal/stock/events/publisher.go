package events

import (
	"context"
	"time"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/agritrack/agritrack-backend/pkg/messaging"
)

// Sink is anything that can put an event on the wire
type Sink interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// StockEventPublisher publishes stock lifecycle events. A nil publisher is
// valid and drops every event.
type StockEventPublisher struct {
	sink   Sink
	logger *logger.Logger
}

// NewStockEventPublisher creates a publisher bound to the stock exchange
func NewStockEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*StockEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeStockEvents, "stock-service", log)
	if err != nil {
		return nil, err
	}
	return NewWithSink(publisher, log), nil
}

// NewWithSink creates a publisher writing to an arbitrary sink
func NewWithSink(sink Sink, log *logger.Logger) *StockEventPublisher {
	return &StockEventPublisher{
		sink:   sink,
		logger: log.WithComponent("events"),
	}
}

// BatchCreated publishes a batch created event
func (p *StockEventPublisher) BatchCreated(ctx context.Context, batch *domain.Batch, stock *domain.WarehouseStock, crop *domain.Crop) {
	if p == nil {
		return
	}

	data := messaging.BatchCreatedEvent{
		BatchID:        batch.ID,
		StockID:        stock.ID,
		HarvestID:      batch.HarvestID,
		WarehouseID:    batch.WarehouseID,
		CropName:       crop.Name,
		Quantity:       batch.Quantity,
		ProductionDate: batch.ProductionDate,
		ExpiryDate:     stock.ExpiryDate,
	}
	p.publish(ctx, messaging.EventBatchCreated, batch.ID, data)
}

// BatchUpdated publishes a batch updated event
func (p *StockEventPublisher) BatchUpdated(ctx context.Context, batch *domain.Batch, expiryDate time.Time) {
	if p == nil {
		return
	}

	data := messaging.BatchUpdatedEvent{
		BatchID:        batch.ID,
		Quantity:       batch.Quantity,
		ProductionDate: batch.ProductionDate,
		ExpiryDate:     expiryDate,
	}
	p.publish(ctx, messaging.EventBatchUpdated, batch.ID, data)
}

// StockStatusChanged publishes a stock status change
func (p *StockEventPublisher) StockStatusChanged(ctx context.Context, batchID string, status domain.StockStatus) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventStockStatus, batchID, messaging.StockStatusChangedEvent{
		BatchID: batchID,
		Status:  string(status),
	})
}

// OrderAllocated publishes the allocations made for an order
func (p *StockEventPublisher) OrderAllocated(ctx context.Context, order *domain.Order, warehouseID string) {
	if p == nil {
		return
	}

	data := messaging.OrderAllocatedEvent{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		WarehouseID: warehouseID,
		Allocations: []messaging.AllocationLine{},
	}
	for _, purchase := range order.Purchases {
		data.Shortfall = data.Shortfall.Add(purchase.Shortfall)
		for _, alloc := range purchase.Allocations {
			data.Allocations = append(data.Allocations, messaging.AllocationLine{
				PurchaseID: purchase.ID,
				BatchID:    alloc.BatchID,
				Quantity:   alloc.Quantity,
			})
		}
	}
	p.publish(ctx, messaging.EventOrderAllocated, order.ID, data)
}

// ShipmentCreated publishes a shipment created event
func (p *StockEventPublisher) ShipmentCreated(ctx context.Context, shipment *domain.Shipment) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventShipmentCreated, shipment.ID, messaging.ShipmentCreatedEvent{
		ShipmentID: shipment.ID,
		MarketID:   shipment.MarketID,
		BatchIDs:   shipment.BatchIDs,
	})
}

// EntityDeleted publishes a guarded delete
func (p *StockEventPublisher) EntityDeleted(ctx context.Context, kind domain.EntityKind, id string) {
	if p == nil {
		return
	}
	p.publish(ctx, messaging.EventEntityDeleted, id, messaging.EntityDeletedEvent{
		Kind: string(kind),
		ID:   id,
	})
}

func (p *StockEventPublisher) publish(ctx context.Context, eventType, subjectID string, data interface{}) {
	if err := p.sink.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("subject_id", subjectID).
			Msg("failed to publish event")
	}
}
