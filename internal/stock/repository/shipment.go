package repository

import (
	"context"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/database"
)

// ShipmentRepository persists shipments, their batch links and transport assignments
type ShipmentRepository struct {
	db *database.DB
}

// NewShipmentRepository creates a new shipment repository
func NewShipmentRepository(db *database.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// InsertShipment creates a shipment row
func (r *ShipmentRepository) InsertShipment(ctx context.Context, shipment *domain.Shipment) error {
	query := `
		INSERT INTO shipments (id, market_id, order_id, shipment_date)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	return r.db.Conn(ctx).QueryRowxContext(ctx, query,
		shipment.ID, shipment.MarketID, shipment.OrderID, shipment.ShipmentDate,
	).Scan(&shipment.CreatedAt)
}

// LinkBatch marks a whole batch as carried by a shipment
func (r *ShipmentRepository) LinkBatch(ctx context.Context, link domain.BatchShipment) error {
	query := `INSERT INTO batch_shipments (shipment_id, batch_id) VALUES ($1, $2)`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query, link.ShipmentID, link.BatchID)
	return err
}

// InsertTransport records a vehicle assignment for a shipment
func (r *ShipmentRepository) InsertTransport(ctx context.Context, t domain.TransportAssignment) error {
	query := `
		INSERT INTO shipment_transports (shipment_id, vehicle_id, carried_weight)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query, t.ShipmentID, t.VehicleID, t.CarriedWeight)
	return err
}
