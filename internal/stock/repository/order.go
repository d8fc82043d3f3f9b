package repository

import (
	"context"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/database"
)

// OrderRepository persists orders and their purchase lines
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// InsertOrder creates an order row
func (r *OrderRepository) InsertOrder(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, customer_id, market_id, order_date)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	return r.db.Conn(ctx).QueryRowxContext(ctx, query,
		order.ID, order.CustomerID, order.MarketID, order.OrderDate,
	).Scan(&order.CreatedAt)
}

// InsertPurchase creates a purchase line
func (r *OrderRepository) InsertPurchase(ctx context.Context, purchase *domain.Purchase) error {
	query := `
		INSERT INTO purchases (id, order_id, crop_name, crop_type, crop_variety, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		purchase.ID, purchase.OrderID, purchase.CropName, purchase.CropType,
		purchase.CropVariety, purchase.Quantity, purchase.UnitPrice,
	)
	return err
}
