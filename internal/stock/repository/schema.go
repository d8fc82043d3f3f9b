package repository

import (
	"context"
	"fmt"

	"github.com/agritrack/agritrack-backend/pkg/database"
)

// Tables lists every table the stock service owns, children before parents.
var Tables = []string{
	"shipment_transports",
	"batch_shipments",
	"batch_purchases",
	"shipments",
	"purchases",
	"orders",
	"crops",
	"batches",
	"warehouse_stocks",
	"harvest_sessions",
	"farmer_contacts",
	"farmers",
	"customer_contacts",
	"customers",
	"markets",
	"warehouses",
}

// Migrations returns the idempotent DDL for the stock schema.
//
// batches.stock_id and warehouse_stocks.batch_id point at each other. Both
// foreign keys are deferred to commit so a batch and its stock can be
// inserted and deleted inside one transaction in either order.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS warehouses (
			id VARCHAR(16) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			location VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS farmers (
			id VARCHAR(16) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS farmer_contacts (
			id BIGSERIAL PRIMARY KEY,
			farmer_id VARCHAR(16) NOT NULL REFERENCES farmers(id),
			phone VARCHAR(32) NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS harvest_sessions (
			id VARCHAR(16) PRIMARY KEY,
			farmer_id VARCHAR(16) NOT NULL REFERENCES farmers(id),
			harvest_date DATE NOT NULL,
			quantity NUMERIC(14,3) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS customers (
			id VARCHAR(16) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS customer_contacts (
			id BIGSERIAL PRIMARY KEY,
			customer_id VARCHAR(16) NOT NULL REFERENCES customers(id),
			phone VARCHAR(32) NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS markets (
			id VARCHAR(16) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS warehouse_stocks (
			id VARCHAR(16) PRIMARY KEY,
			batch_id VARCHAR(16) UNIQUE,
			warehouse_id VARCHAR(16) NOT NULL REFERENCES warehouses(id),
			quantity NUMERIC(14,3) NOT NULL,
			entry_date DATE NOT NULL,
			expiry_date DATE NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'Available',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT warehouse_stocks_quantity_positive CHECK (quantity > 0),
			CONSTRAINT warehouse_stocks_expiry_after_entry CHECK (expiry_date >= entry_date),
			CONSTRAINT warehouse_stocks_status_valid CHECK (status IN ('Available', 'Reserved', 'In Transit', 'Quarantined', 'Prioritized'))
		)`,

		`CREATE TABLE IF NOT EXISTS batches (
			id VARCHAR(16) PRIMARY KEY,
			harvest_id VARCHAR(16) NOT NULL REFERENCES harvest_sessions(id),
			stock_id VARCHAR(16) NOT NULL UNIQUE
				REFERENCES warehouse_stocks(id) DEFERRABLE INITIALLY DEFERRED,
			warehouse_id VARCHAR(16) NOT NULL REFERENCES warehouses(id),
			production_date DATE NOT NULL,
			quantity NUMERIC(14,3) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT batches_quantity_positive CHECK (quantity > 0)
		)`,

		`DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'warehouse_stocks_batch_fk') THEN
				ALTER TABLE warehouse_stocks ADD CONSTRAINT warehouse_stocks_batch_fk
					FOREIGN KEY (batch_id) REFERENCES batches(id) DEFERRABLE INITIALLY DEFERRED;
			END IF;
		END
		$$`,

		`CREATE TABLE IF NOT EXISTS crops (
			id VARCHAR(16) PRIMARY KEY,
			batch_id VARCHAR(16) NOT NULL UNIQUE REFERENCES batches(id),
			name VARCHAR(100) NOT NULL,
			type VARCHAR(100) NOT NULL DEFAULT '',
			variety VARCHAR(100) NOT NULL DEFAULT '',
			season VARCHAR(50) NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(16) PRIMARY KEY,
			customer_id VARCHAR(16) NOT NULL REFERENCES customers(id),
			market_id VARCHAR(16) REFERENCES markets(id),
			order_date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS purchases (
			id VARCHAR(16) PRIMARY KEY,
			order_id VARCHAR(16) NOT NULL REFERENCES orders(id),
			crop_name VARCHAR(100) NOT NULL,
			crop_type VARCHAR(100) NOT NULL DEFAULT '',
			crop_variety VARCHAR(100) NOT NULL DEFAULT '',
			quantity NUMERIC(14,3) NOT NULL,
			unit_price NUMERIC(14,2) NOT NULL DEFAULT 0,
			CONSTRAINT purchases_quantity_positive CHECK (quantity > 0),
			CONSTRAINT purchases_unit_price_non_negative CHECK (unit_price >= 0)
		)`,

		`CREATE TABLE IF NOT EXISTS batch_purchases (
			id BIGSERIAL PRIMARY KEY,
			batch_id VARCHAR(16) NOT NULL REFERENCES batches(id),
			purchase_id VARCHAR(16) NOT NULL REFERENCES purchases(id),
			quantity NUMERIC(14,3) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT batch_purchases_quantity_positive CHECK (quantity > 0),
			UNIQUE (batch_id, purchase_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_batch_purchases_batch ON batch_purchases(batch_id)`,

		`CREATE TABLE IF NOT EXISTS shipments (
			id VARCHAR(16) PRIMARY KEY,
			market_id VARCHAR(16) NOT NULL REFERENCES markets(id),
			order_id VARCHAR(16) REFERENCES orders(id),
			shipment_date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS batch_shipments (
			shipment_id VARCHAR(16) NOT NULL REFERENCES shipments(id),
			batch_id VARCHAR(16) NOT NULL REFERENCES batches(id),
			PRIMARY KEY (shipment_id, batch_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_batch_shipments_batch ON batch_shipments(batch_id)`,

		`CREATE TABLE IF NOT EXISTS shipment_transports (
			shipment_id VARCHAR(16) NOT NULL REFERENCES shipments(id),
			vehicle_id VARCHAR(32) NOT NULL,
			carried_weight NUMERIC(14,3) NOT NULL DEFAULT 0,
			PRIMARY KEY (shipment_id, vehicle_id),
			CONSTRAINT shipment_transports_carried_weight_non_negative CHECK (carried_weight >= 0)
		)`,
	}
}

// EnsureSchema applies Migrations in order. Safe to call on every start.
func EnsureSchema(ctx context.Context, db *database.DB) error {
	for i, stmt := range Migrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
