package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/pkg/database"
	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// BatchRepository persists batches together with their stock and crop rows
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// InsertStock creates a warehouse stock row. batch_id may still be empty and
// is filled in later by LinkStock.
func (r *BatchRepository) InsertStock(ctx context.Context, stock *domain.WarehouseStock) error {
	query := `
		INSERT INTO warehouse_stocks (id, batch_id, warehouse_id, quantity, entry_date, expiry_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	return r.db.Conn(ctx).QueryRowxContext(ctx, query,
		stock.ID, stock.BatchID, stock.WarehouseID, stock.Quantity,
		stock.EntryDate, stock.ExpiryDate, stock.Status,
	).Scan(&stock.CreatedAt, &stock.UpdatedAt)
}

// InsertBatch creates a batch row
func (r *BatchRepository) InsertBatch(ctx context.Context, batch *domain.Batch) error {
	query := `
		INSERT INTO batches (id, harvest_id, stock_id, warehouse_id, production_date, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	return r.db.Conn(ctx).QueryRowxContext(ctx, query,
		batch.ID, batch.HarvestID, batch.StockID, batch.WarehouseID,
		batch.ProductionDate, batch.Quantity,
	).Scan(&batch.CreatedAt, &batch.UpdatedAt)
}

// InsertCrop creates the crop row describing a batch
func (r *BatchRepository) InsertCrop(ctx context.Context, crop *domain.Crop) error {
	query := `
		INSERT INTO crops (id, batch_id, name, type, variety, season)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		crop.ID, crop.BatchID, crop.Name, crop.Type, crop.Variety, crop.Season,
	)
	return err
}

// LinkStock back-fills the stock row's batch reference
func (r *BatchRepository) LinkStock(ctx context.Context, stockID, batchID string) error {
	query := `UPDATE warehouse_stocks SET batch_id = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, stockID, batchID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("warehouse stock")
	}
	return nil
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	return r.get(ctx, `SELECT * FROM batches WHERE id = $1`, id)
}

// LockByID loads a batch and holds a row lock on it until the surrounding
// transaction ends. Outside a transaction it behaves like GetByID.
func (r *BatchRepository) LockByID(ctx context.Context, id string) (*domain.Batch, error) {
	return r.get(ctx, `SELECT * FROM batches WHERE id = $1 FOR UPDATE`, id)
}

func (r *BatchRepository) get(ctx context.Context, query, id string) (*domain.Batch, error) {
	var batch domain.Batch
	if err := r.db.Conn(ctx).GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// UpdateBatch overwrites the production date and quantity of a batch
func (r *BatchRepository) UpdateBatch(ctx context.Context, batch *domain.Batch) error {
	query := `
		UPDATE batches SET production_date = $2, quantity = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.Conn(ctx).QueryRowxContext(ctx, query,
		batch.ID, batch.ProductionDate, batch.Quantity,
	).Scan(&batch.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("batch")
	}
	return err
}

// UpdateStock overwrites the quantity and dates of a stock row
func (r *BatchRepository) UpdateStock(ctx context.Context, stockID string, quantity decimal.Decimal, entryDate, expiryDate time.Time) error {
	query := `
		UPDATE warehouse_stocks SET quantity = $2, entry_date = $3, expiry_date = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, stockID, quantity, entryDate, expiryDate)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("warehouse stock")
	}
	return nil
}

// UpdateCrop overwrites the descriptive crop fields of a batch
func (r *BatchRepository) UpdateCrop(ctx context.Context, batchID string, attrs domain.CropAttrs) error {
	query := `UPDATE crops SET name = $2, type = $3, variety = $4, season = $5 WHERE batch_id = $1`

	result, err := r.db.Conn(ctx).ExecContext(ctx, query,
		batchID, attrs.Name, attrs.Type, attrs.Variety, attrs.Season,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("crop")
	}
	return nil
}

// UpdateStockStatus sets the status of the stock row backing a batch
func (r *BatchRepository) UpdateStockStatus(ctx context.Context, batchID string, status domain.StockStatus) error {
	query := `UPDATE warehouse_stocks SET status = $2, updated_at = NOW() WHERE batch_id = $1`

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, batchID, status)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}
	return nil
}

const detailSelect = `
	SELECT
		b.id AS batch_id, b.harvest_id, b.warehouse_id, b.stock_id,
		b.production_date, b.quantity,
		COALESCE((SELECT SUM(bp.quantity) FROM batch_purchases bp WHERE bp.batch_id = b.id), 0) AS allocated,
		s.entry_date, s.expiry_date, s.status,
		c.name AS crop_name, c.type AS crop_type, c.variety AS crop_variety, c.season AS crop_season,
		EXISTS (SELECT 1 FROM batch_shipments bs WHERE bs.batch_id = b.id) AS shipped
	FROM batches b
	JOIN warehouse_stocks s ON s.id = b.stock_id
	JOIN crops c ON c.batch_id = b.id
`

// GetDetail returns the joined batch, stock and crop view of one batch.
// Derived fields are left for the caller to classify.
func (r *BatchRepository) GetDetail(ctx context.Context, id string) (*domain.BatchDetail, error) {
	var detail domain.BatchDetail
	query := detailSelect + ` WHERE b.id = $1`
	if err := r.db.Conn(ctx).GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &detail, nil
}

// ListDetails lists batch details in FEFO order. An empty warehouseID lists every warehouse.
func (r *BatchRepository) ListDetails(ctx context.Context, warehouseID string) ([]domain.BatchDetail, error) {
	details := []domain.BatchDetail{}
	query := detailSelect + `
		WHERE ($1::text = '' OR b.warehouse_id = $1)
		ORDER BY s.expiry_date, b.id
	`
	if err := r.db.Conn(ctx).SelectContext(ctx, &details, query, warehouseID); err != nil {
		return nil, err
	}
	return details, nil
}

// ExistingIDs returns the subset of ids that name an existing batch
func (r *BatchRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	var found []string
	query := `SELECT id FROM batches WHERE id = ANY($1)`
	if err := r.db.Conn(ctx).SelectContext(ctx, &found, query, pq.Array(ids)); err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(found))
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}
