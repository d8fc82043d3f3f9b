package handler

import (
	"net/http"
	"strings"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/internal/stock/service"
	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/agritrack/agritrack-backend/pkg/httputil"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// BatchHandler handles batch endpoints
type BatchHandler struct {
	ledger    *service.Ledger
	view      *service.InventoryView
	allocator *service.Allocator
	logger    *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(ledger *service.Ledger, view *service.InventoryView, allocator *service.Allocator, log *logger.Logger) *BatchHandler {
	return &BatchHandler{
		ledger:    ledger,
		view:      view,
		allocator: allocator,
		logger:    log,
	}
}

type createBatchRequest struct {
	HarvestID      string           `json:"harvest_id" validate:"required"`
	WarehouseID    string           `json:"warehouse_id"`
	ProductionDate string           `json:"production_date" validate:"required,datetime=2006-01-02"`
	Quantity       decimal.Decimal  `json:"quantity" validate:"decimal_positive"`
	Crop           domain.CropAttrs `json:"crop"`
}

type updateBatchRequest struct {
	ProductionDate string           `json:"production_date" validate:"required,datetime=2006-01-02"`
	Quantity       decimal.Decimal  `json:"quantity" validate:"decimal_positive"`
	Crop           domain.CropAttrs `json:"crop"`
}

// List lists batch details, optionally filtered by ?expiry_status=
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)

	var filter *domain.ExpiryStatus
	if raw := r.URL.Query().Get("expiry_status"); raw != "" {
		status, ok := domain.ParseExpiryStatus(raw)
		if !ok {
			httputil.Error(w, errors.Validation(map[string]string{
				"expiry_status": "must be one of: normal, expiring_soon, expired",
			}))
			return
		}
		filter = &status
	}

	details, err := h.view.ListInventory(r.Context(), scope, filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	meta := &httputil.Meta{Total: len(details), WarehouseID: scope.WarehouseID}
	if filter != nil {
		meta.Filter = string(*filter)
	}
	httputil.JSONWithMeta(w, http.StatusOK, details, meta)
}

// Get gets the detail view of a batch
func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.view.GetBatchDetail(r.Context(), scopeOf(r), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, detail)
}

// Create creates a batch with its stock and crop
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := decodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	production, err := parseDate("production_date", req.ProductionDate)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.ledger.CreateBatch(r.Context(), scopeOf(r), service.CreateBatchInput{
		HarvestID:      req.HarvestID,
		WarehouseID:    req.WarehouseID,
		ProductionDate: production,
		Quantity:       req.Quantity,
		Crop:           req.Crop,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

// Update edits a batch and re-derives its stock dates
func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateBatchRequest
	if err := decodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	production, err := parseDate("production_date", req.ProductionDate)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.ledger.UpdateBatch(r.Context(), scopeOf(r), id, service.UpdateBatchInput{
		ProductionDate: production,
		Quantity:       req.Quantity,
		Crop:           req.Crop,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// UpdateStatus sets the stock status of a batch
func (h *BatchHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := decodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	status := domain.StockStatus(strings.TrimSpace(req.Status))
	if err := h.ledger.UpdateStockStatus(r.Context(), scopeOf(r), id, status); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"batch_id": id, "status": string(status)})
}

// Available returns the unallocated quantity of a batch
func (h *BatchHandler) Available(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	available, err := h.allocator.AvailableQuantity(r.Context(), scopeOf(r), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"batch_id":  id,
		"available": available,
	})
}

// Allocations lists the purchase allocations made against a batch
func (h *BatchHandler) Allocations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	allocations, err := h.allocator.ListAllocations(r.Context(), scopeOf(r), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, allocations, &httputil.Meta{Total: len(allocations)})
}
