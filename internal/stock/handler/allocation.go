package handler

import (
	"net/http"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/internal/stock/service"
	"github.com/agritrack/agritrack-backend/pkg/httputil"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// AllocationHandler exposes read-only FEFO queries
type AllocationHandler struct {
	allocator *service.Allocator
	logger    *logger.Logger
}

// NewAllocationHandler creates a new allocation handler
func NewAllocationHandler(allocator *service.Allocator, log *logger.Logger) *AllocationHandler {
	return &AllocationHandler{
		allocator: allocator,
		logger:    log,
	}
}

// Candidates lists the batches that could serve ?crop=&type=&variety=, soonest expiry first
func (h *AllocationHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := domain.NewCropKey(q.Get("crop"), q.Get("type"), q.Get("variety"))

	candidates, err := h.allocator.FindCandidates(r.Context(), scopeOf(r), key)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, candidates, &httputil.Meta{
		Total:       len(candidates),
		WarehouseID: httputil.GetWarehouseID(r.Context()),
		Filter:      key.String(),
	})
}

// Preview computes the FEFO plan for a request without writing anything
func (h *AllocationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CropName    string          `json:"crop_name" validate:"required,max=100"`
		CropType    string          `json:"crop_type" validate:"max=100"`
		CropVariety string          `json:"crop_variety" validate:"max=100"`
		Quantity    decimal.Decimal `json:"quantity" validate:"decimal_positive"`
	}
	if err := decodeAndValidate(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	key := domain.NewCropKey(req.CropName, req.CropType, req.CropVariety)
	plan, err := h.allocator.Plan(r.Context(), scopeOf(r), key, req.Quantity)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, plan)
}
